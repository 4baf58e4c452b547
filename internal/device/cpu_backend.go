package device

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// CPUBackend implements Backend directly on host memory. It is always
// available and serves as the fallback when no simulated device is
// configured, and as the N=1 correctness reference in tests.
type CPUBackend struct {
	logger      *zap.Logger
	initialized bool
}

// NewCPUBackend creates a new CPU backend instance
func NewCPUBackend(logger *zap.Logger) *CPUBackend {
	return &CPUBackend{logger: logger}
}

func (c *CPUBackend) Initialize() error {
	if c.initialized {
		return nil
	}
	c.initialized = true
	c.logger.Info("CPU backend initialized")
	return nil
}

func (c *CPUBackend) Cleanup() error {
	c.initialized = false
	return nil
}

// IsAvailable is always true for the CPU backend.
func (c *CPUBackend) IsAvailable() bool {
	return true
}

func (c *CPUBackend) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Name:          fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		UnifiedMemory: true,
	}
}

// TransferIn copies src into dst. Aliased regions (unified memory) are
// left untouched.
func (c *CPUBackend) TransferIn(ctx context.Context, src, dst []float64) error {
	return c.copyRegion(ctx, src, dst)
}

// TransferOut copies src into dst. Aliased regions (unified memory) are
// left untouched.
func (c *CPUBackend) TransferOut(ctx context.Context, src, dst []float64) error {
	return c.copyRegion(ctx, src, dst)
}

func (c *CPUBackend) copyRegion(ctx context.Context, src, dst []float64) error {
	if !c.initialized {
		return fmt.Errorf("CPU backend not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(src) != len(dst) {
		return fmt.Errorf("region size mismatch: src %d, dst %d", len(src), len(dst))
	}
	if len(src) > 0 && &src[0] == &dst[0] {
		// unified memory, nothing to move
		return nil
	}
	copy(dst, src)
	return nil
}

// Compute runs the kernel in place on data.
func (c *CPUBackend) Compute(ctx context.Context, kernel Kernel, data []float64) error {
	if !c.initialized {
		return fmt.Errorf("CPU backend not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return kernel.Apply(data)
}
