package device

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SimOptions shapes the timing behavior of the simulated device.
type SimOptions struct {
	// LinkBandwidth is the host<->device link bandwidth in bytes/sec.
	// Both transfer directions contend for the same link.
	LinkBandwidth int64
	// TransferLatency is the fixed per-transfer setup cost.
	TransferLatency time.Duration
	// ComputeRate is the kernel throughput in elements/sec.
	ComputeRate int64
}

// SimBackend simulates a discrete accelerator: kernels run on the CPU but
// every phase takes the time the configured hardware would need. Transfers
// in both directions serialize on a shared link token and kernels serialize
// on a compute engine token, so a run exhibits the same overlap and
// plateau behavior a real transfer/compute/transfer device would.
type SimBackend struct {
	logger      *zap.Logger
	opts        SimOptions
	link        chan struct{}
	engine      chan struct{}
	initialized bool
}

const bytesPerElement = 8

// NewSimBackend creates a simulated device backend.
func NewSimBackend(opts SimOptions, logger *zap.Logger) *SimBackend {
	return &SimBackend{
		logger: logger,
		opts:   opts,
		link:   make(chan struct{}, 1),
		engine: make(chan struct{}, 1),
	}
}

func (s *SimBackend) Initialize() error {
	if s.initialized {
		return nil
	}
	if s.opts.LinkBandwidth < 1 {
		return fmt.Errorf("sim backend: link bandwidth must be >= 1, got %d", s.opts.LinkBandwidth)
	}
	if s.opts.ComputeRate < 1 {
		return fmt.Errorf("sim backend: compute rate must be >= 1, got %d", s.opts.ComputeRate)
	}
	s.initialized = true
	s.logger.Info("simulated device backend initialized",
		zap.Int64("link_bandwidth_bytes_per_sec", s.opts.LinkBandwidth),
		zap.Duration("transfer_latency", s.opts.TransferLatency),
		zap.Int64("compute_rate_elements_per_sec", s.opts.ComputeRate))
	return nil
}

func (s *SimBackend) Cleanup() error {
	s.initialized = false
	return nil
}

func (s *SimBackend) IsAvailable() bool {
	return s.opts.LinkBandwidth > 0 && s.opts.ComputeRate > 0
}

func (s *SimBackend) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Name:          "Simulated accelerator",
		LinkBandwidth: s.opts.LinkBandwidth,
		UnifiedMemory: false,
	}
}

func (s *SimBackend) TransferIn(ctx context.Context, src, dst []float64) error {
	return s.transfer(ctx, src, dst)
}

func (s *SimBackend) TransferOut(ctx context.Context, src, dst []float64) error {
	return s.transfer(ctx, src, dst)
}

func (s *SimBackend) transfer(ctx context.Context, src, dst []float64) error {
	if !s.initialized {
		return fmt.Errorf("sim backend not initialized")
	}
	if len(src) != len(dst) {
		return fmt.Errorf("region size mismatch: src %d, dst %d", len(src), len(dst))
	}
	if err := s.hold(ctx, s.link, s.transferTime(len(src))); err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

func (s *SimBackend) Compute(ctx context.Context, kernel Kernel, data []float64) error {
	if !s.initialized {
		return fmt.Errorf("sim backend not initialized")
	}
	d := time.Duration(float64(len(data)) / float64(s.opts.ComputeRate) * float64(time.Second))
	if err := s.hold(ctx, s.engine, d); err != nil {
		return err
	}
	return kernel.Apply(data)
}

// hold acquires a device resource token, keeps it for d, then releases it.
func (s *SimBackend) hold(ctx context.Context, token chan struct{}, d time.Duration) error {
	select {
	case token <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-token }()
	return sleepContext(ctx, d)
}

func (s *SimBackend) transferTime(elements int) time.Duration {
	bytes := int64(elements) * bytesPerElement
	return s.opts.TransferLatency + time.Duration(float64(bytes)/float64(s.opts.LinkBandwidth)*float64(time.Second))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
