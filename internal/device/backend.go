package device

import "context"

// DeviceInfo contains information about the execution device
type DeviceInfo struct {
	Name            string `json:"name"`
	TotalMemory     int64  `json:"totalMemory"`     // in bytes
	AvailableMemory int64  `json:"availableMemory"` // in bytes
	// LinkBandwidth is the host<->device link bandwidth in bytes/sec;
	// zero when the device shares host memory.
	LinkBandwidth int64 `json:"linkBandwidth,omitempty"`
	// UnifiedMemory is true when host and device regions may alias.
	UnifiedMemory bool `json:"unifiedMemory"`
}

// Backend defines the interface for pipeline execution backends.
// A backend implements the three phases of one slot's cycle: copying a
// chunk into device-visible memory, running a kernel on it, and copying
// the result back out.
//
// Implementation notes:
// - Phase methods are synchronous; the stage executor supplies the
//   asynchrony and completion signalling above them.
// - Phase methods must be safe for concurrent calls against distinct
//   memory regions. The pipeline guarantees at most one outstanding
//   phase per slot, never two phases on the same region.
// - Phase methods must honor context cancellation so an aborting run
//   can drain in-flight work promptly.
type Backend interface {
	// TransferIn copies a chunk from host memory into device memory.
	TransferIn(ctx context.Context, src, dst []float64) error

	// Compute runs the kernel in place on a device region.
	Compute(ctx context.Context, kernel Kernel, data []float64) error

	// TransferOut copies a finished result from device memory back to
	// host memory.
	TransferOut(ctx context.Context, src, dst []float64) error

	// GetDeviceInfo returns information about the device. Used for
	// backend selection, reporting and metrics.
	GetDeviceInfo() DeviceInfo

	// IsAvailable checks if the backend is usable without heavy
	// initialization work.
	IsAvailable() bool

	// Initialize prepares the backend for use. Called once before the
	// first phase submission.
	Initialize() error

	// Cleanup releases resources held by the backend. Must be called
	// when the backend is no longer needed.
	Cleanup() error
}
