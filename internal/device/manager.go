package device

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Options selects and configures the backend.
type Options struct {
	// Backend is one of "auto", "cpu" or "sim".
	Backend string
	Sim     SimOptions
}

// Manager handles backend selection and lifecycle
type Manager struct {
	backend Backend
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewManager creates a manager and initializes the requested backend.
// With "auto" it prefers the simulated device when one is configured and
// falls back to the CPU backend.
func NewManager(opts Options, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{logger: logger}
	if err := m.selectAndInitialize(opts); err != nil {
		return nil, err
	}

	info := m.GetDeviceInfo()
	logger.Info("device backend selected",
		zap.String("backend", m.BackendType()),
		zap.String("device", info.Name))
	return m, nil
}

func (m *Manager) selectAndInitialize(opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch opts.Backend {
	case "cpu":
		return m.initCPU()
	case "sim":
		sim := NewSimBackend(opts.Sim, m.logger)
		if err := sim.Initialize(); err != nil {
			return err
		}
		m.backend = sim
		return nil
	case "auto", "":
		sim := NewSimBackend(opts.Sim, m.logger)
		if sim.IsAvailable() {
			if err := sim.Initialize(); err == nil {
				m.backend = sim
				return nil
			}
			_ = sim.Cleanup()
		}
		return m.initCPU()
	}
	return fmt.Errorf("unknown backend %q", opts.Backend)
}

func (m *Manager) initCPU() error {
	cpu := NewCPUBackend(m.logger)
	if err := cpu.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize CPU backend: %w", err)
	}
	m.backend = cpu
	return nil
}

// GetBackend returns the current backend
func (m *Manager) GetBackend() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend
}

// GetDeviceInfo returns device information from the current backend
func (m *Manager) GetDeviceInfo() DeviceInfo {
	backend := m.GetBackend()
	if backend == nil {
		return DeviceInfo{Name: "No backend available"}
	}
	return backend.GetDeviceInfo()
}

// BackendType returns a string describing the current backend type
func (m *Manager) BackendType() string {
	switch m.GetBackend().(type) {
	case *CPUBackend:
		return "cpu"
	case *SimBackend:
		return "sim"
	case nil:
		return "none"
	}
	return "unknown"
}

// Cleanup releases resources held by the current backend
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		if err := m.backend.Cleanup(); err != nil {
			return err
		}
		m.backend = nil
	}
	return nil
}
