package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Workload WorkloadConfig `yaml:"workload"`
	Device   DeviceConfig   `yaml:"device"`
	Logger   LoggerConfig   `yaml:"logger"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type PipelineConfig struct {
	// Slots is the overlap factor N: how many buffer slots cycle through
	// the transfer-in/compute/transfer-out phases concurrently.
	Slots int `yaml:"slots"`
	// DrainWorkers is the number of host-side workers consuming finished
	// slots off the orchestrator's critical path.
	DrainWorkers int `yaml:"drainWorkers"`
	// ChunkSize is the number of elements carried by one slot.
	ChunkSize int `yaml:"chunkSize"`
	// AcquireTimeout bounds how long the producer may wait for a free
	// slot. Zero means wait indefinitely.
	AcquireTimeout time.Duration `yaml:"acquireTimeout"`
}

type WorkloadConfig struct {
	// Size is the total number of input elements for one run.
	Size int `yaml:"size"`
	// Kernel selects the element-wise device kernel (addone, scale, square).
	Kernel string `yaml:"kernel"`
}

type DeviceConfig struct {
	// Backend selects the device backend: auto, cpu or sim.
	Backend string `yaml:"backend"`
	Sim     SimConfig `yaml:"sim"`
}

type SimConfig struct {
	// LinkBandwidth is the simulated host<->device link bandwidth in
	// bytes per second, shared by both transfer directions.
	LinkBandwidth int64 `yaml:"linkBandwidth"`
	// TransferLatency is the fixed per-transfer setup cost.
	TransferLatency time.Duration `yaml:"transferLatency"`
	// ComputeRate is the simulated kernel throughput in elements per second.
	ComputeRate int64 `yaml:"computeRate"`
}

type LoggerConfig struct {
	Verbosity string `yaml:"verbosity"`
}

type MetricsConfig struct {
	// ListenAddress exposes prometheus metrics when non-empty, e.g. ":9090".
	ListenAddress string `yaml:"listenAddress"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// DefaultConfig returns the configuration used when a field is absent
// from the yaml file.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Slots:        4,
			DrainWorkers: 2,
			ChunkSize:    1 << 20,
		},
		Workload: WorkloadConfig{
			Size:   1 << 26,
			Kernel: "addone",
		},
		Device: DeviceConfig{
			Backend: "auto",
			Sim: SimConfig{
				LinkBandwidth:   8 << 30,
				TransferLatency: 50 * time.Microsecond,
				ComputeRate:     4 << 30,
			},
		},
		Logger: LoggerConfig{Verbosity: "info"},
	}
}

func (c *Config) Validate() error {
	if c.Pipeline.Slots < 1 {
		return fmt.Errorf("pipeline.slots must be >= 1, got %d", c.Pipeline.Slots)
	}
	if c.Pipeline.DrainWorkers < 1 {
		return fmt.Errorf("pipeline.drainWorkers must be >= 1, got %d", c.Pipeline.DrainWorkers)
	}
	if c.Pipeline.ChunkSize < 1 {
		return fmt.Errorf("pipeline.chunkSize must be >= 1, got %d", c.Pipeline.ChunkSize)
	}
	if c.Workload.Size < 1 {
		return fmt.Errorf("workload.size must be >= 1, got %d", c.Workload.Size)
	}
	switch c.Device.Backend {
	case "auto", "cpu", "sim":
	default:
		return fmt.Errorf("device.backend must be auto, cpu or sim, got %q", c.Device.Backend)
	}
	if c.Device.Backend == "sim" || c.Device.Backend == "auto" {
		if c.Device.Sim.LinkBandwidth < 1 {
			return fmt.Errorf("device.sim.linkBandwidth must be >= 1, got %d", c.Device.Sim.LinkBandwidth)
		}
		if c.Device.Sim.ComputeRate < 1 {
			return fmt.Errorf("device.sim.computeRate must be >= 1, got %d", c.Device.Sim.ComputeRate)
		}
	}
	return nil
}
