package workload

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/config"
	"github.com/fxnlabs/pipeline-node/internal/device"
	"github.com/fxnlabs/pipeline-node/internal/pipeline"
)

// Run assembles a pipeline for the configured workload on the manager's
// backend, with the given overlap factor, and processes the stream to
// completion.
func Run(ctx context.Context, cfg *config.Config, slots int, manager *device.Manager, logger *zap.Logger) (*pipeline.RunReport, error) {
	kernel, err := device.ParseKernel(cfg.Workload.Kernel)
	if err != nil {
		return nil, err
	}

	backend := manager.GetBackend()
	if backend == nil {
		return nil, fmt.Errorf("no device backend available")
	}
	info := backend.GetDeviceInfo()

	pool, err := pipeline.NewBufferPool(pipeline.PoolOptions{
		Slots:          slots,
		ChunkSize:      cfg.Pipeline.ChunkSize,
		UnifiedMemory:  info.UnifiedMemory,
		AcquireTimeout: cfg.Pipeline.AcquireTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	w := NewVectorWorkload(cfg.Workload.Size, cfg.Pipeline.ChunkSize, kernel, logger)
	exec := pipeline.NewStageExecutor(backend, kernel, logger)
	drain := pipeline.NewResultDrain(cfg.Pipeline.DrainWorkers, w.Consumer(), pool, logger)
	orch := pipeline.NewOrchestrator(pool, exec, w.Producer(), drain, logger)

	logger.Info("starting run",
		zap.Int("slots", slots),
		zap.Int("drain_workers", cfg.Pipeline.DrainWorkers),
		zap.Int("chunk_size", cfg.Pipeline.ChunkSize),
		zap.Int("input_size", cfg.Workload.Size),
		zap.String("kernel", kernel.String()),
		zap.String("device", info.Name))

	return orch.Run(ctx)
}
