package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/device"
	"github.com/fxnlabs/pipeline-node/internal/metrics"
)

// StageExecutor wraps one phase of a slot's cycle as an asynchronous
// operation against the device backend, exposing its result through a
// one-shot completion handle.
type StageExecutor struct {
	backend device.Backend
	kernel  device.Kernel
	logger  *zap.Logger
}

// NewStageExecutor creates an executor running phases on backend with
// the given kernel.
func NewStageExecutor(backend device.Backend, kernel device.Kernel, logger *zap.Logger) *StageExecutor {
	return &StageExecutor{backend: backend, kernel: kernel, logger: logger}
}

// Submit starts phase against the slot's regions and returns without
// waiting for it. A non-nil error is a *SubmissionError: the phase never
// started and no completion will arrive. Otherwise the phase's effect is
// only guaranteed once the returned handle signals; a fault is delivered
// there as a *CompletionError.
func (e *StageExecutor) Submit(ctx context.Context, phase Phase, slot *Slot) (*Completion, error) {
	req := slot.Request()
	if req == nil {
		return nil, &SubmissionError{Phase: phase, Slot: slot.Index(),
			Err: fmt.Errorf("no request bound to slot")}
	}
	n := req.Len()
	if n < 1 || n > len(slot.host) {
		return nil, &SubmissionError{Phase: phase, Slot: slot.Index(), Request: req.ID(),
			Err: fmt.Errorf("request length %d exceeds slot capacity %d", n, len(slot.host))}
	}

	var run func(context.Context) error
	switch phase {
	case PhaseTransferIn:
		run = func(ctx context.Context) error {
			return e.backend.TransferIn(ctx, slot.host[:n], slot.dev[:n])
		}
	case PhaseCompute:
		run = func(ctx context.Context) error {
			return e.backend.Compute(ctx, e.kernel, slot.dev[:n])
		}
	case PhaseTransferOut:
		run = func(ctx context.Context) error {
			return e.backend.TransferOut(ctx, slot.dev[:n], slot.host[:n])
		}
	default:
		return nil, &SubmissionError{Phase: phase, Slot: slot.Index(), Request: req.ID(),
			Err: fmt.Errorf("unknown phase")}
	}

	c := newCompletion()
	go func() {
		start := time.Now()
		err := run(ctx)
		elapsed := time.Since(start)
		metrics.PhaseDuration.WithLabelValues(phase.String()).Observe(float64(elapsed.Microseconds()) / 1000)
		if err != nil {
			err = &CompletionError{Phase: phase, Slot: slot.Index(), Request: req.ID(), Err: err}
		}
		e.logger.Debug("phase finished",
			zap.Stringer("phase", phase),
			zap.Int("slot", slot.Index()),
			zap.Stringer("request", req.ID()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		c.signal(err)
	}()
	return c, nil
}
