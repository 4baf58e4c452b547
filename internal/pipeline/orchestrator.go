package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/metrics"
)

// Producer supplies input chunks. NextChunk returns io.EOF at the end
// of the stream; a chunk must fit in one slot.
type Producer interface {
	NextChunk(ctx context.Context) ([]float64, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context) ([]float64, error)

func (f ProducerFunc) NextChunk(ctx context.Context) ([]float64, error) {
	return f(ctx)
}

// Orchestrator drives every slot through its
// Free→Filling→Computing→Draining→Ready→Free cycle, keeping up to N
// slots in flight at different phase offsets. It never waits for one
// slot's full cycle before advancing another: as soon as a slot's
// current phase completes, its next phase is submitted while the other
// slots' phases remain independently in flight. Completion order across
// slots is not assumed to match submission order; every event is keyed
// by the slot it belongs to.
type Orchestrator struct {
	pool     *BufferPool
	exec     *StageExecutor
	producer Producer
	drain    *ResultDrain
	logger   *zap.Logger
}

// phaseEvent is what a completion watcher delivers to the dispatch loop.
type phaseEvent struct {
	slot  *Slot
	phase Phase
	err   error
}

// NewOrchestrator wires a pipeline around an allocated pool.
func NewOrchestrator(pool *BufferPool, exec *StageExecutor, producer Producer, drain *ResultDrain, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		pool:     pool,
		exec:     exec,
		producer: producer,
		drain:    drain,
		logger:   logger,
	}
}

// Run processes the producer's stream to completion and returns the run
// report. The returned error is the fatal fault that aborted the run,
// if any; per-request validation failures are reported only through the
// report. Before returning after a fault, Run drains every in-flight
// completion handle so no outstanding operation still references a
// released slot.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	report := newRunReport(o.pool.Len())

	// ready has capacity N so handing a slot to the drain never blocks
	// the dispatch loop.
	ready := make(chan *Slot, o.pool.Len())
	o.drain.start(ctx, ready, report)

	filled := make(chan *Slot)
	feedErr := make(chan error, 1)
	go o.feed(ctx, filled, feedErr)

	events := make(chan phaseEvent)

	var fatal error
	abort := func(err error) {
		if fatal == nil {
			fatal = err
			o.logger.Error("aborting run", zap.Error(err))
			cancel()
		}
	}

	active := 0 // slots with an outstanding phase operation
	feeding := true
	done := ctx.Done()
	for feeding || active > 0 {
		select {
		case slot, ok := <-filled:
			if !ok {
				feeding = false
				filled = nil
				continue
			}
			if fatal != nil {
				o.pool.Reclaim(slot)
				continue
			}
			if err := o.submit(ctx, slot, PhaseTransferIn, events); err != nil {
				report.recordFailure(slot.Index(), slot.Request(), err)
				metrics.RequestFailures.WithLabelValues("submission").Inc()
				o.pool.Reclaim(slot)
				continue
			}
			active++

		case ev := <-events:
			active--
			if ev.err != nil {
				report.recordFailure(ev.slot.Index(), ev.slot.Request(), ev.err)
				metrics.RequestFailures.WithLabelValues("completion").Inc()
				abort(ev.err)
				o.pool.Reclaim(ev.slot)
				continue
			}
			if fatal != nil {
				o.pool.Reclaim(ev.slot)
				continue
			}
			if err := o.advance(ctx, ev, events, ready); err != nil {
				report.recordFailure(ev.slot.Index(), ev.slot.Request(), err)
				metrics.RequestFailures.WithLabelValues("submission").Inc()
				var serr *SubmissionError
				if errors.As(err, &serr) {
					// fatal for the request only: release the slot
					// without waiting for a handle that will never
					// arrive
					o.pool.Reclaim(ev.slot)
					continue
				}
				abort(err)
				o.pool.Reclaim(ev.slot)
			} else if ev.phase != PhaseTransferOut {
				active++
			}

		case <-done:
			abort(ctx.Err())
			done = nil
		}
	}

	close(ready)
	o.drain.wait()

	if ferr := <-feedErr; ferr != nil && fatal == nil && !errors.Is(ferr, context.Canceled) {
		fatal = fmt.Errorf("producer: %w", ferr)
	}

	report.finish(time.Since(start), fatal)
	o.logger.Info("run finished",
		zap.Int("slots", report.Slots),
		zap.Int("requests", report.Requests),
		zap.Int("elements", report.Elements),
		zap.Duration("elapsed", report.Elapsed),
		zap.Float64("throughput_elements_per_sec", report.Throughput()),
		zap.Int("failed_requests", len(report.Failures)),
		zap.Bool("passed", report.Passed()))
	return report, fatal
}

// feed acquires a slot per input chunk, fills its host region and hands
// it to the dispatch loop. Acquire blocking on a busy pool is the
// backpressure that keeps the producer at most N requests ahead.
func (o *Orchestrator) feed(ctx context.Context, filled chan<- *Slot, feedErr chan<- error) {
	defer close(filled)
	seq := 0
	for {
		chunk, err := o.producer.NextChunk(ctx)
		if errors.Is(err, io.EOF) {
			feedErr <- nil
			return
		}
		if err != nil {
			feedErr <- err
			return
		}
		if len(chunk) == 0 {
			continue
		}

		slot, err := o.pool.Acquire(ctx)
		if err != nil {
			feedErr <- err
			return
		}
		if len(chunk) > len(slot.host) {
			o.pool.Reclaim(slot)
			feedErr <- fmt.Errorf("chunk %d of %d elements exceeds slot capacity %d",
				seq, len(chunk), len(slot.host))
			return
		}
		slot.bind(NewRequest(seq, len(chunk)))
		copy(slot.host, chunk)
		seq++

		select {
		case filled <- slot:
		case <-ctx.Done():
			o.pool.Reclaim(slot)
			feedErr <- ctx.Err()
			return
		}
	}
}

// submit starts a phase and registers a continuation that forwards the
// completion to the dispatch loop. The watcher is the handle's only
// waiter; the loop never busy-waits on any single slot.
func (o *Orchestrator) submit(ctx context.Context, slot *Slot, phase Phase, events chan<- phaseEvent) error {
	c, err := o.exec.Submit(ctx, phase, slot)
	if err != nil {
		return err
	}
	go func() {
		events <- phaseEvent{slot: slot, phase: phase, err: <-c.Done()}
	}()
	return nil
}

// advance moves a slot to its next state and submits the next phase, or
// hands it to the drain once the cycle is complete.
func (o *Orchestrator) advance(ctx context.Context, ev phaseEvent, events chan<- phaseEvent, ready chan<- *Slot) error {
	switch ev.phase {
	case PhaseTransferIn:
		if err := ev.slot.transition(SlotFilling, SlotComputing); err != nil {
			return err
		}
		return o.submit(ctx, ev.slot, PhaseCompute, events)
	case PhaseCompute:
		if err := ev.slot.transition(SlotComputing, SlotDraining); err != nil {
			return err
		}
		return o.submit(ctx, ev.slot, PhaseTransferOut, events)
	case PhaseTransferOut:
		if err := ev.slot.transition(SlotDraining, SlotReady); err != nil {
			return err
		}
		ready <- ev.slot
		return nil
	}
	return fmt.Errorf("unexpected phase event %s", ev.phase)
}
