package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/metrics"
)

// Consumer post-processes one finished output region. The slot index
// identifies which slot carried the request, for attribution in errors.
// A *ValidationError return fails the request without stopping the
// pipeline; any other error is also recorded per-request.
type Consumer interface {
	Consume(ctx context.Context, slot int, req *Request, out []float64) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(ctx context.Context, slot int, req *Request, out []float64) error

func (f ConsumerFunc) Consume(ctx context.Context, slot int, req *Request, out []float64) error {
	return f(ctx, slot, req, out)
}

// ResultDrain consumes Ready slots on workers separate from the
// orchestrator's dispatch loop, so slow host-side post-processing never
// stalls phase submission for other slots. Each slot is routed to
// exactly one worker; after consumption the worker releases the slot
// back to the pool.
type ResultDrain struct {
	workers  int
	consumer Consumer
	pool     *BufferPool
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewResultDrain creates a drain with the given number of workers.
func NewResultDrain(workers int, consumer Consumer, pool *BufferPool, logger *zap.Logger) *ResultDrain {
	if workers < 1 {
		workers = 1
	}
	return &ResultDrain{workers: workers, consumer: consumer, pool: pool, logger: logger}
}

// start launches the workers. They exit when ready is closed.
func (d *ResultDrain) start(ctx context.Context, ready <-chan *Slot, report *RunReport) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			for slot := range ready {
				d.consume(ctx, worker, slot, report)
			}
		}(i)
	}
}

func (d *ResultDrain) consume(ctx context.Context, worker int, slot *Slot, report *RunReport) {
	req := slot.Request()
	out := slot.host[:req.Len()]

	if err := d.consumer.Consume(ctx, slot.Index(), req, out); err != nil {
		kind := "consume"
		var verr *ValidationError
		if errors.As(err, &verr) {
			kind = "validation"
		}
		metrics.RequestFailures.WithLabelValues(kind).Inc()
		report.recordFailure(slot.Index(), req, err)
		d.logger.Warn("request failed in drain",
			zap.Int("worker", worker),
			zap.Int("slot", slot.Index()),
			zap.Stringer("request", req.ID()),
			zap.Int("seq", req.Seq()),
			zap.Error(err))
	} else {
		report.recordDrained(req)
	}

	if err := d.pool.Release(slot); err != nil {
		d.logger.Error("releasing drained slot", zap.Int("slot", slot.Index()), zap.Error(err))
	}
}

// wait blocks until all workers finished.
func (d *ResultDrain) wait() {
	d.wg.Wait()
}
