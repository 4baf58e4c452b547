package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/metrics"
)

// BufferPool owns a fixed collection of N slots. Exclusive ownership of
// a slot moves to the caller on Acquire and back to the pool on Release;
// the free list is the only part that needs locking, and a buffered
// channel provides it together with producer backpressure.
type BufferPool struct {
	slots          []*Slot
	free           chan *Slot
	acquireTimeout time.Duration
	logger         *zap.Logger
}

// PoolOptions configures a buffer pool.
type PoolOptions struct {
	// Slots is the overlap factor N.
	Slots int
	// ChunkSize is the element capacity of one slot.
	ChunkSize int
	// UnifiedMemory makes the device region alias the host region.
	UnifiedMemory bool
	// AcquireTimeout bounds Acquire; zero waits indefinitely.
	AcquireTimeout time.Duration
}

// NewBufferPool allocates N slots with their host and device regions.
func NewBufferPool(opts PoolOptions, logger *zap.Logger) (*BufferPool, error) {
	if opts.Slots < 1 {
		return nil, fmt.Errorf("pool needs at least one slot, got %d", opts.Slots)
	}
	if opts.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be >= 1, got %d", opts.ChunkSize)
	}
	regions := 2
	if opts.UnifiedMemory {
		regions = 1
	}
	if opts.ChunkSize > math.MaxInt/(8*regions*opts.Slots) {
		return nil, fmt.Errorf("%w: %d slots of %d elements", ErrResourceExhaustion, opts.Slots, opts.ChunkSize)
	}

	p := &BufferPool{
		slots:          make([]*Slot, opts.Slots),
		free:           make(chan *Slot, opts.Slots),
		acquireTimeout: opts.AcquireTimeout,
		logger:         logger,
	}
	var devBytes int64
	for i := range p.slots {
		s := &Slot{index: i, host: make([]float64, opts.ChunkSize)}
		if opts.UnifiedMemory {
			s.dev = s.host
		} else {
			s.dev = make([]float64, opts.ChunkSize)
			devBytes += int64(opts.ChunkSize) * 8
		}
		p.slots[i] = s
		p.free <- s
		metrics.SlotState.WithLabelValues(SlotFree.String()).Inc()
	}
	metrics.DeviceMemoryUsedBytes.Set(float64(devBytes))

	logger.Debug("buffer pool allocated",
		zap.Int("slots", opts.Slots),
		zap.Int("chunk_size", opts.ChunkSize),
		zap.Bool("unified_memory", opts.UnifiedMemory))
	return p, nil
}

// Acquire returns a Free slot marked Filling, transferring ownership to
// the caller. It blocks while all N slots are occupied; that block is
// the pipeline's backpressure on the producer.
func (p *BufferPool) Acquire(ctx context.Context) (*Slot, error) {
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}
	start := time.Now()
	select {
	case s := <-p.free:
		metrics.AcquireWaitDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
		if err := s.transition(SlotFree, SlotFilling); err != nil {
			return nil, err
		}
		return s, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquiring slot: %w", ctx.Err())
	}
}

// Release takes a Ready slot back from the drain, resets it to Free and
// hands it to a blocked or future Acquire.
func (p *BufferPool) Release(s *Slot) error {
	if err := s.transition(SlotReady, SlotFree); err != nil {
		return err
	}
	s.unbind()
	p.free <- s
	return nil
}

// Reclaim returns a mid-cycle slot to the pool after its request was
// aborted. The caller must have drained or abandoned any completion
// handle still referencing the slot.
func (p *BufferPool) Reclaim(s *Slot) {
	if s.State() == SlotFree {
		return
	}
	s.forceFree()
	s.unbind()
	p.free <- s
}

// Len returns the overlap factor N.
func (p *BufferPool) Len() int {
	return len(p.slots)
}

// StateCounts returns how many slots are in each state. The sum always
// equals N.
func (p *BufferPool) StateCounts() map[SlotState]int {
	counts := make(map[SlotState]int, 5)
	for _, s := range p.slots {
		counts[s.State()]++
	}
	return counts
}
