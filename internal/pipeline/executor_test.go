package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/device"
)

// faultBackend wraps a real backend and fails a chosen phase whenever
// the region's first element equals the trigger value. Chunks encode
// their sequence number in the data, so tests can target one request.
type faultBackend struct {
	device.Backend
	phase   Phase
	trigger float64
}

func (f *faultBackend) TransferIn(ctx context.Context, src, dst []float64) error {
	if f.phase == PhaseTransferIn && len(src) > 0 && src[0] == f.trigger {
		return fmt.Errorf("injected transfer-in fault")
	}
	return f.Backend.TransferIn(ctx, src, dst)
}

func (f *faultBackend) Compute(ctx context.Context, kernel device.Kernel, data []float64) error {
	if f.phase == PhaseCompute && len(data) > 0 && data[0] == f.trigger {
		return fmt.Errorf("injected compute fault")
	}
	return f.Backend.Compute(ctx, kernel, data)
}

// countingBackend checks that no two phase operations ever run
// concurrently against the same device region, i.e. the same slot.
type countingBackend struct {
	device.Backend
	mu       sync.Mutex
	inflight map[*float64]*atomic.Int32
	violated atomic.Bool
	delay    time.Duration
}

func newCountingBackend(inner device.Backend, delay time.Duration) *countingBackend {
	return &countingBackend{Backend: inner, inflight: make(map[*float64]*atomic.Int32), delay: delay}
}

func (c *countingBackend) enter(region []float64) func() {
	c.mu.Lock()
	counter, ok := c.inflight[&region[0]]
	if !ok {
		counter = &atomic.Int32{}
		c.inflight[&region[0]] = counter
	}
	c.mu.Unlock()
	if counter.Add(1) > 1 {
		c.violated.Store(true)
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return func() { counter.Add(-1) }
}

func (c *countingBackend) TransferIn(ctx context.Context, src, dst []float64) error {
	defer c.enter(dst)()
	return c.Backend.TransferIn(ctx, src, dst)
}

func (c *countingBackend) Compute(ctx context.Context, kernel device.Kernel, data []float64) error {
	defer c.enter(data)()
	return c.Backend.Compute(ctx, kernel, data)
}

func (c *countingBackend) TransferOut(ctx context.Context, src, dst []float64) error {
	defer c.enter(src)()
	return c.Backend.TransferOut(ctx, src, dst)
}

func newTestCPUBackend(t *testing.T) device.Backend {
	t.Helper()
	backend := device.NewCPUBackend(zap.NewNop())
	require.NoError(t, backend.Initialize())
	t.Cleanup(func() { backend.Cleanup() })
	return backend
}

func TestStageExecutorSubmit(t *testing.T) {
	exec := NewStageExecutor(newTestCPUBackend(t), device.KernelAddOne, zap.NewNop())
	ctx := context.Background()

	t.Run("full cycle", func(t *testing.T) {
		slot := &Slot{index: 0, host: []float64{1, 2, 3}, dev: make([]float64, 3)}
		slot.bind(NewRequest(0, 3))

		for _, phase := range []Phase{PhaseTransferIn, PhaseCompute, PhaseTransferOut} {
			c, err := exec.Submit(ctx, phase, slot)
			require.NoError(t, err)
			require.NoError(t, <-c.Done())
		}
		assert.Equal(t, []float64{2, 3, 4}, slot.host)
	})

	t.Run("no bound request", func(t *testing.T) {
		slot := &Slot{index: 1, host: make([]float64, 3), dev: make([]float64, 3)}
		_, err := exec.Submit(ctx, PhaseTransferIn, slot)
		var serr *SubmissionError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 1, serr.Slot)
	})

	t.Run("oversized request", func(t *testing.T) {
		slot := &Slot{index: 2, host: make([]float64, 3), dev: make([]float64, 3)}
		slot.bind(NewRequest(0, 8))
		_, err := exec.Submit(ctx, PhaseTransferIn, slot)
		var serr *SubmissionError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("unknown phase", func(t *testing.T) {
		slot := &Slot{index: 3, host: make([]float64, 3), dev: make([]float64, 3)}
		slot.bind(NewRequest(0, 3))
		_, err := exec.Submit(ctx, Phase(42), slot)
		var serr *SubmissionError
		assert.ErrorAs(t, err, &serr)
	})
}

func TestStageExecutorFaultOnHandle(t *testing.T) {
	backend := &faultBackend{Backend: newTestCPUBackend(t), phase: PhaseCompute, trigger: 7}
	exec := NewStageExecutor(backend, device.KernelAddOne, zap.NewNop())

	slot := &Slot{index: 2, host: []float64{7, 7}, dev: make([]float64, 2)}
	slot.bind(NewRequest(0, 2))

	c, err := exec.Submit(context.Background(), PhaseTransferIn, slot)
	require.NoError(t, err)
	require.NoError(t, <-c.Done())

	c, err = exec.Submit(context.Background(), PhaseCompute, slot)
	require.NoError(t, err) // submission itself succeeds
	got := <-c.Done()
	var cerr *CompletionError
	require.ErrorAs(t, got, &cerr)
	assert.Equal(t, PhaseCompute, cerr.Phase)
	assert.Equal(t, 2, cerr.Slot)
	assert.Equal(t, slot.Request().ID(), cerr.Request)
}

func TestCompletionSignalIsOneShot(t *testing.T) {
	c := newCompletion()
	c.signal(errors.New("first"))
	c.signal(errors.New("second"))
	err := <-c.Done()
	assert.EqualError(t, err, "first")
	select {
	case err := <-c.Done():
		t.Fatalf("unexpected second signal: %v", err)
	default:
	}
}
