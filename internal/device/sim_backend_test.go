package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSimOptions() SimOptions {
	return SimOptions{
		LinkBandwidth:   1 << 30,
		TransferLatency: 0,
		ComputeRate:     1 << 30,
	}
}

func TestSimBackend(t *testing.T) {
	backend := NewSimBackend(testSimOptions(), zap.NewNop())
	require.NoError(t, backend.Initialize())
	defer backend.Cleanup()

	assert.True(t, backend.IsAvailable())
	info := backend.GetDeviceInfo()
	assert.False(t, info.UnifiedMemory)
	assert.Equal(t, int64(1<<30), info.LinkBandwidth)

	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		host := []float64{1, 2, 3, 4}
		dev := make([]float64, 4)
		out := make([]float64, 4)

		require.NoError(t, backend.TransferIn(ctx, host, dev))
		require.NoError(t, backend.Compute(ctx, KernelAddOne, dev))
		require.NoError(t, backend.TransferOut(ctx, dev, out))
		assert.Equal(t, []float64{2, 3, 4, 5}, out)
	})

	t.Run("size mismatch", func(t *testing.T) {
		assert.Error(t, backend.TransferIn(ctx, make([]float64, 2), make([]float64, 3)))
	})
}

func TestSimBackendValidation(t *testing.T) {
	backend := NewSimBackend(SimOptions{}, zap.NewNop())
	assert.False(t, backend.IsAvailable())
	assert.Error(t, backend.Initialize())
}

func TestSimBackendCancellation(t *testing.T) {
	// A slow link: 1KB/s means this transfer would take ~8s.
	backend := NewSimBackend(SimOptions{LinkBandwidth: 1024, ComputeRate: 1 << 30}, zap.NewNop())
	require.NoError(t, backend.Initialize())
	defer backend.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := backend.TransferIn(ctx, make([]float64, 1024), make([]float64, 1024))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimBackendLinkContention(t *testing.T) {
	// Two concurrent transfers over a shared link must serialize: the
	// pair takes at least twice one transfer's time.
	opts := SimOptions{LinkBandwidth: 8 << 20, ComputeRate: 1 << 30} // 1M elements/sec over the link
	backend := NewSimBackend(opts, zap.NewNop())
	require.NoError(t, backend.Initialize())
	defer backend.Cleanup()

	const n = 32 << 10 // ~32ms per transfer
	ctx := context.Background()
	start := time.Now()
	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			done <- backend.TransferIn(ctx, make([]float64, n), make([]float64, n))
		}()
	}
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}
