package device

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCPUBackend(t *testing.T) {
	backend := NewCPUBackend(zap.NewNop())

	require.NoError(t, backend.Initialize())
	defer backend.Cleanup()

	assert.True(t, backend.IsAvailable())

	info := backend.GetDeviceInfo()
	assert.True(t, strings.Contains(info.Name, "CPU"))
	assert.True(t, info.UnifiedMemory)

	ctx := context.Background()

	t.Run("transfer copies", func(t *testing.T) {
		src := []float64{1, 2, 3, 4}
		dst := make([]float64, 4)
		require.NoError(t, backend.TransferIn(ctx, src, dst))
		assert.Equal(t, src, dst)

		out := make([]float64, 4)
		require.NoError(t, backend.TransferOut(ctx, dst, out))
		assert.Equal(t, src, out)
	})

	t.Run("aliased transfer is a no-op", func(t *testing.T) {
		region := []float64{5, 6, 7}
		require.NoError(t, backend.TransferIn(ctx, region, region))
		assert.Equal(t, []float64{5, 6, 7}, region)
	})

	t.Run("size mismatch", func(t *testing.T) {
		err := backend.TransferIn(ctx, make([]float64, 3), make([]float64, 4))
		assert.Error(t, err)
	})

	t.Run("compute add one", func(t *testing.T) {
		data := []float64{0, 1, 2}
		require.NoError(t, backend.Compute(ctx, KernelAddOne, data))
		assert.Equal(t, []float64{1, 2, 3}, data)
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, backend.Compute(canceled, KernelAddOne, []float64{1}))
	})
}

func TestCPUBackendNotInitialized(t *testing.T) {
	backend := NewCPUBackend(zap.NewNop())
	err := backend.Compute(context.Background(), KernelAddOne, []float64{1})
	assert.Error(t, err)
}
