package pipeline

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/device"
)

func BenchmarkPipeline(b *testing.B) {
	const chunk, chunks = 4096, 16
	log := zap.NewNop()

	slotCounts := []int{1, 2, 4, 8, 16}

	for _, slots := range slotCounts {
		b.Run(fmt.Sprintf("slots_%d", slots), func(b *testing.B) {
			sim := device.NewSimBackend(device.SimOptions{
				LinkBandwidth: int64(chunk * 8 * 5000), // ~200us per transfer
				ComputeRate:   int64(chunk * 5000),     // ~200us per kernel
			}, log)
			if err := sim.Initialize(); err != nil {
				b.Fatal(err)
			}
			defer sim.Cleanup()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				pool, err := NewBufferPool(PoolOptions{Slots: slots, ChunkSize: chunk}, log)
				if err != nil {
					b.Fatal(err)
				}
				exec := NewStageExecutor(sim, device.KernelAddOne, log)
				noop := ConsumerFunc(func(context.Context, int, *Request, []float64) error { return nil })
				drain := NewResultDrain(2, noop, pool, log)
				orch := NewOrchestrator(pool, exec, &chunkProducer{total: chunks * chunk, chunk: chunk}, drain, log)

				report, err := orch.Run(context.Background())
				if err != nil {
					b.Fatal(err)
				}
				if !report.Passed() {
					b.Fatal("run failed")
				}
			}

			elements := int64(chunks * chunk * b.N)
			seconds := b.Elapsed().Seconds()
			b.ReportMetric(float64(elements)/seconds/1e6, "Melem/s")
		})
	}
}
