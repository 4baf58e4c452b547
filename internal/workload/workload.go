// Package workload defines the input streams the pipeline is exercised
// with and the validation of device output against a host reference.
package workload

import (
	"context"
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/device"
	"github.com/fxnlabs/pipeline-node/internal/pipeline"
)

// matchTolerance absorbs the rounding differences a real device kernel
// is allowed; the built-in kernels are bit-exact against the reference.
const matchTolerance = 1e-9

// VectorWorkload streams a deterministic float64 vector through the
// pipeline in fixed-size chunks and validates every drained chunk
// against the kernel's host reference.
type VectorWorkload struct {
	size   int
	chunk  int
	kernel device.Kernel
	logger *zap.Logger
}

// NewVectorWorkload creates a workload of size elements streamed in
// chunks of chunk elements, computed with kernel.
func NewVectorWorkload(size, chunk int, kernel device.Kernel, logger *zap.Logger) *VectorWorkload {
	return &VectorWorkload{size: size, chunk: chunk, kernel: kernel, logger: logger}
}

// element is the input stream's value at index i. Values cycle through
// a prime-sized range so neighboring chunks never repeat.
func element(i int) float64 {
	return float64(i%9973) * 0.5
}

// Producer returns the chunk source the orchestrator pulls from.
func (w *VectorWorkload) Producer() pipeline.Producer {
	return &vectorProducer{workload: w}
}

type vectorProducer struct {
	workload *VectorWorkload
	offset   int
}

func (p *vectorProducer) NextChunk(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := p.workload
	if p.offset >= w.size {
		return nil, io.EOF
	}
	n := w.chunk
	if w.size-p.offset < n {
		n = w.size - p.offset
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = element(p.offset + i)
	}
	p.offset += n
	return out, nil
}

// Consumer returns the validator invoked by the result drain. It
// regenerates the request's input from its sequence number, applies the
// kernel's reference implementation and compares element-wise.
func (w *VectorWorkload) Consumer() pipeline.Consumer {
	return pipeline.ConsumerFunc(func(ctx context.Context, slot int, req *pipeline.Request, out []float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		expected := make([]float64, len(out))
		base := req.Seq() * w.chunk
		for i := range expected {
			expected[i] = element(base + i)
		}
		if err := w.kernel.Apply(expected); err != nil {
			return err
		}
		for i := range expected {
			if math.Abs(out[i]-expected[i]) > matchTolerance {
				return &pipeline.ValidationError{
					Slot:    slot,
					Request: req.ID(),
					Index:   i,
					Want:    expected[i],
					Got:     out[i],
				}
			}
		}
		return nil
	})
}

// Size returns the total number of input elements.
func (w *VectorWorkload) Size() int {
	return w.size
}
