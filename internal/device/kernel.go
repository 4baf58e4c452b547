package device

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Kernel identifies an element-wise device kernel. The same implementation
// doubles as the host reference used for output validation.
type Kernel int

const (
	// KernelAddOne computes out[i] = in[i] + 1.
	KernelAddOne Kernel = iota
	// KernelScale computes out[i] = in[i] * 2.
	KernelScale
	// KernelSquare computes out[i] = in[i] * in[i].
	KernelSquare
)

// ParseKernel maps a config name to a kernel.
func ParseKernel(name string) (Kernel, error) {
	switch name {
	case "addone":
		return KernelAddOne, nil
	case "scale":
		return KernelScale, nil
	case "square":
		return KernelSquare, nil
	}
	return 0, fmt.Errorf("unknown kernel %q", name)
}

func (k Kernel) String() string {
	switch k {
	case KernelAddOne:
		return "addone"
	case KernelScale:
		return "scale"
	case KernelSquare:
		return "square"
	}
	return fmt.Sprintf("kernel(%d)", int(k))
}

// Apply runs the kernel in place on data.
func (k Kernel) Apply(data []float64) error {
	switch k {
	case KernelAddOne:
		floats.AddConst(1, data)
	case KernelScale:
		floats.Scale(2, data)
	case KernelSquare:
		floats.Mul(data, data)
	default:
		return fmt.Errorf("unknown kernel %d", int(k))
	}
	return nil
}
