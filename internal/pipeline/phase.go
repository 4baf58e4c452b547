package pipeline

import "fmt"

// Phase is one of the three asynchronous operations a slot cycles through.
type Phase int

const (
	PhaseTransferIn Phase = iota
	PhaseCompute
	PhaseTransferOut
)

func (p Phase) String() string {
	switch p {
	case PhaseTransferIn:
		return "transfer_in"
	case PhaseCompute:
		return "compute"
	case PhaseTransferOut:
		return "transfer_out"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}
