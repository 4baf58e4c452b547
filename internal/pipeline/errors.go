package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
)

// ErrResourceExhaustion marks a failure to allocate slot regions at
// startup. It is fatal before any phase runs.
var ErrResourceExhaustion = errors.New("cannot allocate slot regions")

// SubmissionError reports a phase start rejected synchronously. It is
// fatal for the owning request; no completion handle will arrive.
type SubmissionError struct {
	Phase   Phase
	Slot    int
	Request xid.ID
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submitting %s for request %s on slot %d: %v", e.Phase, e.Request, e.Slot, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// CompletionError reports a fault delivered by a submitted phase's
// completion handle. It aborts the run.
type CompletionError struct {
	Phase   Phase
	Slot    int
	Request xid.ID
	Err     error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s failed for request %s on slot %d: %v", e.Phase, e.Request, e.Slot, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// ValidationError reports drained output that does not match the
// reference. It fails the owning request without aborting the run.
type ValidationError struct {
	Slot    int
	Request xid.ID
	Index   int
	Want    float64
	Got     float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request %s on slot %d: output mismatch at element %d: want %g, got %g",
		e.Request, e.Slot, e.Index, e.Want, e.Got)
}
