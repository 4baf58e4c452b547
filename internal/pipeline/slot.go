package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/fxnlabs/pipeline-node/internal/metrics"
)

// SlotState tags where a slot currently is in its cycle.
type SlotState int32

const (
	// SlotFree means the slot is owned by the pool and may be acquired.
	SlotFree SlotState = iota
	// SlotFilling means the producer owns the slot's host region and a
	// transfer-in may be in flight.
	SlotFilling
	// SlotComputing means a compute phase is in flight on the device region.
	SlotComputing
	// SlotDraining means a transfer-out is in flight.
	SlotDraining
	// SlotReady means the result sits in the host region awaiting the drain.
	SlotReady
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotFilling:
		return "filling"
	case SlotComputing:
		return "computing"
	case SlotDraining:
		return "draining"
	case SlotReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Slot is one of the pool's N buffering units. It cycles through
// Free→Filling→Computing→Draining→Ready→Free, carries a host-addressable
// and a device-addressable region, and is bound to at most one request
// at a time. The state tag is atomic so observers (metrics, tests) can
// read it without taking ownership.
type Slot struct {
	index int
	state atomic.Int32
	host  []float64
	dev   []float64
	req   *Request
}

// Index returns the slot's identity, 0..N-1.
func (s *Slot) Index() int {
	return s.index
}

// State returns the slot's current state tag.
func (s *Slot) State() SlotState {
	return SlotState(s.state.Load())
}

// Request returns the request currently bound to the slot, nil when Free.
func (s *Slot) Request() *Request {
	return s.req
}

// transition moves the slot from one state to the next. A failed swap
// means two owners raced on the slot, which the pipeline's exclusive
// ownership discipline is supposed to rule out.
func (s *Slot) transition(from, to SlotState) error {
	if !s.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("slot %d: cannot enter %s, state is %s not %s",
			s.index, to, s.State(), from)
	}
	metrics.SlotState.WithLabelValues(from.String()).Dec()
	metrics.SlotState.WithLabelValues(to.String()).Inc()
	return nil
}

// forceFree resets the slot to Free from any state. Only the pool's
// reclaim path uses it, after the owning request was aborted.
func (s *Slot) forceFree() {
	old := SlotState(s.state.Swap(int32(SlotFree)))
	if old == SlotFree {
		return
	}
	metrics.SlotState.WithLabelValues(old.String()).Dec()
	metrics.SlotState.WithLabelValues(SlotFree.String()).Inc()
}

func (s *Slot) bind(req *Request) {
	s.req = req
}

func (s *Slot) unbind() {
	s.req = nil
}
