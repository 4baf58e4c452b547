package pipeline

import "github.com/rs/xid"

// Request is one unit of work: a chunk of the input stream bound to
// exactly one slot for its entire lifetime. It is destroyed when the
// drain finishes consuming it and the slot returns to Free.
type Request struct {
	id  xid.ID
	seq int
	n   int
}

// NewRequest creates a request for stream ordinal seq carrying n
// elements. The orchestrator creates requests itself; the constructor is
// exported for validators exercised outside a running pipeline.
func NewRequest(seq, n int) *Request {
	return &Request{id: xid.New(), seq: seq, n: n}
}

// ID returns the request's unique identity, used in errors and logs.
func (r *Request) ID() xid.ID {
	return r.id
}

// Seq returns the request's ordinal in the input stream.
func (r *Request) Seq() int {
	return r.seq
}

// Len returns the number of valid elements the request carries. The
// final chunk of a stream may be shorter than the slot's regions.
func (r *Request) Len() int {
	return r.n
}
