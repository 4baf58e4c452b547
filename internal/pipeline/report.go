package pipeline

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/fxnlabs/pipeline-node/internal/metrics"
)

// RequestFailure names one failed request and which slot it occupied.
type RequestFailure struct {
	Request xid.ID
	Seq     int
	Slot    int
	Err     error
}

// RunReport is the observable output of one pipeline run.
type RunReport struct {
	mu sync.Mutex

	Slots    int
	Requests int
	Elements int
	Elapsed  time.Duration
	Failures []RequestFailure
	// FatalErr is set when the run aborted before draining the stream.
	FatalErr error
}

func newRunReport(slots int) *RunReport {
	return &RunReport{Slots: slots}
}

func (r *RunReport) recordDrained(req *Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests++
	r.Elements += req.Len()
	metrics.RequestsCompleted.Inc()
}

func (r *RunReport) recordFailure(slot int, req *Request, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := RequestFailure{Slot: slot, Err: err}
	if req != nil {
		f.Request = req.ID()
		f.Seq = req.Seq()
	}
	r.Failures = append(r.Failures, f)
}

func (r *RunReport) finish(elapsed time.Duration, fatal error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Elapsed = elapsed
	r.FatalErr = fatal
	metrics.RunElapsed.Set(elapsed.Seconds())
	metrics.RunThroughput.Set(r.throughputLocked())
}

// Throughput returns the run's rate in elements per second.
func (r *RunReport) Throughput() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.throughputLocked()
}

func (r *RunReport) throughputLocked() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Elements) / r.Elapsed.Seconds()
}

// Passed reports the run verdict: no fatal error and no failed request.
func (r *RunReport) Passed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.FatalErr == nil && len(r.Failures) == 0
}
