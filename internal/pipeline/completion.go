package pipeline

import "sync"

// Completion is a one-shot signal that a submitted phase has finished.
// It is produced by a StageExecutor submission and observed by exactly
// one waiter; the channel is buffered so signalling never blocks the
// device side.
type Completion struct {
	done chan error
	once sync.Once
}

func newCompletion() *Completion {
	return &Completion{done: make(chan error, 1)}
}

// signal delivers the phase result. Later calls are ignored.
func (c *Completion) signal(err error) {
	c.once.Do(func() {
		c.done <- err
	})
}

// Done returns the channel the waiter receives the phase result on.
// A nil value means the phase finished cleanly.
func (c *Completion) Done() <-chan error {
	return c.done
}
