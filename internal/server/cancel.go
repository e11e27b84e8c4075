package server

import "sync"

// Canceller is a single-shot, multi-observer wake primitive. Cancel is
// idempotent and safe from any goroutine, including signal handlers; Done
// is usable in a select. Firing after the server already stopped is a
// no-op.
type Canceller struct {
	once sync.Once
	done chan struct{}
}

// NewCanceller returns an unfired canceller.
func NewCanceller() *Canceller {
	return &Canceller{done: make(chan struct{})}
}

// Cancel fires the signal. Subsequent calls do nothing.
func (c *Canceller) Cancel() {
	c.once.Do(func() { close(c.done) })
}

// Done returns a channel closed once Cancel has been called.
func (c *Canceller) Done() <-chan struct{} {
	return c.done
}

// Cancelled reports whether the signal has fired without blocking.
func (c *Canceller) Cancelled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
