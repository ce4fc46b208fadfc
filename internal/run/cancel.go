package run

import "sync/atomic"

// Canceller is the shared cooperative cancellation flag for one run.
//
// Cancellation is observed at defined checkpoints: before each page write in
// the split phase and before each compression dispatch. Work already in
// flight is allowed to finish, which bounds cancellation latency to one
// external-process runtime.
type Canceller struct {
	flag atomic.Bool
}

// NewCanceller returns a fresh, unset canceller.
func NewCanceller() *Canceller {
	return &Canceller{}
}

// Cancel sets the flag. Idempotent and safe from any goroutine.
func (c *Canceller) Cancel() {
	c.flag.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (c *Canceller) Cancelled() bool {
	return c.flag.Load()
}
