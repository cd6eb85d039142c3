package wschat

import (
	"sync"
	"sync/atomic"
)

// Canceler lets any loop of a session ask the other loops to stop.
//
// Firing only requests a cooperative wakeup: every blocking wait of the loops
// selects on Done, or is bounded by a deadline set once Done is closed.
type Canceler struct {
	once    sync.Once
	done    chan struct{}
	fired   atomic.Bool
	pending atomic.Int32
}

// NewCanceler creates a canceler shared by the given number of loops.
func NewCanceler(loops int) *Canceler {
	c := &Canceler{done: make(chan struct{})}
	c.pending.Store(int32(loops))
	return c
}

// Fire wakes every loop waiting on Done.
// It reports whether this call was the one that fired.
// Once all loops have acknowledged, there is nobody left to wake and Fire is a no-op.
func (c *Canceler) Fire() bool {
	if c.pending.Load() <= 0 {
		return false
	}
	fired := false
	c.once.Do(func() {
		c.fired.Store(true)
		close(c.done)
		fired = true
	})
	return fired
}

// Fired reports whether Fire has taken effect.
func (c *Canceler) Fired() bool { return c.fired.Load() }

// Done is closed when the canceler fires.
func (c *Canceler) Done() <-chan struct{} { return c.done }

// Ack must be called by every loop once it has stopped waiting.
func (c *Canceler) Ack() {
	c.pending.Add(-1)
}

// Awake reports whether every loop has acknowledged.
func (c *Canceler) Awake() bool { return c.pending.Load() <= 0 }
