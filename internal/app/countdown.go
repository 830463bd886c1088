package app

import (
	"sync"
	"time"
)

// CountdownState is the timer lifecycle: Idle until first bound, Running
// while counting, Stopped once halted or expired.
type CountdownState int

const (
	CountdownIdle CountdownState = iota
	CountdownRunning
	CountdownStopped
)

// Countdown is the per-question timer. One instance is logically bound to
// whichever question is current; Bind reparents it to a new index and
// starting value. It decrements once per interval, reports each decrement
// through onTick, and fires onExpire at most once per binding when the value
// reaches zero.
type Countdown struct {
	interval time.Duration
	onTick   func(index, remaining int)
	onExpire func(index int)

	mu        sync.Mutex
	state     CountdownState
	gen       uint64
	index     int
	remaining int
}

// NewCountdown builds an idle countdown. interval <= 0 defaults to one second.
func NewCountdown(interval time.Duration, onTick func(index, remaining int), onExpire func(index int)) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval, onTick: onTick, onExpire: onExpire}
}

// Bind points the countdown at question index with from seconds on the clock
// and starts it. Any previous binding is stopped first; advancing the
// generation guarantees a stale loop can neither tick nor fire. Callbacks
// never run on the caller's goroutine.
func (c *Countdown) Bind(index, from int) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.index = index
	c.remaining = from
	if from <= 0 {
		// Already out of time; expire without spinning up a loop. The
		// callback still runs off the caller's goroutine: onExpire takes the
		// same lock callers of Bind tend to hold.
		c.state = CountdownStopped
		c.mu.Unlock()
		go c.onExpire(index)
		return
	}
	c.state = CountdownRunning
	c.mu.Unlock()

	go c.run(gen, index)
}

// Stop halts the countdown. Safe to call from any state and more than once;
// a stopped countdown never ticks again and never fires expiry.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.state == CountdownRunning {
		c.state = CountdownStopped
		c.gen++
	}
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Countdown) State() CountdownState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the seconds left on the current binding.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) run(gen uint64, index int) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.gen != gen || c.state != CountdownRunning {
			c.mu.Unlock()
			return
		}
		c.remaining--
		remaining := c.remaining
		if remaining <= 0 {
			c.remaining = 0
			remaining = 0
			c.state = CountdownStopped
		}
		c.mu.Unlock()

		// Callbacks run outside the countdown lock so the session can stop
		// the countdown while holding its own mutex without deadlocking.
		c.onTick(index, remaining)
		if remaining == 0 {
			c.onExpire(index)
			return
		}
	}
}
