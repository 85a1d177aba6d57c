package activity

import "sync/atomic"

// Counter is a decay counter in [0, max]. Bump and Decay are single
// read-modify-write operations, so one goroutine may bump while another
// decays without losing updates.
type Counter struct {
	v atomic.Int32
}

// Bump adds inc, saturating at max.
func (c *Counter) Bump(inc, max int32) {
	for {
		old := c.v.Load()
		if old >= max {
			return
		}
		next := min(old+inc, max)
		if c.v.CompareAndSwap(old, next) {
			return
		}
	}
}

// Decay subtracts one unless the counter is already zero.
func (c *Counter) Decay() {
	for {
		old := c.v.Load()
		if old <= 0 {
			return
		}
		if c.v.CompareAndSwap(old, old-1) {
			return
		}
	}
}

// Set stores v directly.
func (c *Counter) Set(v int32) { c.v.Store(v) }

// Load returns the current value.
func (c *Counter) Load() int32 { return c.v.Load() }
