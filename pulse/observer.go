package pulse

import (
	"pulsefut/loop"
	"pulsefut/task"
)

// Observer receives lifecycle notifications. Implementations must not call
// back into the Context.
type Observer interface {
	// LoopPolled is called after every driver step.
	LoopPolled(mode loop.Mode, status loop.Status)
	// Resolved is called once per future resolution; kind names the request.
	Resolved(kind string, err error)
	// Delivered is called for every stream item handed to the caller.
	Delivered(ev Event, err error)
}

type nopObserver struct{}

func (nopObserver) LoopPolled(loop.Mode, loop.Status) {}
func (nopObserver) Resolved(string, error)            {}
func (nopObserver) Delivered(Event, error)            {}

// Option configures a Context.
type Option func(*Context)

// WithObserver installs o.
func WithObserver(o Observer) Option {
	return func(c *Context) {
		if o != nil {
			c.obs = o
		}
	}
}

// pollDriver runs one driver step and reports it.
func (c *Context) pollDriver(w task.Waker) loop.Status {
	st := c.driver.PollOnce(w)
	c.obs.LoopPolled(c.driver.Mode(), st)
	return st
}
