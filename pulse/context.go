package pulse

import (
	"fmt"

	"pulsefut/loop"
	"pulsefut/native"
	"pulsefut/task"
)

// Context is a connection to the audio server together with the loop driver
// that makes its callbacks fire.
type Context struct {
	nc     native.Context
	driver loop.Driver
	obs    Observer

	// events is the queue of the current subscription, fed by the
	// persistent change-notification callback. Subscribe fails the one it
	// replaces.
	events *eventQueue
	closed bool
}

// New wraps an unconnected native context. The driver strategy is fixed for
// the Context's lifetime.
func New(nc native.Context, driver loop.Driver, opts ...Option) *Context {
	c := &Context{nc: nc, driver: driver, obs: nopObserver{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Driver returns the loop driver.
func (c *Context) Driver() loop.Driver { return c.driver }

// State returns the connection state observed right now.
func (c *Context) State() native.ContextState { return c.nc.State() }

// Connect asks the native context to connect to server, or to the default
// server when server is empty. A refusal at call time is returned directly;
// asynchronous progress is observed through the returned future.
func (c *Context) Connect(server string, flags native.ConnectFlags) (*ConnectFuture, error) {
	if c.closed {
		return nil, ErrDisconnected
	}
	if err := c.nc.Connect(server, flags); err != nil {
		return nil, fmt.Errorf("pulse: connect: %w", err)
	}
	return &ConnectFuture{c: c}, nil
}

// Disconnect terminates the connection immediately. Outstanding requests
// resolve to failure on their next poll. It is idempotent.
func (c *Context) Disconnect() {
	if c.closed {
		return
	}
	c.closed = true
	c.nc.SetSubscribeCallback(nil)
	c.events = nil
	c.nc.Disconnect()
}

// Close disconnects. It is meant for defer on every exit path.
func (c *Context) Close() error {
	c.Disconnect()
	return nil
}

// ConnectFuture resolves once the connection is ready, failed or terminated.
// Dropping it leaves the connect attempt running; the native context stays
// usable and is cleaned up by Disconnect.
type ConnectFuture struct {
	c    *Context
	done bool
}

func (f *ConnectFuture) Poll(w task.Waker) task.Poll[struct{}] {
	if f.done {
		panic("pulse: ConnectFuture polled after completion")
	}
	if f.c.pollDriver(w).Failed() {
		return f.resolve(ErrLoop)
	}
	switch f.c.nc.State() {
	case native.StateReady:
		return f.resolve(nil)
	case native.StateFailed, native.StateTerminated:
		return f.resolve(ErrConnection)
	}
	return task.Pending[struct{}]()
}

func (f *ConnectFuture) resolve(err error) task.Poll[struct{}] {
	f.done = true
	f.c.obs.Resolved("connect", err)
	if err != nil {
		return task.Fail[struct{}](err)
	}
	return task.Ready(struct{}{})
}
