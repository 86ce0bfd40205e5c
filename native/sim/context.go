package sim

import (
	"errors"

	"pulsefut/native"
)

// Context is a simulated client connection bound to one Dispatcher.
type Context struct {
	srv   *Server
	d     Dispatcher
	name  string
	props native.Proplist

	state     native.ContextState
	mask      native.InterestMask
	subscribe func(native.Facility, native.EventOperation, uint32)
	ops       map[*operation]struct{}
	view      view
}

// NewContext creates an unconnected client whose callbacks are delivered
// through d.
func (s *Server) NewContext(d Dispatcher, name string, props native.Proplist) *Context {
	p := make(native.Proplist, len(props))
	for k, v := range props {
		p[k] = v
	}
	return &Context{
		srv:   s,
		d:     d,
		name:  name,
		props: p,
		ops:   make(map[*operation]struct{}),
	}
}

// Name returns the client name.
func (c *Context) Name() string { return c.name }

// Property returns a client property.
func (c *Context) Property(key string) string { return c.props[key] }

func (c *Context) Connect(server string, _ native.ConnectFlags) error {
	if c.state != native.StateUnconnected {
		return errors.New("sim: context already connected")
	}
	c.state = native.StateConnecting
	reachable := server == "" || c.srv.address == "" || server == c.srv.address
	if !reachable || c.srv.Faults.RefuseConnect {
		c.advance(native.StateFailed)
		return nil
	}
	c.advance(native.StateAuthorizing, native.StateSettingName, native.StateReady)
	return nil
}

// advance applies one state per loop iteration.
func (c *Context) advance(steps ...native.ContextState) {
	if len(steps) == 0 {
		return
	}
	c.d.Post(func() {
		if c.state == native.StateTerminated || c.state == native.StateFailed {
			return
		}
		c.state = steps[0]
		if c.state == native.StateReady {
			c.srv.attach(c)
		}
		c.advance(steps[1:]...)
	})
}

func (c *Context) Disconnect() {
	if c.state == native.StateTerminated {
		return
	}
	c.state = native.StateTerminated
	for o := range c.ops {
		o.state = native.OperationCancelled
	}
	clear(c.ops)
	c.srv.detach(c)
	c.mask = native.MaskNull
	c.subscribe = nil
}

func (c *Context) State() native.ContextState { return c.state }

func (c *Context) Introspect() native.Introspector { return &introspector{c: c} }

func (c *Context) SetSubscribeCallback(cb func(native.Facility, native.EventOperation, uint32)) {
	c.subscribe = cb
}

func (c *Context) Subscribe(mask native.InterestMask, cb func(bool)) native.Operation {
	o := c.begin()
	c.run(o, func() {
		ok := !c.srv.Faults.RejectSubscribe
		if ok {
			c.mask = mask
		}
		if cb != nil {
			cb(ok)
		}
	})
	return o
}

func (c *Context) notify(f native.Facility, op native.EventOperation, index uint32) {
	c.d.Post(func() {
		if c.state == native.StateReady && c.subscribe != nil {
			c.subscribe(f, op, index)
		}
	})
}

// begin registers a new request. Requests on a context that is not ready
// are cancelled straight away.
func (c *Context) begin() *operation {
	o := &operation{c: c}
	if c.state != native.StateReady {
		o.state = native.OperationCancelled
		return o
	}
	c.ops[o] = struct{}{}
	return o
}

// run delivers fn on the next iteration and completes o.
func (c *Context) run(o *operation, fn func()) {
	if !o.running() || c.srv.Faults.Stall {
		return
	}
	c.d.Post(func() {
		if !o.running() {
			return
		}
		fn()
		o.finish()
	})
}

// list delivers one item per iteration, then the end marker.
func (c *Context) list(o *operation, sinks []*sink, fail bool, cb func(native.ListResult[*native.SinkInfo])) {
	if !o.running() || c.srv.Faults.Stall {
		return
	}
	i := 0
	var step func()
	step = func() {
		if !o.running() {
			return
		}
		switch {
		case fail:
			cb(native.ListResult[*native.SinkInfo]{Kind: native.ListError})
		case i < len(sinks):
			cb(native.ListResult[*native.SinkInfo]{Kind: native.ListItem, Item: c.view.sink(sinks[i])})
			c.view.invalidate()
			i++
			c.d.Post(step)
			return
		default:
			cb(native.ListResult[*native.SinkInfo]{Kind: native.ListEnd})
		}
		o.finish()
	}
	c.d.Post(step)
}

type operation struct {
	c     *Context
	state native.OperationState
}

func (o *operation) State() native.OperationState { return o.state }

func (o *operation) Cancel() {
	if o.running() {
		o.state = native.OperationCancelled
		delete(o.c.ops, o)
	}
}

func (o *operation) running() bool { return o.state == native.OperationRunning }

func (o *operation) finish() {
	if o.running() {
		o.state = native.OperationDone
		delete(o.c.ops, o)
	}
}
