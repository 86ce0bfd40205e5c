// Package loop provides the drivers that make forward progress on the
// wrapped library's event loop. Every future and stream calls PollOnce at
// the start of its poll and only then inspects its own state.
package loop

import (
	"fmt"

	"pulsefut/native"
	"pulsefut/task"
)

// Status is the outcome of Driver.PollOnce.
type Status int

const (
	StatusSuccess Status = iota
	StatusQuit
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusQuit:
		return "quit"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Failed reports whether s ends every future sharing the driver.
func (s Status) Failed() bool { return s != StatusSuccess }

// Mode names a driving strategy.
type Mode string

const (
	ModeSelf Mode = "self"
	ModeHost Mode = "host"
)

// Driver advances the event loop, or arranges for w to be woken by it.
type Driver interface {
	PollOnce(w task.Waker) Status
	Mode() Mode
}

// SelfDriven owns a Mainloop and iterates it without blocking on every poll.
// Once the loop quits or fails the driver stays failed.
type SelfDriven struct {
	ml     native.Mainloop
	failed Status
}

func NewSelfDriven(ml native.Mainloop) *SelfDriven {
	return &SelfDriven{ml: ml}
}

func (d *SelfDriven) PollOnce(w task.Waker) Status {
	w.Wake()
	if d.failed.Failed() {
		return d.failed
	}
	switch d.ml.Iterate(false) {
	case native.IterateSuccess:
		return StatusSuccess
	case native.IterateQuit:
		d.failed = StatusQuit
	default:
		d.failed = StatusError
	}
	return d.failed
}

func (d *SelfDriven) Mode() Mode { return ModeSelf }

// Mainloop returns the owned loop.
func (d *SelfDriven) Mainloop() native.Mainloop { return d.ml }

// HostDriven integrates into an externally owned loop. It never advances the
// loop; it re-wakes the task at idle priority so pending host work, including
// the library's own callbacks, runs first. Host loop failure is the host's
// concern, so PollOnce always succeeds.
type HostDriven struct {
	host native.HostLoop
}

func NewHostDriven(h native.HostLoop) *HostDriven {
	return &HostDriven{host: h}
}

func (d *HostDriven) PollOnce(w task.Waker) Status {
	d.host.DeferIdle(w.Wake)
	return StatusSuccess
}

func (d *HostDriven) Mode() Mode { return ModeHost }

// Deps carries what the driver factories may need.
type Deps struct {
	Mainloop native.Mainloop
	Host     native.HostLoop
}

// Factory builds a Driver from Deps.
type Factory func(Deps) (Driver, error)

var registry = map[Mode]Factory{
	ModeSelf: func(d Deps) (Driver, error) {
		if d.Mainloop == nil {
			return nil, fmt.Errorf("loop: %s driver needs a mainloop", ModeSelf)
		}
		return NewSelfDriven(d.Mainloop), nil
	},
	ModeHost: func(d Deps) (Driver, error) {
		if d.Host == nil {
			return nil, fmt.Errorf("loop: %s driver needs a host loop", ModeHost)
		}
		return NewHostDriven(d.Host), nil
	},
}

// New returns the driver for mode. The choice is fixed for the driver's
// lifetime.
func New(mode Mode, deps Deps) (Driver, error) {
	if f, ok := registry[mode]; ok {
		return f(deps)
	}
	return nil, fmt.Errorf("loop: unsupported driver %q", mode)
}

// ParseMode validates a mode name; empty selects ModeSelf.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSelf:
		return ModeSelf, nil
	case ModeHost:
		return ModeHost, nil
	}
	return "", fmt.Errorf("loop: unsupported driver %q", s)
}
