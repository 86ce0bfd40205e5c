// Package sim is an in-process audio server that speaks the native callback
// API. It backs the tests and lets the daemon run without a sound server.
//
// Everything except Mainloop.Post and HostLoop.Post/DeferIdle must be used
// from the goroutine driving the loop.
package sim

import (
	"context"
	"sync"
	"time"

	"pulsefut/native"
)

// Dispatcher queues callbacks for delivery by an event loop.
type Dispatcher interface {
	Post(fn func())
}

// Mainloop is a self-owned loop. Each Iterate call dispatches the callbacks
// that were queued before it started; callbacks queued while dispatching wait
// for the next iteration.
type Mainloop struct {
	mu      sync.Mutex
	pending []func()
	notify  chan struct{}
	result  native.IterateResult
	iters   int
}

func NewMainloop() *Mainloop {
	return &Mainloop{notify: make(chan struct{}, 1)}
}

func (m *Mainloop) Post(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Quit makes every following iteration report IterateQuit.
func (m *Mainloop) Quit() {
	m.mu.Lock()
	m.result = native.IterateQuit
	m.mu.Unlock()
}

// Fail makes every following iteration report IterateErr.
func (m *Mainloop) Fail() {
	m.mu.Lock()
	m.result = native.IterateErr
	m.mu.Unlock()
}

// Iterations returns how many times Iterate ran.
func (m *Mainloop) Iterations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.iters
}

func (m *Mainloop) Iterate(block bool) native.IterateResult {
	m.mu.Lock()
	m.iters++
	if m.result != native.IterateSuccess {
		r := m.result
		m.mu.Unlock()
		return r
	}
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(batch) == 0 && block {
		<-m.notify
		return m.Iterate(false)
	}
	for _, fn := range batch {
		fn()
	}
	return native.IterateSuccess
}

// HostLoop is an application-owned loop with two priorities. Normal work,
// which includes the simulated server's callbacks, always runs before idle
// work. It implements native.HostLoop and task.Runner.
type HostLoop struct {
	// IdlePace delays the next dispatch after a batch of idle work, so tasks
	// that keep re-arming idle wake-ups do not spin the loop.
	IdlePace time.Duration

	mu     sync.Mutex
	normal []func()
	idle   []func()
	notify chan struct{}
}

func NewHostLoop() *HostLoop {
	return &HostLoop{notify: make(chan struct{}, 1)}
}

func (h *HostLoop) Post(fn func()) {
	h.mu.Lock()
	h.normal = append(h.normal, fn)
	h.mu.Unlock()
	h.signal()
}

func (h *HostLoop) DeferIdle(fn func()) {
	h.mu.Lock()
	h.idle = append(h.idle, fn)
	h.mu.Unlock()
	h.signal()
}

func (h *HostLoop) signal() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Step dispatches one batch: all queued normal work if there is any,
// otherwise all queued idle work. It reports whether anything ran.
func (h *HostLoop) Step() bool {
	ran, _ := h.step()
	return ran
}

func (h *HostLoop) step() (ran, idle bool) {
	h.mu.Lock()
	batch := h.normal
	if len(batch) > 0 {
		h.normal = nil
	} else {
		batch = h.idle
		h.idle = nil
		idle = true
	}
	h.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch) > 0, idle
}

func (h *HostLoop) RunUntil(ctx context.Context, done func() bool) error {
	for {
		if done != nil && done() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ran, idle := h.step()
		if ran {
			if idle && h.IdlePace > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(h.IdlePace):
				}
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.notify:
		}
	}
}

// Run dispatches until ctx ends.
func (h *HostLoop) Run(ctx context.Context) error {
	return h.RunUntil(ctx, nil)
}
