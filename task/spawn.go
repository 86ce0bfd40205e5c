package task

import (
	"context"

	"github.com/jizhuozhi/go-future"
)

// Scheduler runs posted functions on the goroutine that owns it.
// Post must be safe to call from any goroutine.
type Scheduler interface {
	Post(fn func())
}

// Runner is a Scheduler whose loop is driven by the caller.
type Runner interface {
	Scheduler
	// RunUntil dispatches posted work until done reports true or ctx ends.
	RunUntil(ctx context.Context, done func() bool) error
}

// Handle is a spawned task. Its methods must be called on the scheduler's
// goroutine.
type Handle struct {
	s        Scheduler
	poll     func(Waker) bool
	queued   bool
	finished bool
}

// Wake queues the task for another poll unless it is already queued.
func (h *Handle) Wake() {
	if h.queued || h.finished {
		return
	}
	h.queued = true
	h.s.Post(h.run)
}

func (h *Handle) run() {
	h.queued = false
	if h.finished {
		return
	}
	if h.poll(h) {
		h.finished = true
	}
}

// Done reports whether the task completed or was cancelled.
func (h *Handle) Done() bool { return h.finished }

// Cancel stops polling. The underlying future is dropped.
func (h *Handle) Cancel() { h.finished = true }

// Spawn polls f on s until it resolves and then calls done.
func Spawn[T any](s Scheduler, f Future[T], done func(T, error)) *Handle {
	h := &Handle{s: s}
	h.poll = func(w Waker) bool {
		p := f.Poll(w)
		if !p.IsReady() {
			return false
		}
		if done != nil {
			done(p.Result())
		}
		return true
	}
	h.Wake()
	return h
}

// SpawnStream drains st on s, calling each for every item. The task stops
// when each returns false or the stream ends, in which case end is called.
func SpawnStream[T any](s Scheduler, st Stream[T], each func(T, error) bool, end func()) *Handle {
	h := &Handle{s: s}
	h.poll = func(w Waker) bool {
		for {
			n := st.PollNext(w)
			switch {
			case n.IsPending():
				return false
			case n.IsEnd():
				if end != nil {
					end()
				}
				return true
			}
			if !each(n.Item()) {
				return true
			}
		}
	}
	h.Wake()
	return h
}

// Await spawns f on r and runs r until f resolves.
func Await[T any](ctx context.Context, r Runner, f Future[T]) (T, error) {
	var (
		val      T
		err      error
		resolved bool
	)
	h := Spawn(r, f, func(v T, e error) {
		val, err, resolved = v, e, true
	})
	if rerr := r.RunUntil(ctx, func() bool { return resolved }); rerr != nil {
		h.Cancel()
		var zero T
		return zero, rerr
	}
	return val, err
}

// Submit builds a future on s's goroutine with mk, drives it there and
// returns a go-future Future that resolves with its result. It is the entry
// point for goroutines that do not own s.
func Submit[T any](s Scheduler, mk func() Future[T]) *future.Future[T] {
	p := future.NewPromise[T]()
	s.Post(func() {
		Spawn(s, mk(), p.Set)
	})
	return p.Future()
}
