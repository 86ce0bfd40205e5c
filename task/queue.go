package task

import (
	"context"
	"sync"
	"time"
)

// Queue is a FIFO Runner for self-driven loops. Tasks driven by a
// self-driven loop wake themselves on every poll, so pace throttles how
// often a still-busy queue is drained.
type Queue struct {
	pace time.Duration

	mu     sync.Mutex
	fns    []func()
	notify chan struct{}
}

func NewQueue(pace time.Duration) *Queue {
	return &Queue{pace: pace, notify: make(chan struct{}, 1)}
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.fns
	q.fns = nil
	return batch
}

// Len returns the number of queued functions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

func (q *Queue) RunUntil(ctx context.Context, done func() bool) error {
	for {
		if done != nil && done() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := q.take()
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.notify:
			}
			continue
		}
		for _, fn := range batch {
			fn()
		}
		if q.pace > 0 && q.Len() > 0 && (done == nil || !done()) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.pace):
			}
		}
	}
}

// Run dispatches until ctx ends.
func (q *Queue) Run(ctx context.Context) error {
	return q.RunUntil(ctx, nil)
}
