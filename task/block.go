package task

import "context"

// signal is a Waker that records wake-ups in a one-slot channel.
type signal chan struct{}

func newSignal() signal { return make(signal, 1) }

func (s signal) Wake() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// Block polls f on the calling goroutine until it resolves or ctx is done.
//
// Block suits futures whose loop driver advances the event loop inside Poll
// (self-driven). Futures driven by a host loop must be run on that loop with
// Spawn or Await instead; Block would wait forever for a wake-up the host
// never delivers.
func Block[T any](ctx context.Context, f Future[T]) (T, error) {
	wake := newSignal()
	for {
		if p := f.Poll(wake); p.IsReady() {
			return p.Result()
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-wake:
		}
	}
}

// Recv polls s until it yields or ends. ok is false once the stream ended.
func Recv[T any](ctx context.Context, s Stream[T]) (item T, ok bool, err error) {
	wake := newSignal()
	for {
		n := s.PollNext(wake)
		switch {
		case n.IsEnd():
			return item, false, nil
		case !n.IsPending():
			item, err = n.Item()
			return item, true, err
		}
		select {
		case <-ctx.Done():
			return item, false, ctx.Err()
		case <-wake:
		}
	}
}
