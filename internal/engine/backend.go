package engine

import (
	"context"

	"github.com/jizhuozhi/go-future"

	"pulsefut/internal/transport"
	"pulsefut/native"
	"pulsefut/pulse"
	"pulsefut/sink"
	"pulsefut/task"
)

// The methods below implement transport.Backend. Each one builds its future
// on the runner goroutine through task.Submit and waits for the go-future
// result.

var _ transport.Backend = (*Engine)(nil)

// failed resolves immediately with err.
type failed[T any] struct{ err error }

func (f failed[T]) Poll(task.Waker) task.Poll[T] { return task.Fail[T](f.err) }

// call runs mk against the live connection on the runner goroutine and
// waits for its result. When ctx ends first the request is cancelled on the
// runner, so it stops being polled and its go-future resolves.
func call[T any](ctx context.Context, e *Engine, mk func(*pulse.Introspector) *pulse.OperationFuture[T]) (T, error) {
	var op *pulse.OperationFuture[T]
	f := task.Submit(e.runner, func() task.Future[T] {
		pc, err := e.current()
		if err != nil {
			return failed[T]{err}
		}
		op = mk(pc.Introspect())
		return op
	})
	return wait(ctx, f, func() {
		e.runner.Post(func() {
			if op != nil {
				op.Cancel()
			}
		})
	})
}

// wait blocks on f until it resolves or ctx ends, in which case abandon is
// called before returning.
func wait[T any](ctx context.Context, f *future.Future[T], abandon func()) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := f.Get()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		abandon()
		var zero T
		return zero, ctx.Err()
	}
}

func (e *Engine) ListSinks(ctx context.Context) ([]pulse.SinkInfo, error) {
	return call(ctx, e, func(in *pulse.Introspector) *pulse.OperationFuture[[]pulse.SinkInfo] {
		return in.SinkInfoList()
	})
}

func (e *Engine) SinkByName(ctx context.Context, name string) (*pulse.SinkInfo, error) {
	return call(ctx, e, func(in *pulse.Introspector) *pulse.OperationFuture[*pulse.SinkInfo] {
		return in.SinkInfoByName(name)
	})
}

func (e *Engine) SinkByIndex(ctx context.Context, index uint32) (*pulse.SinkInfo, error) {
	return call(ctx, e, func(in *pulse.Introspector) *pulse.OperationFuture[*pulse.SinkInfo] {
		return in.SinkInfoByIndex(index)
	})
}

func (e *Engine) ServerInfo(ctx context.Context) (pulse.ServerInfo, error) {
	return call(ctx, e, func(in *pulse.Introspector) *pulse.OperationFuture[pulse.ServerInfo] {
		return in.ServerInfo()
	})
}

// SetSinkVolume sets every channel of the named sink to percent of the
// nominal volume.
func (e *Engine) SetSinkVolume(ctx context.Context, name string, percent float64) error {
	info, err := e.SinkByName(ctx, name)
	if err != nil {
		return err
	}
	if info == nil {
		return transport.ErrNotFound
	}
	vol := native.UniformVolumes(info.Volume.Channels, native.VolumeFromPercent(percent))
	_, err = call(ctx, e, func(in *pulse.Introspector) *pulse.OperationFuture[struct{}] {
		return in.SetSinkVolumeByName(name, vol)
	})
	return err
}

func (e *Engine) SetSinkMute(ctx context.Context, name string, mute bool) error {
	_, err := call(ctx, e, func(in *pulse.Introspector) *pulse.OperationFuture[struct{}] {
		return in.SetSinkMuteByName(name, mute)
	})
	return err
}

func (e *Engine) SetSinkPort(ctx context.Context, name, port string) error {
	_, err := call(ctx, e, func(in *pulse.Introspector) *pulse.OperationFuture[struct{}] {
		return in.SetSinkPortByName(name, port)
	})
	return err
}

func (e *Engine) Watch(fn func(sink.Record)) func() {
	return e.pipe.Subscribe(fn)
}
