package pulse

import (
	"pulsefut/native"
	"pulsefut/task"
)

// OperationFuture resolves with the result of one native request.
type OperationFuture[T any] struct {
	c    *Context
	kind string
	op   native.Operation
	cell *cell[T]
	done bool
}

func newOperation[T any](c *Context, kind string, op native.Operation, res *cell[T]) *OperationFuture[T] {
	return &OperationFuture[T]{c: c, kind: kind, op: op, cell: res}
}

// Kind names the request, e.g. "sink_info_list".
func (f *OperationFuture[T]) Kind() string { return f.kind }

// Cancel cancels the pending request; the next poll resolves to
// ErrCancelled.
func (f *OperationFuture[T]) Cancel() { f.op.Cancel() }

func (f *OperationFuture[T]) Poll(w task.Waker) task.Poll[T] {
	if f.done {
		panic("pulse: " + f.kind + " polled after completion")
	}
	if f.c.pollDriver(w).Failed() {
		f.op.Cancel()
		return f.fail(ErrLoop)
	}
	switch f.op.State() {
	case native.OperationRunning:
		return task.Pending[T]()
	case native.OperationCancelled:
		return f.fail(ErrCancelled)
	}
	if f.cell.failed {
		return f.fail(ErrOperation)
	}
	v, ok := f.cell.take()
	if !ok {
		return f.fail(ErrOperation)
	}
	f.done = true
	f.c.obs.Resolved(f.kind, nil)
	return task.Ready(v)
}

func (f *OperationFuture[T]) fail(err error) task.Poll[T] {
	f.done = true
	f.c.obs.Resolved(f.kind, err)
	return task.Fail[T](err)
}

// listOperation accumulates every delivered item in order. The end marker
// carries nothing; completion follows the operation's own state.
func listOperation[V, T any](c *Context, kind string, issue func(func(native.ListResult[V])) native.Operation, conv func(V) T) *OperationFuture[[]T] {
	res := seeded(make([]T, 0))
	op := issue(func(r native.ListResult[V]) {
		switch r.Kind {
		case native.ListItem:
			res.value = append(res.value, conv(r.Item))
		case native.ListError:
			res.fail()
		}
	})
	return newOperation(c, kind, op, res)
}

// optionalOperation resolves to nil when no item was delivered.
func optionalOperation[V, T any](c *Context, kind string, issue func(func(native.ListResult[V])) native.Operation, conv func(V) T) *OperationFuture[*T] {
	res := seeded[*T](nil)
	op := issue(func(r native.ListResult[V]) {
		switch r.Kind {
		case native.ListItem:
			v := conv(r.Item)
			res.value = &v
		case native.ListError:
			res.fail()
		}
	})
	return newOperation(c, kind, op, res)
}

// scalarOperation needs exactly one delivery; a request that completes
// without one fails.
func scalarOperation[V, T any](c *Context, kind string, issue func(func(V)) native.Operation, conv func(V) T) *OperationFuture[T] {
	res := empty[T]()
	op := issue(func(v V) {
		res.put(conv(v))
	})
	return newOperation(c, kind, op, res)
}

// mutation resolves to the pre-seeded unit value unless the callback
// reports failure.
func mutation(c *Context, kind string, issue func(func(bool)) native.Operation) *OperationFuture[struct{}] {
	res := seeded(struct{}{})
	op := issue(func(ok bool) {
		if !ok {
			res.fail()
		}
	})
	return newOperation(c, kind, op, res)
}
