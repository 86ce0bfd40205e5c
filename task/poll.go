package task

// Waker asks the executor to poll a task again.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Poll is the result of polling a Future.
type Poll[T any] struct {
	ready bool
	value T
	err   error
}

// Pending reports that the future cannot complete yet.
func Pending[T any]() Poll[T] { return Poll[T]{} }

// Ready resolves successfully with v.
func Ready[T any](v T) Poll[T] { return Poll[T]{ready: true, value: v} }

// Fail resolves with err.
func Fail[T any](err error) Poll[T] { return Poll[T]{ready: true, err: err} }

func (p Poll[T]) IsReady() bool { return p.ready }

// Result returns the resolution. It is meaningful only when IsReady.
func (p Poll[T]) Result() (T, error) { return p.value, p.err }

// Future is a single-resolution asynchronous value.
type Future[T any] interface {
	Poll(w Waker) Poll[T]
}

type nextState uint8

const (
	nextPending nextState = iota
	nextItem
	nextEnd
)

// Next is the result of polling a Stream.
type Next[T any] struct {
	state nextState
	item  T
	err   error
}

// NextPending reports that no item is available yet.
func NextPending[T any]() Next[T] { return Next[T]{} }

// Yield produces an item.
func Yield[T any](v T) Next[T] { return Next[T]{state: nextItem, item: v} }

// YieldErr produces a failed item.
func YieldErr[T any](err error) Next[T] { return Next[T]{state: nextItem, err: err} }

// End reports that the stream is exhausted.
func End[T any]() Next[T] { return Next[T]{state: nextEnd} }

func (n Next[T]) IsPending() bool { return n.state == nextPending }
func (n Next[T]) IsEnd() bool     { return n.state == nextEnd }

// Item returns the produced item. It is meaningful only for Yield/YieldErr.
func (n Next[T]) Item() (T, error) { return n.item, n.err }

// Stream is a sequence of values produced asynchronously.
type Stream[T any] interface {
	PollNext(w Waker) Next[T]
}
