package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countdown resolves after n pending polls, waking itself each time.
type countdown struct {
	n     int
	polls int
	val   string
	err   error
}

func (c *countdown) Poll(w Waker) Poll[string] {
	c.polls++
	if c.n > 0 {
		c.n--
		w.Wake()
		return Pending[string]()
	}
	if c.err != nil {
		return Fail[string](c.err)
	}
	return Ready(c.val)
}

// never stays pending without waking.
type never struct{}

func (never) Poll(Waker) Poll[int] { return Pending[int]() }

// items yields the given values, one per poll, then ends.
type items struct {
	vals []int
	err  error
}

func (s *items) PollNext(w Waker) Next[int] {
	if len(s.vals) == 0 {
		if s.err != nil {
			err := s.err
			s.err = nil
			return YieldErr[int](err)
		}
		return End[int]()
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return Yield(v)
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPollAndNext(t *testing.T) {
	p := Pending[int]()
	require.False(t, p.IsReady())

	v, err := Ready(7).Result()
	require.NoError(t, err)
	require.Equal(t, 7, v)

	boom := errors.New("boom")
	_, err = Fail[int](boom).Result()
	require.ErrorIs(t, err, boom)

	require.True(t, NextPending[int]().IsPending())
	require.True(t, End[int]().IsEnd())
	n := Yield(3)
	require.False(t, n.IsPending())
	require.False(t, n.IsEnd())
	v, err = n.Item()
	require.NoError(t, err)
	require.Equal(t, 3, v)
	_, err = YieldErr[int](boom).Item()
	require.ErrorIs(t, err, boom)

	var called int
	WakerFunc(func() { called++ }).Wake()
	require.Equal(t, 1, called)
}

func TestBlock(t *testing.T) {
	f := &countdown{n: 4, val: "ok"}
	v, err := Block(testCtx(t), f)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 5, f.polls)

	boom := errors.New("boom")
	_, err = Block(testCtx(t), &countdown{n: 1, err: boom})
	require.ErrorIs(t, err, boom)
}

func TestBlock_ContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Block[int](ctx, never{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecv(t *testing.T) {
	boom := errors.New("boom")
	s := &items{vals: []int{1, 2}, err: boom}
	ctx := testCtx(t)

	for _, want := range []int{1, 2} {
		v, ok, err := Recv[int](ctx, s)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, v)
	}
	_, ok, err := Recv[int](ctx, s)
	require.True(t, ok)
	require.ErrorIs(t, err, boom)
	_, ok, err = Recv[int](ctx, s)
	require.False(t, ok)
	require.NoError(t, err)
}

func TestAwait_OnQueue(t *testing.T) {
	q := NewQueue(0)
	f := &countdown{n: 3, val: "done"}
	v, err := Await[string](testCtx(t), q, f)
	require.NoError(t, err)
	require.Equal(t, "done", v)
	require.Equal(t, 4, f.polls)
	require.Zero(t, q.Len())
}

func TestAwait_ContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Await[int](ctx, NewQueue(0), never{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandle_WakeIsDeduplicated(t *testing.T) {
	q := NewQueue(0)
	var polls int
	h := &Handle{s: q, poll: func(Waker) bool { polls++; return false }}
	h.Wake()
	h.Wake()
	h.Wake()
	require.Equal(t, 1, q.Len())
	for _, fn := range q.take() {
		fn()
	}
	require.Equal(t, 1, polls)

	h.Cancel()
	require.True(t, h.Done())
	h.Wake()
	require.Zero(t, q.Len())
}

func TestSpawnStream_StopsWhenAsked(t *testing.T) {
	q := NewQueue(0)
	var got []int
	ended := false
	h := SpawnStream[int](q, &items{vals: []int{1, 2, 3, 4}}, func(v int, err error) bool {
		require.NoError(t, err)
		got = append(got, v)
		return v < 2
	}, func() { ended = true })

	require.NoError(t, q.RunUntil(testCtx(t), h.Done))
	require.Equal(t, []int{1, 2}, got)
	require.False(t, ended)
}

func TestSpawnStream_CallsEnd(t *testing.T) {
	q := NewQueue(0)
	var got []int
	ended := false
	SpawnStream[int](q, &items{vals: []int{5, 6}}, func(v int, _ error) bool {
		got = append(got, v)
		return true
	}, func() { ended = true })

	require.NoError(t, q.RunUntil(testCtx(t), func() bool { return ended }))
	require.Equal(t, []int{5, 6}, got)
}

func TestSubmit_FromAnotherGoroutine(t *testing.T) {
	q := NewQueue(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	fut := Submit[string](q, func() Future[string] { return &countdown{n: 5, val: "submitted"} })
	v, err := fut.Get()
	require.NoError(t, err)
	require.Equal(t, "submitted", v)

	boom := errors.New("boom")
	_, err = Submit[string](q, func() Future[string] { return &countdown{err: boom} }).Get()
	require.ErrorIs(t, err, boom)
}

func TestQueue_PacesBusyWork(t *testing.T) {
	q := NewQueue(10 * time.Millisecond)
	start := time.Now()
	_, err := Await[string](testCtx(t), q, &countdown{n: 3, val: "x"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
