package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"pulsefut/internal/config"
	"pulsefut/internal/telemetry"
	"pulsefut/native"
	"pulsefut/pulse"
	"pulsefut/sink"
	"pulsefut/task"
)

type captureSink struct {
	pushed []sink.Record
	fail   error
	closed int
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Push(r sink.Record) error {
	c.pushed = append(c.pushed, r)
	return c.fail
}
func (c *captureSink) Close() error { c.closed++; return nil }

// events replays a fixed list of stream items.
type events struct {
	items []task.Next[pulse.Event]
}

func (e *events) PollNext(task.Waker) task.Next[pulse.Event] {
	if len(e.items) == 0 {
		return task.End[pulse.Event]()
	}
	n := e.items[0]
	e.items = e.items[1:]
	return n
}

func ev(f native.Facility, op native.EventOperation, idx uint32) task.Next[pulse.Event] {
	return task.Yield(pulse.Event{Facility: f, Operation: op, Index: idx})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunner_ForwardsToSinksAndWatchers(t *testing.T) {
	m := telemetry.New()
	r := NewRunner("inst-1", m)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	a, b := &captureSink{}, &captureSink{fail: errors.New("disk full")}
	r.AddSink("a", a)
	r.AddSink("b", b)
	require.Equal(t, []string{"a", "b"}, r.Sinks())

	var watched []sink.Record
	stop := r.Subscribe(func(rec sink.Record) { watched = append(watched, rec) })
	require.Equal(t, 1, r.Watchers())

	q := task.NewQueue(0)
	var endErr error
	ended := false
	src := &events{items: []task.Next[pulse.Event]{
		ev(native.FacilitySink, native.EventNew, 4),
		ev(native.FacilityServer, native.EventChanged, 0),
	}}
	r.Start(q, src, func(err error) { ended, endErr = true, err })
	require.NoError(t, q.RunUntil(testCtx(t), func() bool { return ended }))
	require.NoError(t, endErr)

	require.Len(t, a.pushed, 2)
	require.Len(t, b.pushed, 2, "a failing sink keeps receiving")
	require.Equal(t, uint64(1), a.pushed[0].Seq)
	require.Equal(t, "inst-1", a.pushed[0].Instance)
	require.Equal(t, fixed, a.pushed[0].Time)
	require.Equal(t, "server/0", a.pushed[1].Key())
	require.Equal(t, a.pushed, watched)

	require.Equal(t, 2.0, testutil.ToFloat64(m.SinkPushes.WithLabelValues("a", "ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.SinkPushes.WithLabelValues("b", "other")))

	stop()
	require.Zero(t, r.Watchers())
	require.NoError(t, r.Close())
	require.Equal(t, 1, a.closed)
}

func TestRunner_StopsOnStreamError(t *testing.T) {
	r := NewRunner("", nil)
	a := &captureSink{}
	r.AddSink("a", a)

	q := task.NewQueue(0)
	var endErr error
	ended := false
	src := &events{items: []task.Next[pulse.Event]{
		ev(native.FacilitySink, native.EventChanged, 1),
		task.YieldErr[pulse.Event](pulse.ErrSubscription),
		ev(native.FacilitySink, native.EventChanged, 2),
	}}
	h := r.Start(q, src, func(err error) { ended, endErr = true, err })
	require.NoError(t, q.RunUntil(testCtx(t), func() bool { return ended }))
	require.ErrorIs(t, endErr, pulse.ErrSubscription)
	require.True(t, h.Done())
	require.Len(t, a.pushed, 1)
}

func TestCompile(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer
	r, err := Compile(cfg, Options{Instance: "x", Stdout: &out})
	require.NoError(t, err)
	require.Equal(t, []string{"stdout"}, r.Sinks())

	require.NoError(t, r.pushEvent(pulse.Event{Facility: native.FacilitySink, Operation: native.EventNew, Index: 1}))
	require.Contains(t, out.String(), `"instance":"x"`)
	require.NoError(t, r.Close())
}

func TestCompile_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Sinks = []string{"stdout", "pigeon"}
	_, err := Compile(cfg, Options{Stdout: &bytes.Buffer{}})
	require.ErrorContains(t, err, "unknown sink")

	cfg.Sinks = []string{"kafka"}
	cfg.SinkConfigs.Kafka.Brokers = nil
	_, err = Compile(cfg, Options{})
	require.ErrorContains(t, err, "brokers and topic are required")
}
