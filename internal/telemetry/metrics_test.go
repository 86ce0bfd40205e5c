package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"pulsefut/loop"
	"pulsefut/native"
	"pulsefut/native/sim"
	"pulsefut/pulse"
	"pulsefut/task"
)

func TestResult(t *testing.T) {
	require.Equal(t, "ok", Result(nil))
	require.Equal(t, "loop", Result(pulse.ErrLoop))
	require.Equal(t, "cancelled", Result(fmt.Errorf("wrapped: %w", pulse.ErrCancelled)))
	require.Equal(t, "other", Result(context.Canceled))
}

func TestMetrics_ObservesContext(t *testing.T) {
	m := New()
	srv := sim.NewServer("")
	srv.AddSink(sim.Sink{Name: "speakers"})

	ml := sim.NewMainloop()
	c := pulse.New(srv.NewContext(ml, "metrics-test", nil), loop.NewSelfDriven(ml), pulse.WithObserver(m))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f, err := c.Connect("", native.FlagNoFlags)
	require.NoError(t, err)
	_, err = task.Block(ctx, f)
	require.NoError(t, err)

	sub := c.Subscribe(native.MaskSink)
	_, err = task.Block(ctx, c.Introspect().SetSinkMuteByName("speakers", true))
	require.NoError(t, err)
	_, err = task.Block(ctx, c.Introspect().SetSinkMuteByName("absent", true))
	require.ErrorIs(t, err, pulse.ErrOperation)

	_, ok, err := task.Recv(ctx, sub)
	require.True(t, ok)
	require.NoError(t, err)

	ml.Quit()
	_, _, err = task.Recv(ctx, sub)
	require.ErrorIs(t, err, pulse.ErrLoop)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("connect", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("set_sink_mute", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("set_sink_mute", "operation")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("sink", "change")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StreamEnds.WithLabelValues("loop")))
	require.Positive(t, testutil.ToFloat64(m.LoopPolls.WithLabelValues("self", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LoopPolls.WithLabelValues("self", "quit")))
}

func TestExpose(t *testing.T) {
	m := New()
	m.ObserveRPC("ListSinks", time.Now())
	m.Connected.Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, err := Expose(ctx, 0, m)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `pulsefut_rpc_duration_seconds_count{method="ListSinks"} 1`)
	require.Contains(t, string(body), "pulsefut_connected 1")
}
