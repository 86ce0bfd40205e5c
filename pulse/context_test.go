package pulse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pulsefut/loop"
	"pulsefut/native"
	"pulsefut/native/sim"
)

func TestConnect_ReachesReady(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	f, err := h.ctx.Connect("", native.FlagNoAutoSpawn)
	require.NoError(t, err)

	_, err, polls := drive(t, f)
	require.NoError(t, err)
	require.Equal(t, 3, polls)
	require.Equal(t, native.StateReady, h.ctx.State())
	require.Equal(t, 1, h.srv.Clients())
}

func TestConnect_RefusedServerFails(t *testing.T) {
	srv := seededServer()
	srv.Faults.RefuseConnect = true
	h := newSelfHarness(t, srv)
	f, err := h.ctx.Connect("", native.FlagNoFlags)
	require.NoError(t, err)

	_, err, _ = drive(t, f)
	require.ErrorIs(t, err, ErrConnection)
	require.Equal(t, native.StateFailed, h.ctx.State())
}

func TestConnect_UnknownServerFails(t *testing.T) {
	srv := sim.NewServer("unix:/run/pulse/native")
	h := newSelfHarness(t, srv)
	f, err := h.ctx.Connect("tcp:elsewhere", native.FlagNoFlags)
	require.NoError(t, err)

	_, err, _ = drive(t, f)
	require.ErrorIs(t, err, ErrConnection)
}

func TestConnect_SecondCallRefused(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	h.connect(t)
	_, err := h.ctx.Connect("", native.FlagNoFlags)
	require.Error(t, err)
}

func TestConnect_LoopQuitFailsImmediately(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	f, err := h.ctx.Connect("", native.FlagNoFlags)
	require.NoError(t, err)
	h.ml.Quit()

	_, err, polls := drive(t, f)
	require.ErrorIs(t, err, ErrLoop)
	require.Equal(t, 1, polls)
}

func TestConnect_DisconnectedWhileConnecting(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	f, err := h.ctx.Connect("", native.FlagNoFlags)
	require.NoError(t, err)
	require.False(t, f.Poll(&countingWaker{}).IsReady())

	h.ctx.Disconnect()
	_, err, _ = drive(t, f)
	require.ErrorIs(t, err, ErrConnection)
	require.Equal(t, native.StateTerminated, h.ctx.State())
}

func TestConnect_DroppedMidConnectDoesNotLeak(t *testing.T) {
	srv := seededServer()

	first := newSelfHarness(t, srv)
	f, err := first.ctx.Connect("", native.FlagNoFlags)
	require.NoError(t, err)
	require.False(t, f.Poll(&countingWaker{}).IsReady())
	require.NoError(t, first.ctx.Close())
	require.NoError(t, first.ctx.Close())

	second := newSelfHarness(t, srv)
	second.connect(t)

	// the abandoned loop still holds queued connect steps; running them
	// must neither panic nor touch the second connection.
	require.NotPanics(t, func() {
		for i := 0; i < 5; i++ {
			first.ml.Iterate(false)
		}
	})
	require.Equal(t, native.StateTerminated, first.ctx.State())
	require.Equal(t, native.StateReady, second.ctx.State())
	require.Equal(t, 1, srv.Clients())

	sinks, err, _ := drive(t, second.ctx.Introspect().SinkInfoList())
	require.NoError(t, err)
	require.Len(t, sinks, 3)
}

func TestConnect_AfterDisconnectRejected(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	h.ctx.Disconnect()
	_, err := h.ctx.Connect("", native.FlagNoFlags)
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestConnect_PollAfterCompletionPanics(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	f, err := h.ctx.Connect("", native.FlagNoFlags)
	require.NoError(t, err)
	_, err, _ = drive(t, f)
	require.NoError(t, err)
	require.Panics(t, func() { f.Poll(&countingWaker{}) })
}

func TestSelfDriven_WakesOnEveryPoll(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	f, err := h.ctx.Connect("", native.FlagNoFlags)
	require.NoError(t, err)
	w := &countingWaker{}
	f.Poll(w)
	f.Poll(w)
	require.Equal(t, 2, w.n)
	require.Equal(t, 2, h.ml.Iterations())
	require.Equal(t, loop.ModeSelf, h.ctx.Driver().Mode())
}
