package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pulsefut/native"
)

func TestMainloop_DispatchesOneBatchPerIteration(t *testing.T) {
	ml := NewMainloop()
	var order []int
	ml.Post(func() {
		order = append(order, 1)
		ml.Post(func() { order = append(order, 3) })
	})
	ml.Post(func() { order = append(order, 2) })

	require.Equal(t, native.IterateSuccess, ml.Iterate(false))
	require.Equal(t, []int{1, 2}, order)
	require.Equal(t, native.IterateSuccess, ml.Iterate(false))
	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, native.IterateSuccess, ml.Iterate(false))
	require.Equal(t, 3, ml.Iterations())

	ml.Quit()
	require.Equal(t, native.IterateQuit, ml.Iterate(false))
}

func TestMainloop_BlockingIterateWaitsForWork(t *testing.T) {
	ml := NewMainloop()
	ran := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		ml.Post(func() { close(ran) })
	}()
	require.Equal(t, native.IterateSuccess, ml.Iterate(true))
	select {
	case <-ran:
	default:
		t.Fatal("blocking iterate returned without dispatching")
	}
}

func TestHostLoop_NormalBeforeIdle(t *testing.T) {
	h := NewHostLoop()
	var order []string
	h.DeferIdle(func() { order = append(order, "idle") })
	h.Post(func() { order = append(order, "normal") })

	require.True(t, h.Step())
	require.Equal(t, []string{"normal"}, order)
	require.True(t, h.Step())
	require.Equal(t, []string{"normal", "idle"}, order)
	require.False(t, h.Step())
}

func TestHostLoop_RunUntil(t *testing.T) {
	h := NewHostLoop()
	h.IdlePace = time.Millisecond
	n := 0
	var tick func()
	tick = func() {
		n++
		h.DeferIdle(tick)
	}
	h.DeferIdle(tick)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.RunUntil(ctx, func() bool { return n >= 5 }))

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	require.ErrorIs(t, h.Run(short), context.DeadlineExceeded)
}

func seeded() *Server {
	srv := NewServer("unix:/run/pulse/native")
	srv.AddSink(Sink{
		Name:        "speakers",
		Description: "Speakers",
		Ports: []native.SinkPortInfo{
			{Name: "analog", Description: "Analog"},
			{Name: "spdif", Description: "Digital"},
		},
		Properties: native.Proplist{"device.bus": "pci"},
	})
	srv.AddSink(Sink{Name: "null"})
	return srv
}

func connected(t *testing.T, srv *Server) (*Mainloop, *Context) {
	t.Helper()
	ml := NewMainloop()
	c := srv.NewContext(ml, "sim-test", native.Proplist{"application.id": "test"})
	require.NoError(t, c.Connect("", native.FlagNoFlags))
	for i := 0; i < 3; i++ {
		require.NotEqual(t, native.StateReady, c.State())
		ml.Iterate(false)
	}
	require.Equal(t, native.StateReady, c.State())
	require.Equal(t, 1, srv.Clients())
	return ml, c
}

func TestServer_Seeding(t *testing.T) {
	srv := seeded()
	sk, ok := srv.Sink("speakers")
	require.True(t, ok)
	require.Equal(t, "analog", sk.ActivePort)
	require.Equal(t, uint8(2), sk.Channels)
	require.Equal(t, native.UniformVolumes(2, native.VolumeNorm), sk.Volume)
	require.Equal(t, "speakers", srv.info.DefaultSinkName)

	require.True(t, srv.RemoveSink("speakers"))
	require.Equal(t, "null", srv.info.DefaultSinkName)
	require.False(t, srv.RemoveSink("speakers"))
}

func TestContext_ConnectStates(t *testing.T) {
	srv := seeded()
	_, c := connected(t, srv)
	require.Equal(t, "sim-test", c.Name())
	require.Equal(t, "test", c.Property("application.id"))
	require.Error(t, c.Connect("", native.FlagNoFlags))

	c.Disconnect()
	require.Equal(t, native.StateTerminated, c.State())
	require.Zero(t, srv.Clients())
	c.Disconnect()
}

func TestContext_ConnectFailures(t *testing.T) {
	srv := seeded()
	ml := NewMainloop()
	c := srv.NewContext(ml, "wrong-address", nil)
	require.NoError(t, c.Connect("tcp:elsewhere", native.FlagNoFlags))
	ml.Iterate(false)
	require.Equal(t, native.StateFailed, c.State())

	srv.Faults.RefuseConnect = true
	c = srv.NewContext(ml, "refused", nil)
	require.NoError(t, c.Connect("", native.FlagNoFlags))
	ml.Iterate(false)
	require.Equal(t, native.StateFailed, c.State())
}

func TestContext_ListScrubsViewAfterEachItem(t *testing.T) {
	srv := seeded()
	ml, c := connected(t, srv)

	var kept []*native.SinkInfo
	var names []string
	var end bool
	op := c.Introspect().GetSinkInfoList(func(r native.ListResult[*native.SinkInfo]) {
		switch r.Kind {
		case native.ListItem:
			kept = append(kept, r.Item)
			names = append(names, r.Item.Name)
		case native.ListEnd:
			end = true
		}
	})
	for i := 0; i < 3; i++ {
		require.Equal(t, native.OperationRunning, op.State())
		ml.Iterate(false)
	}
	require.True(t, end)
	require.Equal(t, native.OperationDone, op.State())
	require.Equal(t, []string{"speakers", "null"}, names)
	require.Equal(t, scrubbed, kept[0].Name, "views are only valid during the callback")
}

func TestContext_MutationsAndEvents(t *testing.T) {
	srv := seeded()
	ml, c := connected(t, srv)

	var events []native.Facility
	c.SetSubscribeCallback(func(f native.Facility, _ native.EventOperation, _ uint32) {
		events = append(events, f)
	})
	var enabled bool
	c.Subscribe(native.MaskSink, func(ok bool) { enabled = ok })
	ml.Iterate(false)
	require.True(t, enabled)

	var results []bool
	in := c.Introspect()
	in.SetSinkMuteByName("speakers", true, func(ok bool) { results = append(results, ok) })
	in.SetSinkPortByIndex(0, "spdif", func(ok bool) { results = append(results, ok) })
	in.SetSinkPortByIndex(0, "hdmi", func(ok bool) { results = append(results, ok) })
	in.SetSinkVolumeByName("null", native.UniformVolumes(1, 0), func(ok bool) { results = append(results, ok) })
	ml.Iterate(false)
	require.Equal(t, []bool{true, true, false, false}, results)

	ml.Iterate(false)
	require.Equal(t, []native.Facility{native.FacilitySink, native.FacilitySink}, events)

	sk, _ := srv.Sink("speakers")
	require.True(t, sk.Mute)
	require.Equal(t, "spdif", sk.ActivePort)
}

func TestContext_RequestsBeforeReadyAreCancelled(t *testing.T) {
	srv := seeded()
	c := srv.NewContext(NewMainloop(), "idle", nil)
	op := c.Introspect().GetServerInfo(func(*native.ServerInfo) {})
	require.Equal(t, native.OperationCancelled, op.State())
}

func TestContext_StallAndCancel(t *testing.T) {
	srv := seeded()
	ml, c := connected(t, srv)
	srv.Faults.Stall = true

	called := false
	op := c.Introspect().GetServerInfo(func(*native.ServerInfo) { called = true })
	ml.Iterate(false)
	require.Equal(t, native.OperationRunning, op.State())
	op.Cancel()
	require.Equal(t, native.OperationCancelled, op.State())
	require.False(t, called)
}

func TestContext_DisconnectCancelsOutstanding(t *testing.T) {
	srv := seeded()
	_, c := connected(t, srv)
	op := c.Introspect().GetSinkInfoList(func(native.ListResult[*native.SinkInfo]) {})
	c.Disconnect()
	require.Equal(t, native.OperationCancelled, op.State())
}
