package pulse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pulsefut/loop"
	"pulsefut/native"
	"pulsefut/native/sim"
	"pulsefut/task"
)

type countingWaker struct{ n int }

func (w *countingWaker) Wake() { w.n++ }

// drive polls f until it resolves and returns the result with the number of
// polls it took.
func drive[T any](t *testing.T, f task.Future[T]) (T, error, int) {
	t.Helper()
	w := &countingWaker{}
	for i := 1; i <= 1000; i++ {
		if p := f.Poll(w); p.IsReady() {
			v, err := p.Result()
			return v, err, i
		}
	}
	t.Fatalf("future still pending after 1000 polls")
	panic("unreachable")
}

func speakers() sim.Sink {
	card := uint32(3)
	return sim.Sink{
		Name:        "alsa_output.pci.analog-stereo",
		Description: "Built-in Audio Analog Stereo",
		Driver:      "module-alsa-card.c",
		Ports: []native.SinkPortInfo{
			{Name: "analog-output-speaker", Description: "Speakers", Priority: 10000, Available: native.PortAvailableUnknown},
			{Name: "analog-output-headphones", Description: "Headphones", Priority: 9900, Available: native.PortAvailableNo},
		},
		Properties: native.Proplist{"device.bus": "pci"},
		Card:       &card,
		State:      native.SinkStateIdle,
	}
}

func hdmi() sim.Sink {
	return sim.Sink{
		Name:        "alsa_output.pci.hdmi-stereo",
		Description: "HDMI Audio",
		Ports: []native.SinkPortInfo{
			{Name: "hdmi-output-0", Description: "HDMI / DisplayPort", Priority: 5900, Available: native.PortAvailableYes},
		},
	}
}

func seededServer() *sim.Server {
	srv := sim.NewServer("")
	srv.AddSink(speakers())
	srv.AddSink(hdmi())
	srv.AddSink(sim.Sink{Name: "null", Description: "Null Output"})
	return srv
}

type selfHarness struct {
	srv *sim.Server
	ml  *sim.Mainloop
	ctx *Context
}

func newSelfHarness(t *testing.T, srv *sim.Server) *selfHarness {
	t.Helper()
	ml := sim.NewMainloop()
	c := New(srv.NewContext(ml, "pulse-test", nil), loop.NewSelfDriven(ml))
	t.Cleanup(func() { _ = c.Close() })
	return &selfHarness{srv: srv, ml: ml, ctx: c}
}

func (h *selfHarness) connect(t *testing.T) {
	t.Helper()
	f, err := h.ctx.Connect("", native.FlagNoFlags)
	require.NoError(t, err)
	_, err = task.Block(testContext(t), f)
	require.NoError(t, err)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
