package pulse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pulsefut/native"
)

func TestSinkInfo_OwnsItsData(t *testing.T) {
	h := newSelfHarness(t, seededServer())
	h.connect(t)

	// later deliveries reuse and scrub the library's scratch view.
	sinks, err, _ := drive(t, h.ctx.Introspect().SinkInfoList())
	require.NoError(t, err)

	s := sinks[0]
	require.Equal(t, "alsa_output.pci.analog-stereo", s.Name)
	require.Equal(t, "Built-in Audio Analog Stereo", s.Label())
	require.Equal(t, "alsa_output.pci.analog-stereo.monitor", s.MonitorSourceName)
	require.Len(t, s.Ports, 2)
	require.Equal(t, "analog-output-speaker", s.Ports[0].Name)
	require.Equal(t, "Headphones", s.Ports[1].Label())
	require.Equal(t, native.PortAvailableNo, s.Ports[1].Available)
	require.NotNil(t, s.ActivePort)
	require.Equal(t, "analog-output-speaker", s.ActivePort.Name)
	require.Equal(t, "pci", s.Proplist["device.bus"])
	require.NotNil(t, s.OwnerModule)
	require.Equal(t, uint32(1), *s.OwnerModule)
	require.NotNil(t, s.Card)
	require.Equal(t, uint32(3), *s.Card)
	require.Len(t, s.Formats, 1)
	require.Equal(t, native.EncodingPCM, s.Formats[0].Encoding)

	// the view shared one map between proplist and format; the copies don't.
	s.Proplist["device.bus"] = "usb"
	require.Equal(t, "pci", s.Formats[0].Props["device.bus"])

	require.Nil(t, sinks[2].Card)
	require.Nil(t, sinks[2].ActivePort)
	require.Empty(t, sinks[2].Ports)
}

func TestLabels_FallBack(t *testing.T) {
	require.Equal(t, "name", SinkInfo{Name: "name"}.Label())
	require.Equal(t, "???", SinkPortInfo{}.Label())
}
