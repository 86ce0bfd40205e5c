package native

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVolumePercent(t *testing.T) {
	require.Equal(t, VolumeNorm, VolumeFromPercent(100))
	require.Equal(t, VolumeMuted, VolumeFromPercent(-3))
	require.Equal(t, VolumeMax, VolumeFromPercent(1e12))
	require.Equal(t, Volume(0x8000), VolumeFromPercent(50))
	require.Equal(t, "100%", VolumeNorm.String())
	require.InDelta(t, 150.0, VolumeFromPercent(150).Percent(), 0.01)
}

func TestChannelVolumes(t *testing.T) {
	cv := UniformVolumes(2, VolumeNorm)
	require.True(t, cv.Valid())
	require.Equal(t, VolumeNorm, cv.Avg())

	cv.Values[1] = VolumeMuted
	require.Equal(t, VolumeNorm/2, cv.Avg())

	require.False(t, ChannelVolumes{}.Valid())
	require.Equal(t, VolumeMuted, ChannelVolumes{}.Avg())
	require.Equal(t, uint8(ChannelsMax), UniformVolumes(200, VolumeNorm).Channels)
}

func TestFacilities(t *testing.T) {
	require.True(t, FacilityCard.Known())
	require.False(t, Facility(8).Known())
	require.Equal(t, "facility(8)", Facility(8).String())
	require.Equal(t, InterestMask(0), Facility(8).Mask())
	require.Equal(t, MaskServer, FacilityServer.Mask())

	f, err := ParseFacility(" Sink_Input ")
	require.NoError(t, err)
	require.Equal(t, FacilitySinkInput, f)
	_, err = ParseFacility("speaker")
	require.Error(t, err)

	require.False(t, EventOperation(0x30).Known())
	require.Equal(t, "change", EventChanged.String())
}

func TestParseMask(t *testing.T) {
	m, err := ParseMask([]string{"sink", "server"})
	require.NoError(t, err)
	require.Equal(t, MaskSink|MaskServer, m)
	require.True(t, m.Has(FacilitySink))
	require.False(t, m.Has(FacilityCard))
	require.False(t, m.Has(Facility(8)))

	m, err = ParseMask([]string{"ALL"})
	require.NoError(t, err)
	require.Equal(t, MaskAll, m)
	for f := range facilityNames {
		require.True(t, m.Has(f), f.String())
	}

	_, err = ParseMask([]string{"sink", "bogus"})
	require.Error(t, err)
}

func TestStateNames(t *testing.T) {
	require.Equal(t, "ready", StateReady.String())
	require.Equal(t, "no", PortAvailableNo.String())
}
