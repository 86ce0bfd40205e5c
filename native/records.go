package native

import (
	"fmt"
	"time"
)

// Volume is a software volume value; VolumeNorm is 100%.
type Volume uint32

const (
	VolumeMuted Volume = 0
	VolumeNorm  Volume = 0x10000
	VolumeMax   Volume = 0x7fffffff
)

// Percent renders v relative to VolumeNorm.
func (v Volume) Percent() float64 {
	return float64(v) * 100 / float64(VolumeNorm)
}

// VolumeFromPercent converts a percentage of VolumeNorm, clamped to VolumeMax.
func VolumeFromPercent(p float64) Volume {
	if p <= 0 {
		return VolumeMuted
	}
	v := p * float64(VolumeNorm) / 100
	if v >= float64(VolumeMax) {
		return VolumeMax
	}
	return Volume(v + 0.5)
}

func (v Volume) String() string { return fmt.Sprintf("%.0f%%", v.Percent()) }

// ChannelsMax bounds the channel count of specs, maps and volumes.
const ChannelsMax = 32

// ChannelVolumes holds one volume per channel.
type ChannelVolumes struct {
	Channels uint8
	Values   [ChannelsMax]Volume
}

// UniformVolumes returns a volume set with all channels at v.
func UniformVolumes(channels uint8, v Volume) ChannelVolumes {
	var cv ChannelVolumes
	if channels > ChannelsMax {
		channels = ChannelsMax
	}
	cv.Channels = channels
	for i := uint8(0); i < channels; i++ {
		cv.Values[i] = v
	}
	return cv
}

// Avg returns the mean channel volume.
func (cv ChannelVolumes) Avg() Volume {
	if cv.Channels == 0 {
		return VolumeMuted
	}
	var sum uint64
	for i := uint8(0); i < cv.Channels; i++ {
		sum += uint64(cv.Values[i])
	}
	return Volume(sum / uint64(cv.Channels))
}

// Valid reports whether the channel count is in range.
func (cv ChannelVolumes) Valid() bool {
	return cv.Channels > 0 && cv.Channels <= ChannelsMax
}

// SampleFormat enumerates sample encodings.
type SampleFormat int

const (
	SampleU8 SampleFormat = iota
	SampleS16LE
	SampleS24LE
	SampleS32LE
	SampleFloat32LE
)

// SampleSpec describes a sample stream.
type SampleSpec struct {
	Format   SampleFormat
	Rate     uint32
	Channels uint8
}

// ChannelPosition names a speaker position.
type ChannelPosition int

const (
	PositionMono ChannelPosition = iota
	PositionFrontLeft
	PositionFrontRight
	PositionFrontCenter
	PositionRearLeft
	PositionRearRight
	PositionLFE
)

// ChannelMap maps channel slots to positions.
type ChannelMap struct {
	Channels uint8
	Map      [ChannelsMax]ChannelPosition
}

// PortAvailable reports jack detection state for a port.
type PortAvailable int

const (
	PortAvailableUnknown PortAvailable = iota
	PortAvailableNo
	PortAvailableYes
)

func (a PortAvailable) String() string {
	switch a {
	case PortAvailableNo:
		return "no"
	case PortAvailableYes:
		return "yes"
	}
	return "unknown"
}

// SinkFlags is a bit set of sink capabilities.
type SinkFlags uint32

const (
	SinkHWVolumeCtrl SinkFlags = 1 << 0
	SinkLatency      SinkFlags = 1 << 1
	SinkHardware     SinkFlags = 1 << 2
	SinkNetwork      SinkFlags = 1 << 3
	SinkDecibelVol   SinkFlags = 1 << 5
)

// SinkState is the runtime state of a sink.
type SinkState int

const (
	SinkStateInvalid SinkState = iota - 1
	SinkStateRunning
	SinkStateIdle
	SinkStateSuspended
)

func (s SinkState) String() string {
	switch s {
	case SinkStateRunning:
		return "running"
	case SinkStateIdle:
		return "idle"
	case SinkStateSuspended:
		return "suspended"
	}
	return "invalid"
}

// Encoding identifies a stream format.
type Encoding int

const (
	EncodingAny Encoding = iota
	EncodingPCM
	EncodingAC3IEC61937
	EncodingEAC3IEC61937
)

// Proplist is a string property list.
type Proplist map[string]string

// FormatInfo describes one supported stream format.
type FormatInfo struct {
	Encoding Encoding
	Props    Proplist
}

// SinkPortInfo is the transient view of a sink port.
type SinkPortInfo struct {
	Name        string
	Description string
	Priority    uint32
	Available   PortAvailable
}

// SinkInfo is the transient view of a sink. Nil pointer fields mean invalid.
type SinkInfo struct {
	Name              string
	Index             uint32
	Description       string
	SampleSpec        SampleSpec
	ChannelMap        ChannelMap
	OwnerModule       *uint32
	Volume            ChannelVolumes
	Mute              bool
	MonitorSource     uint32
	MonitorSourceName string
	Latency           time.Duration
	Driver            string
	Flags             SinkFlags
	Proplist          Proplist
	ConfiguredLatency time.Duration
	BaseVolume        Volume
	State             SinkState
	NVolumeSteps      uint32
	Card              *uint32
	Ports             []*SinkPortInfo
	ActivePort        *SinkPortInfo
	Formats           []*FormatInfo
}

// ServerInfo is the transient view of the server description.
type ServerInfo struct {
	UserName          string
	HostName          string
	ServerVersion     string
	ServerName        string
	SampleSpec        SampleSpec
	DefaultSinkName   string
	DefaultSourceName string
	Cookie            uint32
	ChannelMap        ChannelMap
}
