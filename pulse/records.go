package pulse

import (
	"strings"
	"time"

	"pulsefut/native"
)

// SinkPortInfo describes one port of a sink.
type SinkPortInfo struct {
	Name        string
	Description string
	// Priority is higher for ports that make better defaults.
	Priority  uint32
	Available native.PortAvailable
}

// Label returns the description, falling back to the name.
func (p SinkPortInfo) Label() string { return label(p.Description, p.Name) }

// SinkInfo is an owned snapshot of a sink.
type SinkInfo struct {
	Name        string
	Index       uint32
	Description string
	SampleSpec  native.SampleSpec
	ChannelMap  native.ChannelMap
	// OwnerModule is nil when the sink has no owning module.
	OwnerModule       *uint32
	Volume            native.ChannelVolumes
	Mute              bool
	MonitorSource     uint32
	MonitorSourceName string
	Latency           time.Duration
	Driver            string
	Flags             native.SinkFlags
	Proplist          native.Proplist
	ConfiguredLatency time.Duration
	BaseVolume        native.Volume
	State             native.SinkState
	NVolumeSteps      uint32
	Card              *uint32
	Ports             []SinkPortInfo
	ActivePort        *SinkPortInfo
	Formats           []native.FormatInfo
}

// Label returns the description, falling back to the name.
func (s SinkInfo) Label() string { return label(s.Description, s.Name) }

// ServerInfo is an owned snapshot of the server description.
type ServerInfo struct {
	UserName          string
	HostName          string
	ServerVersion     string
	ServerName        string
	SampleSpec        native.SampleSpec
	DefaultSinkName   string
	DefaultSourceName string
	Cookie            uint32
	ChannelMap        native.ChannelMap
}

func label(preferred, fallback string) string {
	switch {
	case preferred != "":
		return preferred
	case fallback != "":
		return fallback
	}
	return "???"
}

// The native views are only valid during the callback, so every string,
// slice, map and pointer is copied out.

func sinkPortFromView(p *native.SinkPortInfo) SinkPortInfo {
	return SinkPortInfo{
		Name:        strings.Clone(p.Name),
		Description: strings.Clone(p.Description),
		Priority:    p.Priority,
		Available:   p.Available,
	}
}

func sinkInfoFromView(v *native.SinkInfo) SinkInfo {
	info := SinkInfo{
		Name:              strings.Clone(v.Name),
		Index:             v.Index,
		Description:       strings.Clone(v.Description),
		SampleSpec:        v.SampleSpec,
		ChannelMap:        v.ChannelMap,
		OwnerModule:       cloneIndex(v.OwnerModule),
		Volume:            v.Volume,
		Mute:              v.Mute,
		MonitorSource:     v.MonitorSource,
		MonitorSourceName: strings.Clone(v.MonitorSourceName),
		Latency:           v.Latency,
		Driver:            strings.Clone(v.Driver),
		Flags:             v.Flags,
		Proplist:          cloneProplist(v.Proplist),
		ConfiguredLatency: v.ConfiguredLatency,
		BaseVolume:        v.BaseVolume,
		State:             v.State,
		NVolumeSteps:      v.NVolumeSteps,
		Card:              cloneIndex(v.Card),
	}
	if len(v.Ports) > 0 {
		info.Ports = make([]SinkPortInfo, 0, len(v.Ports))
		for _, p := range v.Ports {
			if p != nil {
				info.Ports = append(info.Ports, sinkPortFromView(p))
			}
		}
	}
	if v.ActivePort != nil {
		p := sinkPortFromView(v.ActivePort)
		info.ActivePort = &p
	}
	if len(v.Formats) > 0 {
		info.Formats = make([]native.FormatInfo, 0, len(v.Formats))
		for _, f := range v.Formats {
			if f != nil {
				info.Formats = append(info.Formats, native.FormatInfo{Encoding: f.Encoding, Props: cloneProplist(f.Props)})
			}
		}
	}
	return info
}

func serverInfoFromView(v *native.ServerInfo) ServerInfo {
	return ServerInfo{
		UserName:          strings.Clone(v.UserName),
		HostName:          strings.Clone(v.HostName),
		ServerVersion:     strings.Clone(v.ServerVersion),
		ServerName:        strings.Clone(v.ServerName),
		SampleSpec:        v.SampleSpec,
		DefaultSinkName:   strings.Clone(v.DefaultSinkName),
		DefaultSourceName: strings.Clone(v.DefaultSourceName),
		Cookie:            v.Cookie,
		ChannelMap:        v.ChannelMap,
	}
}

func cloneIndex(p *uint32) *uint32 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneProplist(p native.Proplist) native.Proplist {
	if p == nil {
		return nil
	}
	out := make(native.Proplist, len(p))
	for k, v := range p {
		out[strings.Clone(k)] = strings.Clone(v)
	}
	return out
}
