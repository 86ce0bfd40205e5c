package sim

import "pulsefut/native"

// view is the scratch storage handed to callbacks. It is reused for every
// delivery and scrubbed afterwards, so callers holding on to it see garbage.
type view struct {
	sinkInfo native.SinkInfo
	ports    []native.SinkPortInfo
	portPtrs []*native.SinkPortInfo
	props    native.Proplist
	format   native.FormatInfo
	formats  []*native.FormatInfo
	owner    uint32
	card     uint32

	serverInfo native.ServerInfo
}

const scrubbed = "\x00invalidated"

func (v *view) sink(sk *sink) *native.SinkInfo {
	if v.props == nil {
		v.props = make(native.Proplist)
	}
	clear(v.props)
	for k, val := range sk.Properties {
		v.props[k] = val
	}
	v.props["device.description"] = sk.Description

	v.ports = append(v.ports[:0], sk.Ports...)
	v.portPtrs = v.portPtrs[:0]
	var active *native.SinkPortInfo
	for i := range v.ports {
		v.portPtrs = append(v.portPtrs, &v.ports[i])
		if v.ports[i].Name == sk.ActivePort {
			active = &v.ports[i]
		}
	}

	v.format = native.FormatInfo{Encoding: native.EncodingPCM, Props: v.props}
	v.formats = append(v.formats[:0], &v.format)

	v.owner = 1
	var card *uint32
	if sk.Card != nil {
		v.card = *sk.Card
		card = &v.card
	}

	v.sinkInfo = native.SinkInfo{
		Name:              sk.Name,
		Index:             sk.index,
		Description:       sk.Description,
		SampleSpec:        native.SampleSpec{Format: native.SampleS16LE, Rate: 48000, Channels: sk.Channels},
		ChannelMap:        stereoMap(),
		OwnerModule:       &v.owner,
		Volume:            sk.Volume,
		Mute:              sk.Mute,
		MonitorSource:     sk.index,
		MonitorSourceName: sk.Name + ".monitor",
		Latency:           sk.Latency,
		Driver:            sk.Driver,
		Flags:             native.SinkHWVolumeCtrl | native.SinkLatency | native.SinkDecibelVol,
		Proplist:          v.props,
		ConfiguredLatency: sk.Latency,
		BaseVolume:        native.VolumeNorm,
		State:             sk.State,
		NVolumeSteps:      uint32(native.VolumeNorm) + 1,
		Card:              card,
		Ports:             v.portPtrs,
		ActivePort:        active,
		Formats:           v.formats,
	}
	return &v.sinkInfo
}

func (v *view) server(info *native.ServerInfo) *native.ServerInfo {
	v.serverInfo = *info
	return &v.serverInfo
}

func (v *view) invalidate() {
	for i := range v.ports {
		v.ports[i] = native.SinkPortInfo{Name: scrubbed, Description: scrubbed}
	}
	if v.props != nil {
		clear(v.props)
		v.props[scrubbed] = scrubbed
	}
	v.owner, v.card = ^uint32(0), ^uint32(0)
	v.format.Encoding = native.EncodingAny
	v.sinkInfo.Name = scrubbed
	v.sinkInfo.Description = scrubbed
	v.serverInfo.ServerName = scrubbed
	v.serverInfo.DefaultSinkName = scrubbed
}
