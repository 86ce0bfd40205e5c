package pulse

import "pulsefut/native"

// Introspector issues introspection requests. Each call returns a future
// for exactly one request.
type Introspector struct {
	c  *Context
	in native.Introspector
}

// Introspect returns the introspection facade of c.
func (c *Context) Introspect() *Introspector {
	return &Introspector{c: c, in: c.nc.Introspect()}
}

// SinkInfoList lists every sink in server order.
func (i *Introspector) SinkInfoList() *OperationFuture[[]SinkInfo] {
	return listOperation(i.c, "sink_info_list", i.in.GetSinkInfoList, sinkInfoFromView)
}

// SinkInfoByName resolves to nil when no sink has that name.
func (i *Introspector) SinkInfoByName(name string) *OperationFuture[*SinkInfo] {
	return optionalOperation(i.c, "sink_info_by_name", func(cb func(native.ListResult[*native.SinkInfo])) native.Operation {
		return i.in.GetSinkInfoByName(name, cb)
	}, sinkInfoFromView)
}

// SinkInfoByIndex resolves to nil when no sink has that index.
func (i *Introspector) SinkInfoByIndex(index uint32) *OperationFuture[*SinkInfo] {
	return optionalOperation(i.c, "sink_info_by_index", func(cb func(native.ListResult[*native.SinkInfo])) native.Operation {
		return i.in.GetSinkInfoByIndex(index, cb)
	}, sinkInfoFromView)
}

// ServerInfo fetches the server description.
func (i *Introspector) ServerInfo() *OperationFuture[ServerInfo] {
	return scalarOperation(i.c, "server_info", i.in.GetServerInfo, serverInfoFromView)
}

func (i *Introspector) SetSinkVolumeByIndex(index uint32, volume native.ChannelVolumes) *OperationFuture[struct{}] {
	return mutation(i.c, "set_sink_volume", func(cb func(bool)) native.Operation {
		return i.in.SetSinkVolumeByIndex(index, volume, cb)
	})
}

func (i *Introspector) SetSinkVolumeByName(name string, volume native.ChannelVolumes) *OperationFuture[struct{}] {
	return mutation(i.c, "set_sink_volume", func(cb func(bool)) native.Operation {
		return i.in.SetSinkVolumeByName(name, volume, cb)
	})
}

func (i *Introspector) SetSinkMuteByIndex(index uint32, mute bool) *OperationFuture[struct{}] {
	return mutation(i.c, "set_sink_mute", func(cb func(bool)) native.Operation {
		return i.in.SetSinkMuteByIndex(index, mute, cb)
	})
}

func (i *Introspector) SetSinkMuteByName(name string, mute bool) *OperationFuture[struct{}] {
	return mutation(i.c, "set_sink_mute", func(cb func(bool)) native.Operation {
		return i.in.SetSinkMuteByName(name, mute, cb)
	})
}

// SetSinkPortByIndex switches the active port of a sink.
func (i *Introspector) SetSinkPortByIndex(index uint32, port string) *OperationFuture[struct{}] {
	return mutation(i.c, "set_sink_port", func(cb func(bool)) native.Operation {
		return i.in.SetSinkPortByIndex(index, port, cb)
	})
}

// SetSinkPortByName switches the active port of a sink.
func (i *Introspector) SetSinkPortByName(name, port string) *OperationFuture[struct{}] {
	return mutation(i.c, "set_sink_port", func(cb func(bool)) native.Operation {
		return i.in.SetSinkPortByName(name, port, cb)
	})
}
