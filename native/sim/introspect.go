package sim

import "pulsefut/native"

type introspector struct {
	c *Context
}

func (in *introspector) sinks(match func(*sink) bool) []*sink {
	var out []*sink
	for _, sk := range in.c.srv.sinks {
		if match(sk) {
			out = append(out, sk)
		}
	}
	return out
}

func (in *introspector) GetSinkInfoList(cb func(native.ListResult[*native.SinkInfo])) native.Operation {
	o := in.c.begin()
	in.c.list(o, in.sinks(func(*sink) bool { return true }), in.c.srv.Faults.FailLists, cb)
	return o
}

func (in *introspector) GetSinkInfoByName(name string, cb func(native.ListResult[*native.SinkInfo])) native.Operation {
	o := in.c.begin()
	in.c.list(o, in.sinks(func(sk *sink) bool { return sk.Name == name }), in.c.srv.Faults.FailLists, cb)
	return o
}

func (in *introspector) GetSinkInfoByIndex(index uint32, cb func(native.ListResult[*native.SinkInfo])) native.Operation {
	o := in.c.begin()
	in.c.list(o, in.sinks(func(sk *sink) bool { return sk.index == index }), in.c.srv.Faults.FailLists, cb)
	return o
}

func (in *introspector) GetServerInfo(cb func(*native.ServerInfo)) native.Operation {
	o := in.c.begin()
	in.c.run(o, func() {
		cb(in.c.view.server(&in.c.srv.info))
		in.c.view.invalidate()
	})
	return o
}

func (in *introspector) mutate(fn func() bool, cb func(bool)) native.Operation {
	o := in.c.begin()
	in.c.run(o, func() {
		ok := fn()
		if cb != nil {
			cb(ok)
		}
	})
	return o
}

func (in *introspector) SetSinkVolumeByIndex(index uint32, v native.ChannelVolumes, cb func(bool)) native.Operation {
	srv := in.c.srv
	return in.mutate(func() bool { return srv.setVolume(srv.byIndex(index), v) }, cb)
}

func (in *introspector) SetSinkVolumeByName(name string, v native.ChannelVolumes, cb func(bool)) native.Operation {
	srv := in.c.srv
	return in.mutate(func() bool { return srv.setVolume(srv.byName(name), v) }, cb)
}

func (in *introspector) SetSinkMuteByIndex(index uint32, mute bool, cb func(bool)) native.Operation {
	srv := in.c.srv
	return in.mutate(func() bool { return srv.setMute(srv.byIndex(index), mute) }, cb)
}

func (in *introspector) SetSinkMuteByName(name string, mute bool, cb func(bool)) native.Operation {
	srv := in.c.srv
	return in.mutate(func() bool { return srv.setMute(srv.byName(name), mute) }, cb)
}

func (in *introspector) SetSinkPortByIndex(index uint32, port string, cb func(bool)) native.Operation {
	srv := in.c.srv
	return in.mutate(func() bool { return srv.setPort(srv.byIndex(index), port) }, cb)
}

func (in *introspector) SetSinkPortByName(name, port string, cb func(bool)) native.Operation {
	srv := in.c.srv
	return in.mutate(func() bool { return srv.setPort(srv.byName(name), port) }, cb)
}
