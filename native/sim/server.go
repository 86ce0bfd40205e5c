package sim

import (
	"time"

	"pulsefut/native"
)

// Sink seeds one simulated sink.
type Sink struct {
	Name        string
	Description string
	Driver      string
	Channels    uint8
	Volume      native.ChannelVolumes
	Mute        bool
	Ports       []native.SinkPortInfo
	ActivePort  string
	Properties  native.Proplist
	State       native.SinkState
	Card        *uint32
	Latency     time.Duration
}

// Faults injects failures into the server's behaviour.
type Faults struct {
	RefuseConnect   bool // connection attempts end in StateFailed
	RejectSubscribe bool // Subscribe reports success=false
	FailLists       bool // list requests deliver ListError
	FailMutations   bool // set requests report success=false
	Stall           bool // requests never complete until cancelled
}

// Server holds the simulated daemon state.
type Server struct {
	Faults Faults

	address string
	info    native.ServerInfo
	sinks   []*sink
	next    uint32
	clients []*Context
}

type sink struct {
	index uint32
	Sink
}

// NewServer creates a server reachable under address ("" accepts any).
func NewServer(address string) *Server {
	return &Server{
		address: address,
		info: native.ServerInfo{
			UserName:          "pulse",
			HostName:          "localhost",
			ServerVersion:     "17.0",
			ServerName:        "pulsefut-sim",
			SampleSpec:        native.SampleSpec{Format: native.SampleS16LE, Rate: 48000, Channels: 2},
			DefaultSourceName: "",
			Cookie:            0x5eed,
			ChannelMap:        stereoMap(),
		},
	}
}

func stereoMap() native.ChannelMap {
	var m native.ChannelMap
	m.Channels = 2
	m.Map[0] = native.PositionFrontLeft
	m.Map[1] = native.PositionFrontRight
	return m
}

// AddSink registers s and returns its index. The first sink becomes the
// default sink.
func (s *Server) AddSink(spec Sink) uint32 {
	if spec.Channels == 0 {
		spec.Channels = 2
	}
	if !spec.Volume.Valid() {
		spec.Volume = native.UniformVolumes(spec.Channels, native.VolumeNorm)
	}
	if spec.ActivePort == "" && len(spec.Ports) > 0 {
		spec.ActivePort = spec.Ports[0].Name
	}
	sk := &sink{index: s.next, Sink: spec}
	s.next++
	s.sinks = append(s.sinks, sk)
	if s.info.DefaultSinkName == "" {
		s.info.DefaultSinkName = spec.Name
	}
	s.emit(native.FacilitySink, native.EventNew, sk.index)
	return sk.index
}

// RemoveSink drops the named sink.
func (s *Server) RemoveSink(name string) bool {
	for i, sk := range s.sinks {
		if sk.Name == name {
			s.sinks = append(s.sinks[:i], s.sinks[i+1:]...)
			if s.info.DefaultSinkName == name {
				s.info.DefaultSinkName = ""
				if len(s.sinks) > 0 {
					s.info.DefaultSinkName = s.sinks[0].Name
				}
				s.emit(native.FacilityServer, native.EventChanged, 0)
			}
			s.emit(native.FacilitySink, native.EventRemoved, sk.index)
			return true
		}
	}
	return false
}

// Sink returns a snapshot of the named sink.
func (s *Server) Sink(name string) (Sink, bool) {
	if sk := s.byName(name); sk != nil {
		return sk.Sink, true
	}
	return Sink{}, false
}

// Clients returns the number of connected contexts.
func (s *Server) Clients() int { return len(s.clients) }

func (s *Server) byName(name string) *sink {
	for _, sk := range s.sinks {
		if sk.Name == name {
			return sk
		}
	}
	return nil
}

func (s *Server) byIndex(index uint32) *sink {
	for _, sk := range s.sinks {
		if sk.index == index {
			return sk
		}
	}
	return nil
}

// emit notifies every ready client subscribed to f. Notifications are
// queued on each client's loop.
func (s *Server) emit(f native.Facility, op native.EventOperation, index uint32) {
	for _, c := range s.clients {
		if c.mask.Has(f) {
			c.notify(f, op, index)
		}
	}
}

func (s *Server) attach(c *Context) {
	s.clients = append(s.clients, c)
}

func (s *Server) detach(c *Context) {
	for i, cl := range s.clients {
		if cl == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

func (s *Server) setVolume(sk *sink, v native.ChannelVolumes) bool {
	if sk == nil || s.Faults.FailMutations || v.Channels != sk.Channels {
		return false
	}
	sk.Volume = v
	s.emit(native.FacilitySink, native.EventChanged, sk.index)
	return true
}

func (s *Server) setMute(sk *sink, mute bool) bool {
	if sk == nil || s.Faults.FailMutations {
		return false
	}
	sk.Mute = mute
	s.emit(native.FacilitySink, native.EventChanged, sk.index)
	return true
}

func (s *Server) setPort(sk *sink, port string) bool {
	if sk == nil || s.Faults.FailMutations {
		return false
	}
	for _, p := range sk.Ports {
		if p.Name == port {
			sk.ActivePort = port
			s.emit(native.FacilitySink, native.EventChanged, sk.index)
			return true
		}
	}
	return false
}
