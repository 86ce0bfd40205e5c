package transport

import (
	"fmt"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"

	"pulsefut/native"
	"pulsefut/pulse"
)

// Messages travel as google.protobuf.Struct; these views are their schema.

type PortView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    uint32 `json:"priority"`
	Available   string `json:"available"`
}

type SinkView struct {
	Index         uint32            `json:"index"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Driver        string            `json:"driver"`
	State         string            `json:"state"`
	Channels      uint8             `json:"channels"`
	VolumePercent float64           `json:"volume_percent"`
	Mute          bool              `json:"mute"`
	Ports         []PortView        `json:"ports,omitempty"`
	ActivePort    string            `json:"active_port,omitempty"`
	Card          *uint32           `json:"card,omitempty"`
	OwnerModule   *uint32           `json:"owner_module,omitempty"`
	MonitorSource string            `json:"monitor_source"`
	LatencyUsec   int64             `json:"latency_usec"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// Label prefers the description.
func (s SinkView) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Name
}

type ServerView struct {
	UserName          string `json:"user_name"`
	HostName          string `json:"host_name"`
	ServerVersion     string `json:"server_version"`
	ServerName        string `json:"server_name"`
	DefaultSinkName   string `json:"default_sink_name"`
	DefaultSourceName string `json:"default_source_name"`
	SampleRate        uint32 `json:"sample_rate"`
	Channels          uint8  `json:"channels"`
	Cookie            uint32 `json:"cookie"`
}

func sinkView(s pulse.SinkInfo) SinkView {
	v := SinkView{
		Index:         s.Index,
		Name:          s.Name,
		Description:   s.Description,
		Driver:        s.Driver,
		State:         s.State.String(),
		Channels:      s.Volume.Channels,
		VolumePercent: s.Volume.Avg().Percent(),
		Mute:          s.Mute,
		Card:          s.Card,
		OwnerModule:   s.OwnerModule,
		MonitorSource: s.MonitorSourceName,
		LatencyUsec:   s.Latency.Microseconds(),
		Properties:    s.Proplist,
	}
	for _, p := range s.Ports {
		v.Ports = append(v.Ports, PortView{
			Name:        p.Name,
			Description: p.Label(),
			Priority:    p.Priority,
			Available:   p.Available.String(),
		})
	}
	if s.ActivePort != nil {
		v.ActivePort = s.ActivePort.Name
	}
	return v
}

func serverView(s pulse.ServerInfo) ServerView {
	return ServerView{
		UserName:          s.UserName,
		HostName:          s.HostName,
		ServerVersion:     s.ServerVersion,
		ServerName:        s.ServerName,
		DefaultSinkName:   s.DefaultSinkName,
		DefaultSourceName: s.DefaultSourceName,
		SampleRate:        s.SampleSpec.Rate,
		Channels:          s.SampleSpec.Channels,
		Cookie:            s.Cookie,
	}
}

// toStruct converts any JSON-encodable value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("transport: encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("transport: encode: %w", err)
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes s into out.
func fromStruct(s *structpb.Struct, out any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("transport: decode: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("transport: decode: %w", err)
	}
	return nil
}

// Request bodies.

type sinkRef struct {
	Name  string  `json:"name,omitempty"`
	Index *uint32 `json:"index,omitempty"`
}

type volumeRequest struct {
	Sink    string  `json:"sink"`
	Percent float64 `json:"percent"`
}

type muteRequest struct {
	Sink string `json:"sink"`
	Mute bool   `json:"mute"`
}

type portRequest struct {
	Sink string `json:"sink"`
	Port string `json:"port"`
}

type watchRequest struct {
	Facilities []string `json:"facilities,omitempty"`
}

func (w watchRequest) mask() (native.InterestMask, error) {
	if len(w.Facilities) == 0 {
		return native.MaskAll, nil
	}
	return native.ParseMask(w.Facilities)
}
