package engine

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"pulsefut/internal/config"
	"pulsefut/internal/pipeline"
	"pulsefut/internal/telemetry"
	"pulsefut/internal/transport"
	"pulsefut/loop"
	"pulsefut/native"
	"pulsefut/native/sim"
	"pulsefut/pulse"
	"pulsefut/task"
)

// InstanceProperty is the client property carrying the daemon instance id.
const InstanceProperty = "application.process.session_id"

// Options carries what the config file cannot.
type Options struct {
	// Server replaces the simulated server seeded from cfg.Sim.
	Server *sim.Server
	// Stdout receives the stdout sink's records; nil means os.Stdout.
	Stdout io.Writer
	// Listener serves the gRPC service in place of transport.grpc_port.
	Listener net.Listener
}

// loopRunner is the goroutine every library entity is confined to.
type loopRunner interface {
	task.Runner
	Run(ctx context.Context) error
}

func Bootstrap(ctx context.Context, cfg config.Config, opts Options) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode, err := loop.ParseMode(cfg.Client.Driver)
	if err != nil {
		return nil, err
	}
	flags, err := cfg.Client.ConnectFlags()
	if err != nil {
		return nil, err
	}
	mask, err := cfg.InterestMask()
	if err != nil {
		return nil, err
	}

	// 1. backend
	srv := opts.Server
	if srv == nil {
		srv = SeedServer(cfg.Sim)
	}

	// 2. loop and driver
	var (
		runner loopRunner
		disp   sim.Dispatcher
		deps   loop.Deps
	)
	switch mode {
	case loop.ModeHost:
		h := sim.NewHostLoop()
		h.IdlePace = cfg.Client.Pace
		runner, disp, deps.Host = h, h, h
	default:
		ml := sim.NewMainloop()
		runner, disp, deps.Mainloop = task.NewQueue(cfg.Client.Pace), ml, ml
	}
	driver, err := loop.New(mode, deps)
	if err != nil {
		return nil, err
	}

	// 3. pipeline
	instance := uuid.NewString()
	metrics := telemetry.New()
	pipe, err := pipeline.Compile(cfg, pipeline.Options{Instance: instance, Metrics: metrics, Stdout: opts.Stdout})
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.Client.Connect.InitialInterval
	bo.MaxInterval = cfg.Client.Connect.MaxInterval

	props := native.Proplist{InstanceProperty: instance}
	for k, v := range cfg.Client.Properties {
		props[k] = v
	}

	e := &Engine{
		cfg:      cfg,
		instance: instance,
		srv:      srv,
		runner:   runner,
		metrics:  metrics,
		pipe:     pipe,
		flags:    flags,
		mask:     mask,
		backoff:  bo,
		ready:    make(chan struct{}),
	}
	e.newContext = func() *pulse.Context {
		return pulse.New(srv.NewContext(disp, cfg.Client.Name, props), driver, pulse.WithObserver(metrics))
	}

	// 4. transport server; grpc_port 0 leaves it off, Backend still works
	switch {
	case opts.Listener != nil:
		e.transport = transport.Listen(opts.Listener, e, metrics)
	case cfg.Transport.GRPCPort > 0:
		e.transport, err = transport.StartServer(cfg.Transport.GRPCPort, e, metrics)
		if err != nil {
			_ = pipe.Close()
			return nil, fmt.Errorf("transport: %w", err)
		}
	}
	return e, nil
}

// SeedServer builds the simulated audio server described by c.
func SeedServer(c config.SimConfig) *sim.Server {
	srv := sim.NewServer(c.Address)
	for _, s := range c.Sinks {
		seed := sim.Sink{
			Name:        s.Name,
			Description: s.Description,
			Driver:      s.Driver,
			Channels:    uint8(s.Channels),
			Mute:        s.Mute,
			ActivePort:  s.ActivePort,
			Properties:  native.Proplist(s.Properties),
			State:       native.SinkStateIdle,
		}
		if s.VolumePercent > 0 {
			ch := seed.Channels
			if ch == 0 {
				ch = 2
			}
			seed.Volume = native.UniformVolumes(ch, native.VolumeFromPercent(s.VolumePercent))
		}
		for _, p := range s.Ports {
			seed.Ports = append(seed.Ports, native.SinkPortInfo{
				Name:        p.Name,
				Description: p.Description,
				Priority:    p.Priority,
				Available:   native.PortAvailableUnknown,
			})
		}
		srv.AddSink(seed)
	}
	return srv
}
