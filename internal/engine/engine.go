package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"

	"pulsefut/internal/config"
	"pulsefut/internal/logging"
	"pulsefut/internal/pipeline"
	"pulsefut/internal/telemetry"
	"pulsefut/internal/transport"
	"pulsefut/native"
	"pulsefut/native/sim"
	"pulsefut/pulse"
	"pulsefut/task"
)

// Engine owns the connection and everything fed by it. Fields below the
// runner are confined to the runner goroutine.
type Engine struct {
	cfg       config.Config
	instance  string
	srv       *sim.Server
	runner    loopRunner
	metrics   *telemetry.Metrics
	pipe      *pipeline.Runner
	transport *transport.Server
	ready     chan struct{}

	newContext func() *pulse.Context
	flags      native.ConnectFlags
	mask       native.InterestMask
	backoff    *backoff.ExponentialBackOff
	attempt    int
	pc         *pulse.Context
	fail       func(error)
	readyOnce  bool
}

// Instance is the id stamped on this daemon's connection and records.
func (e *Engine) Instance() string { return e.instance }

// Metrics returns the daemon's collectors.
func (e *Engine) Metrics() *telemetry.Metrics { return e.metrics }

// Addr is the gRPC listening address, or nil without transport.
func (e *Engine) Addr() net.Addr {
	if e.transport == nil {
		return nil
	}
	return e.transport.Addr()
}

// Ready is closed after the first successful connection.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Post runs fn on the runner goroutine.
func (e *Engine) Post(fn func()) { e.runner.Post(fn) }

// Run connects and serves until ctx ends or the connection cannot be
// established. Shutdown stops the transport first so no request is left
// waiting on a stopped runner, then the runner, then the connection and
// the sinks.
func (e *Engine) Run(ctx context.Context) error {
	log := logging.Component("engine")
	runCtx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	e.fail = func(err error) { cancel(err) }

	if e.cfg.Metrics.Port > 0 {
		addr, err := telemetry.Expose(runCtx, e.cfg.Metrics.Port, e.metrics)
		if err != nil {
			return err
		}
		log.Info("metrics exposed", "addr", addr.String())
	}
	if e.transport != nil {
		go func() {
			if err := e.transport.Serve(); err != nil {
				cancel(fmt.Errorf("transport: %w", err))
			}
		}()
		log.Info("introspection service listening", "addr", e.transport.Addr().String())
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
		case <-runCtx.Done():
		}
		if e.transport != nil {
			e.transport.Stop()
		}
		cancel(nil)
	}()

	e.runner.Post(e.connect)
	_ = e.runner.Run(runCtx)
	<-stopped

	// The runner is stopped; this goroutine owns the library entities now.
	if e.pc != nil {
		_ = e.pc.Close()
		e.pc = nil
	}
	e.metrics.Connected.Set(0)
	err := e.pipe.Close()
	if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	log.Info("stopped", "instance", e.instance)
	return err
}

/*──────── connection lifecycle (runner goroutine) ───────*/

func (e *Engine) connect() {
	e.attempt++
	pc := e.newContext()
	f, err := pc.Connect(e.cfg.Client.Server, e.flags)
	if err != nil {
		e.retry(pc, err)
		return
	}
	task.Spawn(e.runner, f, func(_ struct{}, err error) {
		if err != nil {
			e.retry(pc, err)
			return
		}
		e.connected(pc)
	})
}

func (e *Engine) retry(pc *pulse.Context, err error) {
	log := logging.Component("engine")
	_ = pc.Close()
	limit := e.cfg.Client.Connect.Attempts
	if errors.Is(err, pulse.ErrLoop) || (limit > 0 && e.attempt >= limit) {
		log.Error("giving up on connection", "attempts", e.attempt, "err", err)
		e.fail(fmt.Errorf("engine: connect: %w", err))
		return
	}
	sleep := e.backoff.NextBackOff()
	if sleep == backoff.Stop {
		sleep = e.cfg.Client.Connect.MaxInterval
	}
	log.Warn("connection failed, retrying", "attempt", e.attempt, "in", sleep, "err", err)
	time.AfterFunc(sleep, func() { e.runner.Post(e.connect) })
}

func (e *Engine) connected(pc *pulse.Context) {
	e.pc = pc
	e.attempt = 0
	e.backoff.Reset()
	e.metrics.Connected.Set(1)
	e.setServing(true)
	logging.Component("engine").Info("connected",
		"server", e.cfg.Client.Server, "driver", pc.Driver().Mode(), "instance", e.instance)
	if !e.readyOnce {
		e.readyOnce = true
		close(e.ready)
	}

	e.pipe.Start(e.runner, pc.Subscribe(e.mask), func(err error) {
		if err == nil || e.pc != pc {
			return
		}
		e.pc = nil
		e.metrics.Connected.Set(0)
		e.setServing(false)
		e.retry(pc, err)
	})
}

func (e *Engine) setServing(ok bool) {
	if e.transport != nil {
		e.transport.SetServing(ok)
	}
}

// current returns the live connection.
func (e *Engine) current() (*pulse.Context, error) {
	if e.pc == nil {
		return nil, pulse.ErrDisconnected
	}
	return e.pc, nil
}

// Reconnect drops the current connection; the pipeline notices and
// reconnects. It must run on the runner goroutine.
func (e *Engine) Reconnect() {
	if e.pc != nil {
		e.pc.Disconnect()
	}
}
