package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulsefut/internal/logging"
	"pulsefut/loop"
	"pulsefut/pulse"
)

// Metrics collects the daemon's counters. It implements pulse.Observer, so
// the same value can be handed to pulse.WithObserver.
type Metrics struct {
	reg *prometheus.Registry

	LoopPolls  *prometheus.CounterVec
	Requests   *prometheus.CounterVec
	Events     *prometheus.CounterVec
	StreamEnds *prometheus.CounterVec
	SinkPushes *prometheus.CounterVec
	RPCLatency *prometheus.HistogramVec
	Connected  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		LoopPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsefut",
			Name:      "loop_polls_total",
			Help:      "Loop driver steps by driver mode and status.",
		}, []string{"mode", "status"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsefut",
			Name:      "requests_total",
			Help:      "Resolved connect and introspection futures by kind and result.",
		}, []string{"kind", "result"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsefut",
			Name:      "events_total",
			Help:      "Change notifications delivered by facility and operation.",
		}, []string{"facility", "operation"}),
		StreamEnds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsefut",
			Name:      "subscription_errors_total",
			Help:      "Subscription streams terminated, by cause.",
		}, []string{"result"}),
		SinkPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsefut",
			Name:      "sink_pushes_total",
			Help:      "Events handed to event sinks by sink and result.",
		}, []string{"sink", "result"}),
		RPCLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pulsefut",
			Name:      "rpc_duration_seconds",
			Help:      "Introspection RPC latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"method"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulsefut",
			Name:      "connected",
			Help:      "1 while the audio server connection is ready.",
		}),
	}
	m.reg.MustRegister(m.LoopPolls, m.Requests, m.Events, m.StreamEnds, m.SinkPushes, m.RPCLatency, m.Connected)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) LoopPolled(mode loop.Mode, st loop.Status) {
	m.LoopPolls.WithLabelValues(string(mode), st.String()).Inc()
}

func (m *Metrics) Resolved(kind string, err error) {
	m.Requests.WithLabelValues(kind, Result(err)).Inc()
}

func (m *Metrics) Delivered(ev pulse.Event, err error) {
	if err != nil {
		m.StreamEnds.WithLabelValues(Result(err)).Inc()
		return
	}
	m.Events.WithLabelValues(ev.Facility.String(), ev.Operation.String()).Inc()
}

// ObserveRPC records the time since start for method.
func (m *Metrics) ObserveRPC(method string, start time.Time) {
	m.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// Result maps an error to a bounded label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pulse.ErrLoop):
		return "loop"
	case errors.Is(err, pulse.ErrConnection):
		return "connection"
	case errors.Is(err, pulse.ErrCancelled):
		return "cancelled"
	case errors.Is(err, pulse.ErrSubscription):
		return "subscription"
	case errors.Is(err, pulse.ErrDisconnected):
		return "disconnected"
	case errors.Is(err, pulse.ErrOperation):
		return "operation"
	}
	return "other"
}

// Expose serves /metrics on port until ctx ends.
func Expose(ctx context.Context, port int, m *Metrics) (net.Addr, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("telemetry: listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Component("telemetry").Error("metrics server stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	return ln.Addr(), nil
}
