package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"pulsefut/internal/logging"
	"pulsefut/internal/telemetry"
	"pulsefut/native"
	"pulsefut/pulse"
	"pulsefut/sink"
)

// ErrNotFound is returned by a Backend for an unknown sink.
var ErrNotFound = errors.New("not found")

// Backend is what the service needs from the daemon. Every method may be
// called from any goroutine.
type Backend interface {
	ListSinks(ctx context.Context) ([]pulse.SinkInfo, error)
	SinkByName(ctx context.Context, name string) (*pulse.SinkInfo, error)
	SinkByIndex(ctx context.Context, index uint32) (*pulse.SinkInfo, error)
	ServerInfo(ctx context.Context) (pulse.ServerInfo, error)
	SetSinkVolume(ctx context.Context, name string, percent float64) error
	SetSinkMute(ctx context.Context, name string, mute bool) error
	SetSinkPort(ctx context.Context, name, port string) error
	// Watch calls fn for every change record until the returned cancel is
	// called. fn must not block.
	Watch(fn func(sink.Record)) (cancel func())
}

// WatchBuffer bounds the records queued per watcher; a slow watcher loses
// records beyond it.
const WatchBuffer = 256

type service struct {
	b       Backend
	metrics *telemetry.Metrics
}

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
}

// NewServer wraps a gRPC server with the introspection and health services
// registered. The introspection service reports NOT_SERVING until
// SetServing(true). m may be nil.
func NewServer(b Backend, m *telemetry.Metrics) *Server {
	s := &Server{grpc: grpc.NewServer(), health: health.NewServer()}
	RegisterIntrospectServer(s.grpc, &service{b: b, metrics: m})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing reports whether the daemon holds a live audio server
// connection.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(serviceName, st)
}

// StartServer listens on port; Serve must be called to accept requests.
func StartServer(port int, b Backend, m *telemetry.Metrics) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return Listen(lis, b, m), nil
}

// Listen is StartServer on an existing listener.
func Listen(lis net.Listener, b Backend, m *telemetry.Metrics) *Server {
	s := NewServer(b, m)
	s.lis = lis
	return s
}

// Addr is the listening address, or nil before StartServer.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) Serve() error {
	if s.lis == nil {
		return errors.New("transport: no listener")
	}
	return s.grpc.Serve(s.lis)
}

// ServeListener serves on lis instead of the StartServer listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// StopGrace bounds how long Stop waits for in-flight calls. Watch streams
// only end with their client, so they are cut off after it.
const StopGrace = 2 * time.Second

func (s *Server) Stop() {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(StopGrace):
		s.grpc.Stop()
		<-done
	}
}

/*──────── handlers ───────*/

func (s *service) observe(method string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() { s.metrics.ObserveRPC(method, start) }
}

func (s *service) ListSinks(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	defer s.observe("ListSinks")()
	sinks, err := s.b.ListSinks(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	views := make([]SinkView, 0, len(sinks))
	for _, sk := range sinks {
		views = append(views, sinkView(sk))
	}
	return toStruct(struct {
		Sinks []SinkView `json:"sinks"`
	}{views})
}

func (s *service) GetSink(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	defer s.observe("GetSink")()
	var ref sinkRef
	if err := fromStruct(in, &ref); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	var (
		info *pulse.SinkInfo
		err  error
	)
	switch {
	case ref.Index != nil:
		info, err = s.b.SinkByIndex(ctx, *ref.Index)
	case ref.Name != "":
		info, err = s.b.SinkByName(ctx, ref.Name)
	default:
		return nil, status.Error(codes.InvalidArgument, "name or index is required")
	}
	if err != nil {
		return nil, toStatus(err)
	}
	if info == nil {
		return nil, status.Errorf(codes.NotFound, "no such sink")
	}
	return toStruct(sinkView(*info))
}

func (s *service) GetServerInfo(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	defer s.observe("GetServerInfo")()
	info, err := s.b.ServerInfo(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(serverView(info))
}

func (s *service) SetSinkVolume(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	defer s.observe("SetSinkVolume")()
	var req volumeRequest
	if err := fromStruct(in, &req); err != nil || req.Sink == "" || req.Percent < 0 {
		return nil, status.Error(codes.InvalidArgument, "sink and a non-negative percent are required")
	}
	if err := s.b.SetSinkVolume(ctx, req.Sink, req.Percent); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *service) SetSinkMute(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	defer s.observe("SetSinkMute")()
	var req muteRequest
	if err := fromStruct(in, &req); err != nil || req.Sink == "" {
		return nil, status.Error(codes.InvalidArgument, "sink is required")
	}
	if err := s.b.SetSinkMute(ctx, req.Sink, req.Mute); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *service) SetSinkPort(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	defer s.observe("SetSinkPort")()
	var req portRequest
	if err := fromStruct(in, &req); err != nil || req.Sink == "" || req.Port == "" {
		return nil, status.Error(codes.InvalidArgument, "sink and port are required")
	}
	if err := s.b.SetSinkPort(ctx, req.Sink, req.Port); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *service) Watch(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	var req watchRequest
	if err := fromStruct(in, &req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	mask, err := req.mask()
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	keep := func(r sink.Record) bool {
		if mask == native.MaskAll {
			return true
		}
		f, err := native.ParseFacility(r.Facility)
		return err == nil && mask.Has(f)
	}

	log := logging.Component("transport")
	ch := make(chan sink.Record, WatchBuffer)
	cancel := s.b.Watch(func(r sink.Record) {
		if !keep(r) {
			return
		}
		select {
		case ch <- r:
		default:
			log.Warn("watcher too slow, dropping record", "seq", r.Seq)
		}
	})
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-ch:
			msg, err := toStruct(r)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// toStatus maps backend failures onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, pulse.ErrOperation):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, pulse.ErrLoop), errors.Is(err, pulse.ErrConnection),
		errors.Is(err, pulse.ErrCancelled), errors.Is(err, pulse.ErrDisconnected):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
