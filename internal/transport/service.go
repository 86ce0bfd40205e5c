package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "pulsefut.v1.Introspect"

// IntrospectServer is the server side of pulsefut.v1.Introspect.
type IntrospectServer interface {
	ListSinks(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSink(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetServerInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetSinkVolume(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetSinkMute(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetSinkPort(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Watch(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

func unary[Req proto.Message, Res proto.Message](name string, newReq func() Req, call func(IntrospectServer, context.Context, Req) (Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IntrospectServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IntrospectServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty   { return &emptypb.Empty{} }
func newStruct() *structpb.Struct { return &structpb.Struct{} }

var introspectDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*IntrospectServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListSinks", newEmpty, IntrospectServer.ListSinks),
		unary("GetSink", newStruct, IntrospectServer.GetSink),
		unary("GetServerInfo", newEmpty, IntrospectServer.GetServerInfo),
		unary("SetSinkVolume", newStruct, IntrospectServer.SetSinkVolume),
		unary("SetSinkMute", newStruct, IntrospectServer.SetSinkMute),
		unary("SetSinkPort", newStruct, IntrospectServer.SetSinkPort),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := newStruct()
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(IntrospectServer).Watch(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
			},
		},
	},
	Metadata: "pulsefut/v1/introspect",
}

// RegisterIntrospectServer registers impl on s.
func RegisterIntrospectServer(s grpc.ServiceRegistrar, impl IntrospectServer) {
	s.RegisterService(&introspectDesc, impl)
}
