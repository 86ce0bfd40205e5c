package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"pulsefut/sink"
)

type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to a daemon at target, e.g. "localhost:50071".
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", target, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient uses an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) ListSinks(ctx context.Context) ([]SinkView, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("ListSinks"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	var resp struct {
		Sinks []SinkView `json:"sinks"`
	}
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Sinks, nil
}

func (c *Client) getSink(ctx context.Context, ref sinkRef) (SinkView, error) {
	in, err := toStruct(ref)
	if err != nil {
		return SinkView{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetSink"), in, out); err != nil {
		return SinkView{}, err
	}
	var v SinkView
	err = fromStruct(out, &v)
	return v, err
}

func (c *Client) SinkByName(ctx context.Context, name string) (SinkView, error) {
	return c.getSink(ctx, sinkRef{Name: name})
}

func (c *Client) SinkByIndex(ctx context.Context, index uint32) (SinkView, error) {
	return c.getSink(ctx, sinkRef{Index: &index})
}

func (c *Client) ServerInfo(ctx context.Context) (ServerView, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetServerInfo"), &emptypb.Empty{}, out); err != nil {
		return ServerView{}, err
	}
	var v ServerView
	err := fromStruct(out, &v)
	return v, err
}

func (c *Client) set(ctx context.Context, method string, req any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, fullMethod(method), in, &emptypb.Empty{})
}

func (c *Client) SetSinkVolume(ctx context.Context, sinkName string, percent float64) error {
	return c.set(ctx, "SetSinkVolume", volumeRequest{Sink: sinkName, Percent: percent})
}

func (c *Client) SetSinkMute(ctx context.Context, sinkName string, mute bool) error {
	return c.set(ctx, "SetSinkMute", muteRequest{Sink: sinkName, Mute: mute})
}

func (c *Client) SetSinkPort(ctx context.Context, sinkName, port string) error {
	return c.set(ctx, "SetSinkPort", portRequest{Sink: sinkName, Port: port})
}

// Watch streams change records to fn until ctx ends, the server goes away
// or fn returns false. An empty facility list selects everything.
func (c *Client) Watch(ctx context.Context, facilities []string, fn func(sink.Record) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := c.cc.NewStream(ctx, &introspectDesc.Streams[0], fullMethod("Watch"))
	if err != nil {
		return err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	in, err := toStruct(watchRequest{Facilities: facilities})
	if err != nil {
		return err
	}
	if err := x.SendMsg(in); err != nil {
		return err
	}
	if err := x.CloseSend(); err != nil {
		return err
	}
	for {
		msg, err := x.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		var r sink.Record
		if err := fromStruct(msg, &r); err != nil {
			return err
		}
		if !fn(r) {
			return nil
		}
	}
}
