package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote Toolkit service with a bearer token.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

// Dial connects to addr. The connection is established lazily on the first
// call.
func Dial(addr, token string, opts ...grpc.DialOption) (*Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("server address must not be empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("token must not be empty")
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, token: token}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Call invokes method with req.
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	switch method {
	case MethodTransform, MethodBreak, MethodListOperations:
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
	if req == nil {
		req = &structpb.Struct{}
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Transform(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return c.Call(ctx, MethodTransform, req)
}

func (c *Client) Break(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return c.Call(ctx, MethodBreak, req)
}

func (c *Client) ListOperations(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, MethodListOperations, nil)
}
