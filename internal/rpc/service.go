// Package rpc exposes the toolkit over gRPC as the cipherkit.v1.Toolkit
// service. Requests and responses are google.protobuf.Struct messages, so
// clients need no generated code:
//
//	Transform      {operation|recipe, input|input_base64, params}
//	Break          {cipher, ciphertext|ciphertext_base64, max_key_length, workers, two_byte, markers}
//	ListOperations {}
//
// Every call must carry "authorization: Bearer <token>" where the token is an
// HS256 JWT issued with IssueToken.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "cipherkit.v1.Toolkit"

const (
	MethodTransform      = "Transform"
	MethodBreak          = "Break"
	MethodListOperations = "ListOperations"
)

// FullMethod returns the gRPC path of a Toolkit method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ToolkitServer is the server API for the Toolkit service.
type ToolkitServer interface {
	Transform(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Break(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOperations(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterToolkitServer attaches srv to s.
func RegisterToolkitServer(s grpc.ServiceRegistrar, srv ToolkitServer) {
	s.RegisterService(&ToolkitServiceDesc, srv)
}

// ToolkitServiceDesc describes the Toolkit service for grpc.Server.
var ToolkitServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ToolkitServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodTransform,
			Handler:    unaryHandler(MethodTransform, ToolkitServer.Transform),
		},
		{
			MethodName: MethodBreak,
			Handler:    unaryHandler(MethodBreak, ToolkitServer.Break),
		},
		{
			MethodName: MethodListOperations,
			Handler:    unaryHandler(MethodListOperations, ToolkitServer.ListOperations),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cipherkit/v1/toolkit",
}

type unaryMethod func(ToolkitServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ToolkitServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ToolkitServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
