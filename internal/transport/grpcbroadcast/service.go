package grpcbroadcast

import (
	"context"

	"google.golang.org/grpc"
)

// wireAddress is the JSON wire form of an actor.Address. It mirrors the
// address fields the directory cares about (path, type, node) without
// importing the actor package's full struct shape onto the wire, so the
// wire format can stay stable even if Address grows fields later.
type wireAddress struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Node string `json:"node"`
}

type registerRequest struct {
	Address wireAddress `json:"address"`
	Node    string      `json:"node"`
}

type registerResponse struct{}

type lookupRequest struct {
	Address wireAddress `json:"address"`
}

type lookupResponse struct {
	Node  string `json:"node"`
	Found bool   `json:"found"`
}

// broadcastHandler implements the two RPCs peers call on each other:
// Register propagates a local registration outward; Lookup answers a
// peer's query for an address this node knows about.
type broadcastHandler interface {
	Register(ctx context.Context, req *registerRequest) (*registerResponse, error)
	Lookup(ctx context.Context, req *lookupRequest) (*lookupResponse, error)
}

func registerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(registerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(broadcastHandler).Register(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: serviceName + "/Register",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(broadcastHandler).Register(ctx, req.(*registerRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func lookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(lookupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(broadcastHandler).Lookup(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: serviceName + "/Lookup",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(broadcastHandler).Lookup(ctx, req.(*lookupRequest))
	}

	return interceptor(ctx, in, info, handler)
}

// serviceName is the RPC service name used in place of a protoc-generated
// package.Service path, since there is no .proto descriptor backing it.
const serviceName = "actorcore.directory.Broadcast"

// serviceDesc is the hand-built grpc.ServiceDesc standing in for a
// protoc-generated one; Server.Start wires it onto a *grpc.Server via
// RegisterService.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*broadcastHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: registerHandler},
		{MethodName: "Lookup", Handler: lookupHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/transport/grpcbroadcast/service.go",
}
