package grpcbroadcast

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
)

// Client implements directory.Broadcaster over a gRPC connection to one
// peer node. A Directory accepts a single Broadcaster, so one Client links
// it to exactly one peer; this package provides no type that fans one
// Directory out to several peers.
type Client struct {
	cc      *grpc.ClientConn
	timeout time.Duration
}

// DialClient connects to a peer's broadcast Server at addr.
func DialClient(addr string) (*Client, error) {
	cc, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, err
	}

	return &Client{cc: cc, timeout: 5 * time.Second}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.cc.Close()
}

// BroadcastRegister implements directory.Broadcaster by invoking the
// peer's Register RPC. Errors are logged rather than returned since
// Directory.Register has no error return to propagate them through.
func (c *Client) BroadcastRegister(addr actor.Address, node string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req := &registerRequest{
		Address: wireAddress{Path: addr.Path, Type: addr.Type, Node: addr.Node},
		Node:    node,
	}
	resp := new(registerResponse)

	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Register", req, resp); err != nil {
		log.Warnf("grpcbroadcast: register %s on peer: %v", addr.Path, err)
	}
}

// BroadcastLookup implements directory.Broadcaster by invoking the peer's
// Lookup RPC.
func (c *Client) BroadcastLookup(addr actor.Address) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req := &lookupRequest{
		Address: wireAddress{Path: addr.Path, Type: addr.Type, Node: addr.Node},
	}
	resp := new(lookupResponse)

	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Lookup", req, resp); err != nil {
		log.Warnf("grpcbroadcast: lookup %s on peer: %v", addr.Path, err)

		return "", false
	}

	return resp.Node, resp.Found
}
