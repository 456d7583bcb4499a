package grpcbroadcast

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/directory"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// ListenAddr is the address the broadcast service listens on.
	ListenAddr string

	// ServerPingTime is how long the server waits before pinging an idle
	// connection. DefaultServerConfig sets 5 minutes; NewServer does not
	// fill in a zero value.
	ServerPingTime time.Duration

	// ServerPingTimeout is how long the server waits for a ping ack
	// before dropping the connection. DefaultServerConfig sets 1 minute;
	// NewServer does not fill in a zero value.
	ServerPingTimeout time.Duration
}

// DefaultServerConfig returns keepalive defaults matching long-lived,
// low-traffic inter-node connections.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:        "localhost:10109",
		ServerPingTime:    5 * time.Minute,
		ServerPingTimeout: time.Minute,
	}
}

// Server exposes a local *directory.Directory's registrations and lookups
// to peer nodes over gRPC, using a hand-built ServiceDesc and JSON codec
// since no protoc-generated stubs back this service.
type Server struct {
	cfg ServerConfig
	dir *directory.Directory

	mu         sync.Mutex
	started    bool
	grpcServer *grpc.Server
	listener   net.Listener
}

// NewServer creates a broadcast Server fronting dir.
func NewServer(cfg ServerConfig, dir *directory.Directory) *Server {
	return &Server{cfg: cfg, dir: dir}
}

// Start begins listening and serving RPCs in a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("grpcbroadcast: server already started")
	}

	lis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("grpcbroadcast: listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = lis

	s.grpcServer = grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    s.cfg.ServerPingTime,
			Timeout: s.cfg.ServerPingTimeout,
		}),
	)
	s.grpcServer.RegisterService(&serviceDesc, (*broadcastHandlerFuncs)(s))

	go func() {
		log.Debugf("grpcbroadcast: listening on %s", s.cfg.ListenAddr)
		if err := s.grpcServer.Serve(lis); err != nil {
			log.Errorf("grpcbroadcast: serve: %v", err)
		}
	}()

	s.started = true

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.grpcServer.GracefulStop()
	s.started = false
}

// broadcastHandlerFuncs adapts *Server to the broadcastHandler interface
// the hand-built ServiceDesc dispatches to.
type broadcastHandlerFuncs Server

func (s *broadcastHandlerFuncs) Register(_ context.Context, req *registerRequest) (*registerResponse, error) {
	addr := actor.Address{
		Path: req.Address.Path,
		Type: req.Address.Type,
		Node: req.Address.Node,
	}
	(*Server)(s).dir.Register(addr, req.Node)

	return &registerResponse{}, nil
}

func (s *broadcastHandlerFuncs) Lookup(_ context.Context, req *lookupRequest) (*lookupResponse, error) {
	addr := actor.Address{
		Path: req.Address.Path,
		Type: req.Address.Type,
		Node: req.Address.Node,
	}

	node, ok := (*Server)(s).dir.Lookup(addr)

	return &lookupResponse{Node: node, Found: ok}, nil
}
