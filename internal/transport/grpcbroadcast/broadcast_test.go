package grpcbroadcast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/directory"
	"github.com/elkhart-labs/actorcore/internal/transport/grpcbroadcast"
)

func TestClientRegisterAndLookupRoundTripThroughServer(t *testing.T) {
	peerDir := directory.New(directory.Config{})

	srv := grpcbroadcast.NewServer(grpcbroadcast.ServerConfig{
		ListenAddr:        "127.0.0.1:17171",
		ServerPingTime:    5 * time.Minute,
		ServerPingTimeout: time.Minute,
	}, peerDir)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	client, err := grpcbroadcast.DialClient("127.0.0.1:17171")
	require.NoError(t, err)
	defer client.Close()

	addr := actor.NewAddress("peer-node", "worker", "one")
	peerDir.Register(addr, "peer-node")

	node, ok := client.BroadcastLookup(addr)
	require.True(t, ok)
	require.Equal(t, "peer-node", node)

	unknown := actor.NewAddress("peer-node", "worker", "missing")
	_, ok = client.BroadcastLookup(unknown)
	require.False(t, ok)

	remoteAddr := actor.NewAddress("local-node", "worker", "two")
	client.BroadcastRegister(remoteAddr, "local-node")

	got, ok := peerDir.Lookup(remoteAddr)
	require.True(t, ok)
	require.Equal(t, "local-node", got)
}
