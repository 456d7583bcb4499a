package system_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/system"
)

func counterBehavior() actor.Behavior {
	return actor.Behavior{
		Kind:           actor.KindWithContext,
		InitialContext: 0,
		Handle: func(_ context.Context, msg, state actor.Message, _ actor.Dependencies) actor.HandlerResult {
			count := state.(int)
			switch msg.(string) {
			case "inc":
				return actor.WithContext(count + 1)
			case "get":
				return actor.WithReply(count, count)
			default:
				return actor.HandlerResult{}
			}
		},
	}
}

// TestAskReturnsCurrentCounterValue mirrors scenario S1 (counter via ask).
func TestAskReturnsCurrentCounterValue(t *testing.T) {
	sys := system.New(system.Config{})
	defer sys.Stop(context.Background())

	addr, err := sys.Spawn(counterBehavior(), "counter", "c1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		sys.Send(context.Background(), addr, "inc")
	}

	require.NoError(t, sys.Flush(context.Background()))

	future := sys.Ask(context.Background(), addr, "get", time.Second)
	val, err := future.Await(context.Background()).Unpack()
	require.NoError(t, err)
	require.Equal(t, 3, val)
}

func TestAskToUnknownAddressFailsImmediately(t *testing.T) {
	sys := system.New(system.Config{})
	defer sys.Stop(context.Background())

	ghost := actor.NewAddress("", "counter", "ghost")
	future := sys.Ask(context.Background(), ghost, "get", time.Second)

	_, err := future.Await(context.Background()).Unpack()
	require.ErrorIs(t, err, system.ErrTargetNotFound)
}

func TestSendToUnknownAddressBecomesDeadLetter(t *testing.T) {
	sys := system.New(system.Config{})
	defer sys.Stop(context.Background())

	ghost := actor.NewAddress("", "counter", "ghost")
	sys.Send(context.Background(), ghost, "inc")

	require.Eventually(t, func() bool {
		return len(sys.DeadLetters()) == 1
	}, time.Second, time.Millisecond)
}

func TestSpawnRegistersWithDirectory(t *testing.T) {
	sys := system.New(system.Config{})
	defer sys.Stop(context.Background())

	addr, err := sys.Spawn(counterBehavior(), "counter", "c2")
	require.NoError(t, err)

	node, ok := sys.Directory().Lookup(addr)
	require.True(t, ok)
	require.Equal(t, actor.LocalNode, node)
}

func TestDoubleSpawnSameAddressFails(t *testing.T) {
	sys := system.New(system.Config{})
	defer sys.Stop(context.Background())

	_, err := sys.Spawn(counterBehavior(), "counter", "dup")
	require.NoError(t, err)

	_, err = sys.Spawn(counterBehavior(), "counter", "dup")
	require.ErrorIs(t, err, system.ErrAlreadySpawned)
}

func TestStopIsIdempotentAndDrainsActors(t *testing.T) {
	sys := system.New(system.Config{})

	_, err := sys.Spawn(counterBehavior(), "counter", "c3")
	require.NoError(t, err)

	sys.Stop(context.Background())
	require.NotPanics(t, func() { sys.Stop(context.Background()) })
}
