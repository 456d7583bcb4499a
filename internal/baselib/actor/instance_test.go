package actor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
)

// noopDeps builds a minimal Dependencies bundle for tests that don't need a
// real system wired in.
func noopDeps(self actor.Address) actor.DependenciesFactory {
	return func(i *actor.Instance) actor.Dependencies {
		return actor.Dependencies{
			Self:  self,
			Send:  func(context.Context, actor.Address, actor.Message) {},
			Emit:  func(actor.DomainEvent) {},
			Clock: actor.SystemClock,
		}
	}
}

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

func TestInstanceStartIsIdempotent(t *testing.T) {
	addr := actor.NewAddress("", "counter", "a1")
	inst := actor.NewInstance(actor.InstanceConfig{
		Address:         addr,
		Behavior:        counterBehavior(),
		MailboxCapacity: 8,
		Dependencies:    noopDeps(addr),
	})

	require.NoError(t, inst.Start())
	require.ErrorIs(t, inst.Start(), actor.ErrNotIdle)

	inst.Stop()
	require.NoError(t, inst.Wait(context.Background()))
}

func TestInstanceProcessesInOrderAndReplies(t *testing.T) {
	addr := actor.NewAddress("", "counter", "a2")
	inst := actor.NewInstance(actor.InstanceConfig{
		Address:         addr,
		Behavior:        counterBehavior(),
		MailboxCapacity: 8,
		Dependencies:    noopDeps(addr),
	})
	require.NoError(t, inst.Start())

	for i := 0; i < 5; i++ {
		_, err := inst.Deliver(actor.Envelope{Message: "inc"})
		require.NoError(t, err)
	}

	promise := actor.NewPromise[any]()
	_, err := inst.Deliver(actor.Envelope{Message: "get", ReplyPromise: promise})
	require.NoError(t, err)

	res := promise.Future().Await(context.Background())
	val, err := res.Unpack()
	require.NoError(t, err)
	require.Equal(t, 5, val)

	inst.Stop()
	require.NoError(t, inst.Wait(context.Background()))
}

func TestInstanceEntersErrorOnPanicAndResumes(t *testing.T) {
	addr := actor.NewAddress("", "flaky", "a3")

	var failOnce sync.Once
	behavior := actor.Behavior{
		Kind:           actor.KindWithContext,
		InitialContext: 0,
		Handle: func(_ context.Context, msg, state actor.Message, _ actor.Dependencies) actor.HandlerResult {
			if msg.(string) == "boom" {
				panic("kaboom")
			}
			return actor.WithContext(state.(int) + 1)
		},
	}
	_ = failOnce

	inst := actor.NewInstance(actor.InstanceConfig{
		Address:         addr,
		Behavior:        behavior,
		MailboxCapacity: 8,
		Dependencies:    noopDeps(addr),
	})
	require.NoError(t, inst.Start())

	_, err := inst.Deliver(actor.Envelope{Message: "boom"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return inst.Snapshot().State == actor.ErrorState
	}, time.Second, time.Millisecond)

	inst.Resume()

	require.Eventually(t, func() bool {
		return inst.Snapshot().State == actor.Running
	}, time.Second, time.Millisecond)

	inst.Stop()
	require.NoError(t, inst.Wait(context.Background()))
}

func TestInstanceDeliverFailsWhenNotRunning(t *testing.T) {
	addr := actor.NewAddress("", "counter", "a4")
	inst := actor.NewInstance(actor.InstanceConfig{
		Address:         addr,
		Behavior:        counterBehavior(),
		MailboxCapacity: 8,
		Dependencies:    noopDeps(addr),
	})

	_, err := inst.Deliver(actor.Envelope{Message: "inc"})
	require.ErrorIs(t, err, actor.ErrNotRunning)
}
