package supervisor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/supervisor"
)

func deps(self actor.Address) actor.DependenciesFactory {
	return func(*actor.Instance) actor.Dependencies {
		return actor.Dependencies{
			Self:  self,
			Send:  func(context.Context, actor.Address, actor.Message) {},
			Emit:  func(actor.DomainEvent) {},
			Clock: actor.SystemClock,
		}
	}
}

func panicBehavior() actor.Behavior {
	return actor.Behavior{
		Kind:           actor.KindWithContext,
		InitialContext: 0,
		Handle: func(_ context.Context, msg, state actor.Message, _ actor.Dependencies) actor.HandlerResult {
			if msg.(string) == "boom" {
				panic("kaboom")
			}
			return actor.WithContext(state.(int) + 1)
		},
	}
}

func newChildInstance(addr actor.Address, parent actor.FailureNotifier) *actor.Instance {
	return actor.NewInstance(actor.InstanceConfig{
		Address:         addr,
		Behavior:        panicBehavior(),
		MailboxCapacity: 8,
		Dependencies:    deps(addr),
		Parent:          parent,
	})
}

func TestResumeStrategyKeepsChildAlive(t *testing.T) {
	addr := actor.NewAddress("", "worker", "r1")
	node := supervisor.NewNode(actor.NewAddress("", "supervisor", "root"), nil, supervisor.DefaultRestartPolicy, nil)

	inst := newChildInstance(addr, node)
	node.Attach(addr, inst, supervisor.Resume, func() (*actor.Instance, error) {
		return newChildInstance(addr, node), nil
	})
	require.NoError(t, inst.Start())

	_, err := inst.Deliver(actor.Envelope{Message: "boom"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return inst.Snapshot().State == actor.Running
	}, time.Second, time.Millisecond)

	inst.Stop()
	require.NoError(t, inst.Wait(context.Background()))
}

func TestRestartStrategyReplacesChild(t *testing.T) {
	addr := actor.NewAddress("", "worker", "r2")
	node := supervisor.NewNode(actor.NewAddress("", "supervisor", "root"), nil,
		supervisor.RestartPolicy{MaxRestarts: 5, Window: time.Minute, RestartDelay: time.Millisecond}, nil)

	var spawned atomic.Int32
	var current *actor.Instance

	spawn := func() (*actor.Instance, error) {
		spawned.Add(1)
		current = newChildInstance(addr, node)

		return current, nil
	}

	current = newChildInstance(addr, node)
	node.Attach(addr, current, supervisor.Restart, spawn)
	require.NoError(t, current.Start())

	_, err := current.Deliver(actor.Envelope{Message: "boom"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return spawned.Load() == 1
	}, time.Second, time.Millisecond)
}

func TestRestartBudgetExhaustionStopsChild(t *testing.T) {
	addr := actor.NewAddress("", "worker", "r3")

	var exceeded atomic.Int32
	node := supervisor.NewNode(actor.NewAddress("", "supervisor", "root"), nil,
		supervisor.RestartPolicy{MaxRestarts: 1, Window: time.Minute, RestartDelay: 0}, nil)
	node.OnRestartLimitExceeded = func(actor.Address, error) { exceeded.Add(1) }

	spawn := func() (*actor.Instance, error) {
		return newChildInstance(addr, node), nil
	}

	inst := newChildInstance(addr, node)
	node.Attach(addr, inst, supervisor.Restart, spawn)

	node.OnChildFailure(addr, errors.New("first"))
	node.OnChildFailure(addr, errors.New("second"))

	require.Eventually(t, func() bool {
		return exceeded.Load() == 1
	}, time.Second, time.Millisecond)
}
