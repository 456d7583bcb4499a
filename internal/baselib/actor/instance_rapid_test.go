package actor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
)

// recordingBehavior appends every delivered int message to a shared slice,
// in delivery order, so a test can assert FIFO processing.
func recordingBehavior(order *[]int) actor.Behavior {
	return actor.Behavior{
		Kind: actor.KindStateless,
		Handle: func(_ context.Context, msg, _ actor.Message, _ actor.Dependencies) actor.HandlerResult {
			*order = append(*order, msg.(int))

			return actor.HandlerResult{}
		},
	}
}

// TestMailboxPreservesFIFOOrderPerSender is a property test: for any
// sequence of int messages delivered by one sender to one actor, the
// actor processes them in exactly the order they were enqueued.
func TestMailboxPreservesFIFOOrderPerSender(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		messages := make([]int, n)
		for i := range messages {
			messages[i] = i
		}

		processed := make([]int, 0, n)
		addr := actor.NewAddress("", "recorder", "r1")
		inst := actor.NewInstance(actor.InstanceConfig{
			Address:         addr,
			Behavior:        recordingBehavior(&processed),
			MailboxCapacity: n + 1,
			Dependencies: func(i *actor.Instance) actor.Dependencies {
				return actor.Dependencies{
					Self:  addr,
					Send:  func(context.Context, actor.Address, actor.Message) {},
					Emit:  func(actor.DomainEvent) {},
					Clock: actor.SystemClock,
				}
			},
		})
		require.NoError(t, inst.Start())

		for _, m := range messages {
			_, err := inst.Deliver(actor.Envelope{Message: m})
			require.NoError(t, err)
		}

		inst.Stop()
		require.NoError(t, inst.Wait(context.Background()))

		require.Equal(t, messages, processed)
	})
}
