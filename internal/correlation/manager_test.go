package correlation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/correlation"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestResolveCompletesFuture(t *testing.T) {
	m := correlation.New(nil)
	token := m.NewToken()

	future := m.Register(token, time.Second)

	require.NoError(t, m.Resolve(token, "pong"))

	res := future.Await(context.Background())
	val, err := res.Unpack()
	require.NoError(t, err)
	require.Equal(t, "pong", val)
}

func TestResolveUnknownTokenErrors(t *testing.T) {
	m := correlation.New(nil)

	require.ErrorIs(t, m.Resolve("nope", "x"), correlation.ErrUnknownToken)
}

func TestDoubleResolveIsIgnoredAfterFirst(t *testing.T) {
	m := correlation.New(nil)
	token := m.NewToken()

	future := m.Register(token, time.Second)
	require.NoError(t, m.Resolve(token, "first"))
	require.ErrorIs(t, m.Resolve(token, "second"), correlation.ErrUnknownToken)

	val, err := future.Await(context.Background()).Unpack()
	require.NoError(t, err)
	require.Equal(t, "first", val)
}

func TestSweepExpiresPastDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := correlation.New(clock)

	token := m.NewToken()
	future := m.Register(token, 10*time.Millisecond)

	require.Equal(t, 1, m.PendingCount())

	clock.now = clock.now.Add(time.Second)
	n := m.Sweep(clock.now)
	require.Equal(t, 1, n)
	require.Equal(t, 0, m.PendingCount())

	_, err := future.Await(context.Background()).Unpack()
	require.ErrorIs(t, err, correlation.ErrTimeout)
}

func TestClearAllFailsEveryPending(t *testing.T) {
	m := correlation.New(nil)

	f1 := m.Register(m.NewToken(), time.Minute)
	f2 := m.Register(m.NewToken(), time.Minute)

	n := m.ClearAll(context.Background())
	require.Equal(t, 2, n)

	_, err1 := f1.Await(context.Background()).Unpack()
	_, err2 := f2.Await(context.Background()).Unpack()
	require.Error(t, err1)
	require.Error(t, err2)
}
