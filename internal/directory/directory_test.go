package directory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/directory"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestRegisterAndLookupHitsRegistry(t *testing.T) {
	d := directory.New(directory.Config{})
	addr := actor.NewAddress("", "worker", "w1")

	d.Register(addr, "node-a")

	node, ok := d.Lookup(addr)
	require.True(t, ok)
	require.Equal(t, "node-a", node)
	require.Equal(t, float64(1), d.HitRate())
}

func TestLookupMissWithoutBroadcasterReturnsFalse(t *testing.T) {
	d := directory.New(directory.Config{})
	addr := actor.NewAddress("", "worker", "ghost")

	_, ok := d.Lookup(addr)
	require.False(t, ok)
	require.Equal(t, float64(0), d.HitRate())
}

func TestCacheEntryExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	broadcaster := &fakeBroadcaster{node: "node-b"}

	d := directory.New(directory.Config{
		TTL:         10 * time.Millisecond,
		Clock:       clock,
		Broadcaster: broadcaster,
	})

	addr := actor.NewAddress("", "worker", "remote1")

	node, ok := d.Lookup(addr)
	require.True(t, ok)
	require.Equal(t, "node-b", node)
	require.Equal(t, 1, broadcaster.lookups)

	// Still within TTL: served from cache, no second broadcast lookup.
	_, ok = d.Lookup(addr)
	require.True(t, ok)
	require.Equal(t, 1, broadcaster.lookups)

	clock.now = clock.now.Add(time.Second)
	require.Equal(t, 1, d.Sweep(clock.now))

	_, ok = d.Lookup(addr)
	require.True(t, ok)
	require.Equal(t, 2, broadcaster.lookups)
}

func TestCacheEvictsLeastRecentlyAccessedWhenFull(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	broadcaster := &fakeBroadcaster{node: "node-c"}

	d := directory.New(directory.Config{
		CacheCapacity: 1,
		TTL:           time.Minute,
		Clock:         clock,
		Broadcaster:   broadcaster,
	})

	a1 := actor.NewAddress("", "worker", "one")
	a2 := actor.NewAddress("", "worker", "two")

	_, ok := d.Lookup(a1)
	require.True(t, ok)

	clock.now = clock.now.Add(time.Millisecond)
	_, ok = d.Lookup(a2)
	require.True(t, ok)

	// a1 should have been evicted to make room for a2, so looking it up
	// again costs a fresh broadcast round trip.
	before := broadcaster.lookups
	_, ok = d.Lookup(a1)
	require.True(t, ok)
	require.Equal(t, before+1, broadcaster.lookups)
}

func TestListByTypeAndGetAll(t *testing.T) {
	d := directory.New(directory.Config{})
	w1 := actor.NewAddress("", "worker", "w1")
	w2 := actor.NewAddress("", "worker", "w2")
	s1 := actor.NewAddress("", "scheduler", "s1")

	d.Register(w1, "node-a")
	d.Register(w2, "node-a")
	d.Register(s1, "node-a")

	require.Len(t, d.ListByType("worker"), 2)
	require.Len(t, d.GetAll(), 3)
}

func TestSubscribeReceivesRegisterEvents(t *testing.T) {
	d := directory.New(directory.Config{})

	var got []directory.Event
	d.Subscribe("worker", func(e directory.Event) { got = append(got, e) })

	addr := actor.NewAddress("", "worker", "w1")
	d.Register(addr, "node-a")

	require.Len(t, got, 1)
	require.Equal(t, directory.Registered, got[0].Kind)
}

func TestSubscriberPanicDoesNotBreakRegister(t *testing.T) {
	d := directory.New(directory.Config{})

	d.Subscribe("", func(directory.Event) { panic("boom") })

	require.NotPanics(t, func() {
		d.Register(actor.NewAddress("", "worker", "w1"), "node-a")
	})
}

type fakeBroadcaster struct {
	node    string
	lookups int
}

func (b *fakeBroadcaster) BroadcastRegister(actor.Address, string) {}

func (b *fakeBroadcaster) BroadcastLookup(actor.Address) (string, bool) {
	b.lookups++

	return b.node, true
}
