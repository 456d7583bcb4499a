package actorutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/system"
)

// Pool distributes messages across a set of same-typed actors spawned
// under one System using round-robin scheduling: horizontal scaling for a
// workload of otherwise-independent actors without each caller needing to
// track individual addresses.
type Pool struct {
	id     string
	sys    *system.System
	addrs  []actor.Address
	next   atomic.Uint64
}

// PoolConfig configures a new Pool.
type PoolConfig struct {
	// ID prefixes each pool member's spawned id ("<ID>-<i>").
	ID string

	// Type is the actor type tag used for every pool member's address.
	Type string

	// Size is the number of actor instances to spawn. Size <= 0
	// defaults to 1.
	Size int

	// Factory builds the behavior for pool member idx.
	Factory func(idx int) actor.Behavior

	// MailboxCapacity overrides each member's mailbox capacity; zero
	// uses the system default.
	MailboxCapacity int
}

// NewPool spawns Size actors under sys and returns a Pool that
// round-robins across them.
func NewPool(sys *system.System, cfg PoolConfig) (*Pool, error) {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		id:    cfg.ID,
		sys:   sys,
		addrs: make([]actor.Address, size),
	}

	for i := 0; i < size; i++ {
		behavior := cfg.Factory(i)

		var opts []system.SpawnOption
		if cfg.MailboxCapacity > 0 {
			opts = append(opts, system.WithMailboxCapacity(cfg.MailboxCapacity))
		}

		addr, err := sys.Spawn(behavior, cfg.Type, fmt.Sprintf("%s-%d", cfg.ID, i), opts...)
		if err != nil {
			return nil, fmt.Errorf("actorutil: spawning pool member %d: %w", i, err)
		}

		p.addrs[i] = addr
	}

	return p, nil
}

// ID returns the pool's identifier.
func (p *Pool) ID() string { return p.id }

// Size returns the number of actors in the pool.
func (p *Pool) Size() int { return len(p.addrs) }

// Addresses returns a copy of every pool member's address.
func (p *Pool) Addresses() []actor.Address {
	out := make([]actor.Address, len(p.addrs))
	copy(out, p.addrs)

	return out
}

// nextAddr selects the next pool member in round-robin order.
func (p *Pool) nextAddr() actor.Address {
	idx := p.next.Add(1) % uint64(len(p.addrs))

	return p.addrs[idx]
}

// Tell sends a fire-and-forget message to the next pool member.
func (p *Pool) Tell(ctx context.Context, msg actor.Message) {
	p.sys.Send(ctx, p.nextAddr(), msg)
}

// Ask sends a correlated message to the next pool member.
func (p *Pool) Ask(ctx context.Context, msg actor.Message, timeout time.Duration) actor.Future[any] {
	return p.sys.Ask(ctx, p.nextAddr(), msg, timeout)
}

// Broadcast sends msg to every pool member.
func (p *Pool) Broadcast(ctx context.Context, msg actor.Message) {
	for _, addr := range p.addrs {
		p.sys.Send(ctx, addr, msg)
	}
}

// BroadcastAsk sends msg to every pool member and returns one Future per
// member, in pool order.
func (p *Pool) BroadcastAsk(ctx context.Context, msg actor.Message, timeout time.Duration) []actor.Future[any] {
	futures := make([]actor.Future[any], len(p.addrs))
	for i, addr := range p.addrs {
		futures[i] = p.sys.Ask(ctx, addr, msg, timeout)
	}

	return futures
}

// Stop stops every pool member.
func (p *Pool) Stop() {
	for _, addr := range p.addrs {
		p.sys.StopActor(addr)
	}
}
