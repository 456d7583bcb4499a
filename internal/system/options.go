package system

import (
	"time"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/directory"
	"github.com/elkhart-labs/actorcore/internal/supervisor"
)

// Config configures a System. All fields have usable zero-value defaults,
// matching the lnd-style "functional options with a sane default config"
// convention used throughout this module (e.g. internal/build's handler
// set).
type Config struct {
	// Node is this process's logical node name, used when constructing
	// addresses and registering with the directory.
	Node string

	// DefaultMailboxCapacity is used by Spawn when no
	// WithMailboxCapacity option is given.
	DefaultMailboxCapacity int

	// DefaultOverflowPolicy is used by Spawn when no
	// WithOverflowPolicy option is given.
	DefaultOverflowPolicy actor.OverflowPolicy

	// DefaultAskTimeout is used by Ask when the caller passes timeout
	// <= 0.
	DefaultAskTimeout time.Duration

	// ShutdownTimeout bounds how long Stop waits for each actor's
	// mailbox to drain before giving up.
	ShutdownTimeout time.Duration

	// SweepInterval is how often the scheduler actor sweeps expired
	// correlation entries and directory cache entries.
	SweepInterval time.Duration

	// RestartPolicy is the default restart budget for the root
	// supervisor node.
	RestartPolicy supervisor.RestartPolicy

	// Directory configures the distributed directory's cache bound,
	// TTL, and optional broadcaster.
	Directory directory.Config

	// DeadLetterCapacity bounds the in-memory dead-letter audit trail.
	DeadLetterCapacity int

	// Clock overrides the time source system-wide (tests only).
	Clock actor.Clock
}

func (c Config) withDefaults() Config {
	if c.Node == "" {
		c.Node = actor.LocalNode
	}
	if c.DefaultMailboxCapacity <= 0 {
		c.DefaultMailboxCapacity = 64
	}
	if c.DefaultAskTimeout <= 0 {
		c.DefaultAskTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Second
	}
	if c.RestartPolicy == (supervisor.RestartPolicy{}) {
		c.RestartPolicy = supervisor.DefaultRestartPolicy
	}
	if c.DeadLetterCapacity <= 0 {
		c.DeadLetterCapacity = 256
	}
	if c.Clock == nil {
		c.Clock = actor.SystemClock
	}

	return c
}

// spawnOptions collects the per-spawn overrides SpawnOption values set.
type spawnOptions struct {
	mailboxCapacity int
	overflowPolicy  actor.OverflowPolicy
	strategy        supervisor.Strategy
	parent          actor.Address
}

// SpawnOption customizes a single Spawn call.
type SpawnOption func(*spawnOptions)

// WithMailboxCapacity overrides the new actor's mailbox capacity.
func WithMailboxCapacity(n int) SpawnOption {
	return func(o *spawnOptions) { o.mailboxCapacity = n }
}

// WithOverflowPolicy overrides the new actor's mailbox overflow policy.
func WithOverflowPolicy(p actor.OverflowPolicy) SpawnOption {
	return func(o *spawnOptions) { o.overflowPolicy = p }
}

// WithStrategy sets the supervisor strategy applied to this actor's
// handler failures. Defaults to supervisor.Restart.
func WithStrategy(strategy supervisor.Strategy) SpawnOption {
	return func(o *spawnOptions) { o.strategy = strategy }
}

// WithParent attaches the new actor under the supervision subtree rooted
// at parent (typically the address of the actor calling SpawnChild)
// instead of the system's root supervisor node.
func WithParent(parent actor.Address) SpawnOption {
	return func(o *spawnOptions) { o.parent = parent }
}
