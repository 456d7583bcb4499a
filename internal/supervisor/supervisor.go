// Package supervisor implements the supervision tree: per-child restart
// strategies, a sliding-window restart budget whose exhaustion stops the
// child permanently, and escalation up the tree to a root sink.
//
// A Node implements actor.FailureNotifier, so internal/system wires an
// Instance's Parent field directly to the owning Node — no separate
// adapter layer.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
)

// Strategy selects what a supervisor does when a child's handler fails.
type Strategy int

const (
	// Resume leaves the child's context untouched and lets it keep
	// processing its mailbox.
	Resume Strategy = iota

	// Restart discards the child's context, replacing it with a fresh
	// instance from the same behavior, subject to the restart budget.
	Restart

	// Stop permanently stops the child; it is not replaced.
	Stop

	// Escalate forwards the failure to this supervisor's own parent, as
	// if the supervisor node itself had failed.
	Escalate
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case Resume:
		return "resume"
	case Restart:
		return "restart"
	case Stop:
		return "stop"
	case Escalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// RestartPolicy bounds how many times Restart may fire within a sliding
// window before the supervisor gives up and stops the child instead.
type RestartPolicy struct {
	MaxRestarts   int
	Window        time.Duration
	RestartDelay  time.Duration
}

// DefaultRestartPolicy mirrors a conservative default: 3 restarts per
// minute, with a short settle delay between stop and respawn.
var DefaultRestartPolicy = RestartPolicy{
	MaxRestarts:  3,
	Window:       time.Minute,
	RestartDelay: 100 * time.Millisecond,
}

// Spawner rebuilds a fresh, unstarted Instance for a child address, reusing
// its original behavior and configuration. internal/system supplies this so
// the supervisor package never needs to know how instances are assembled.
type Spawner func() (*actor.Instance, error)

type child struct {
	addr     actor.Address
	instance *actor.Instance
	strategy Strategy
	spawn    Spawner
	restarts []time.Time
}

// Node is one level of the supervision tree.
type Node struct {
	self   actor.Address
	parent actor.FailureNotifier
	policy RestartPolicy
	clock  actor.Clock

	// OnUnhandled is invoked when a failure escalates past the root (no
	// parent to forward to).
	OnUnhandled func(addr actor.Address, err error)

	// OnRestartLimitExceeded is invoked when a child's restart budget is
	// exhausted and its effective strategy is converted to Stop.
	OnRestartLimitExceeded func(addr actor.Address, cause error)

	mu       sync.Mutex
	children map[string]*child
}

// NewNode creates a supervision node. parent may be nil for the root node.
func NewNode(self actor.Address, parent actor.FailureNotifier, policy RestartPolicy, clock actor.Clock) *Node {
	if clock == nil {
		clock = actor.SystemClock
	}

	return &Node{
		self:     self,
		parent:   parent,
		policy:   policy,
		clock:    clock,
		children: make(map[string]*child),
	}
}

// Attach registers a running child instance under this node with the given
// strategy and respawn factory.
func (n *Node) Attach(addr actor.Address, inst *actor.Instance, strategy Strategy, spawn Spawner) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.children[addr.Path] = &child{
		addr:     addr,
		instance: inst,
		strategy: strategy,
		spawn:    spawn,
	}
}

// Detach removes a child from supervision (it has stopped permanently and
// will not be respawned).
func (n *Node) Detach(addr actor.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.children, addr.Path)
}

// Children returns the addresses currently supervised by this node.
func (n *Node) Children() []actor.Address {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]actor.Address, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c.addr)
	}

	return out
}

// RestartCounts returns, for each currently-supervised child, the number of
// restarts still counted within the active sliding window.
func (n *Node) RestartCounts() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(map[string]int, len(n.children))
	for path, c := range n.children {
		out[path] = len(c.restarts)
	}

	return out
}

// OnChildFailure implements actor.FailureNotifier. It applies the failed
// child's strategy, respawning or escalating as needed.
func (n *Node) OnChildFailure(addr actor.Address, err error) {
	n.mu.Lock()
	c, ok := n.children[addr.Path]
	n.mu.Unlock()

	if !ok {
		// Unknown child (already detached); nothing to do but make sure
		// the failure isn't silently lost.
		n.escalate(addr, err)

		return
	}

	switch c.strategy {
	case Resume:
		c.instance.Resume()

	case Stop:
		c.instance.Stop()
		n.Detach(addr)

	case Escalate:
		n.escalate(addr, err)

	case Restart:
		n.restart(c, err)
	}
}

// restart enforces the sliding-window restart budget before stopping the
// old instance and spawning a replacement. Exceeding the budget converts
// the effective strategy to Stop: the child is stopped permanently,
// unsupervised, and an ExceededRestartLimit notification fires in its
// place, rather than restarting again or escalating.
func (n *Node) restart(c *child, cause error) {
	now := n.clock.Now()

	n.mu.Lock()
	c.restarts = prune(c.restarts, now, n.policy.Window)
	if len(c.restarts) >= n.policy.MaxRestarts {
		n.mu.Unlock()
		log.Warnf("%s: restart budget exhausted, stopping permanently: %v", c.addr, cause)

		c.instance.Stop()
		n.Detach(c.addr)

		if n.OnRestartLimitExceeded != nil {
			n.OnRestartLimitExceeded(c.addr, cause)
		}

		return
	}
	c.restarts = append(c.restarts, now)
	n.mu.Unlock()

	log.Debugf("%s: restarting after failure: %v", c.addr, cause)

	go func() {
		c.instance.Stop()
		_ = c.instance.Wait(context.Background())

		if n.policy.RestartDelay > 0 {
			time.Sleep(n.policy.RestartDelay)
		}

		fresh, err := c.spawn()
		if err != nil {
			n.escalate(c.addr, err)

			return
		}

		n.mu.Lock()
		c.instance = fresh
		n.mu.Unlock()

		_ = fresh.Start()
	}()
}

func (n *Node) escalate(addr actor.Address, err error) {
	if n.parent != nil {
		n.parent.OnChildFailure(addr, err)

		return
	}

	if n.OnUnhandled != nil {
		n.OnUnhandled(addr, err)
	} else {
		log.Errorf("%s: unhandled failure at root supervisor: %v", addr, err)
	}
}

func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)

	out := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}

	return out
}
