// Package correlation implements the ask/reply correlation registry: a
// table of pending asks keyed by a generated token, each bound to a
// deadline and a promise that the eventual reply (or timeout) resolves
// exactly once.
//
// It knows nothing about actors or mailboxes — internal/system wires an
// Instance's CorrelationResolver callback to Manager.Resolve/Fail, and the
// Manager's own Sweep method is invoked by the scheduler actor's recurring
// tick rather than running its own timer goroutine, since the scheduler is
// the system's sole source of delayed/periodic work.
package correlation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
)

// ErrTimeout is the error a pending ask resolves with when Sweep finds it
// past its deadline before a reply or explicit failure arrives.
var ErrTimeout = errors.New("correlation: ask timed out")

// ErrUnknownToken is returned by Resolve/Fail when the token has no pending
// entry (already resolved, swept, or never registered).
var ErrUnknownToken = errors.New("correlation: unknown token")

// ErrCorrelationReused is the error a Register call's Future resolves with
// immediately when token already names a pending entry.
var ErrCorrelationReused = errors.New("correlation: token already pending")

type entry struct {
	promise  actor.Promise[any]
	deadline time.Time
}

// Manager is the correlation registry. Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	pending map[string]entry
	clock   actor.Clock
}

// New creates an empty Manager. A nil clock defaults to actor.SystemClock.
func New(clock actor.Clock) *Manager {
	if clock == nil {
		clock = actor.SystemClock
	}

	return &Manager{
		pending: make(map[string]entry),
		clock:   clock,
	}
}

// NewToken generates a fresh correlation token.
func (m *Manager) NewToken() string {
	return uuid.NewString()
}

// Register creates a pending entry for token with the given timeout and
// returns its Future. If token already names a pending entry, the prior
// entry is left untouched and the returned Future is already failed with
// ErrCorrelationReused (the caller is expected to have generated token via
// NewToken, so this only fires on a genuine bug upstream).
func (m *Manager) Register(token string, timeout time.Duration) actor.Future[any] {
	promise := actor.NewPromise[any]()

	m.mu.Lock()
	if _, exists := m.pending[token]; exists {
		m.mu.Unlock()

		promise.Complete(fn.Err[any](ErrCorrelationReused))

		return promise.Future()
	}

	m.pending[token] = entry{
		promise:  promise,
		deadline: m.clock.Now().Add(timeout),
	}
	m.mu.Unlock()

	return promise.Future()
}

// Resolve completes the pending ask for token with a successful reply.
// Returns ErrUnknownToken if there is no such pending entry.
func (m *Manager) Resolve(token string, reply any) error {
	return m.complete(token, fn.Ok(reply))
}

// Fail completes the pending ask for token with an error.
func (m *Manager) Fail(token string, err error) error {
	return m.complete(token, fn.Err[any](err))
}

func (m *Manager) complete(token string, result fn.Result[any]) error {
	m.mu.Lock()
	e, ok := m.pending[token]
	if ok {
		delete(m.pending, token)
	}
	m.mu.Unlock()

	if !ok {
		return ErrUnknownToken
	}

	e.promise.Complete(result)

	return nil
}

// Sweep fails every entry whose deadline has passed as of now, resolving
// each with ErrTimeout. Returns the number of entries swept. Intended to be
// called periodically by the scheduler actor, not by its own timer,
// keeping the scheduler the single source of time-driven behavior.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var expired []entry
	for token, e := range m.pending {
		if !now.Before(e.deadline) {
			expired = append(expired, e)
			delete(m.pending, token)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		e.promise.Complete(fn.Err[any](ErrTimeout))
	}

	return len(expired)
}

// ClearAll fails every outstanding entry with ctx's error, or with
// ErrTimeout when ctx is not done (used during system shutdown so no asker
// blocks forever on a reply that will never arrive).
func (m *Manager) ClearAll(ctx context.Context) int {
	m.mu.Lock()
	all := make([]entry, 0, len(m.pending))
	for token, e := range m.pending {
		all = append(all, e)
		delete(m.pending, token)
	}
	m.mu.Unlock()

	err := ctx.Err()
	if err == nil {
		err = ErrTimeout
	}

	for _, e := range all {
		e.promise.Complete(fn.Err[any](err))
	}

	return len(all)
}

// PendingCount returns the number of asks currently awaiting resolution.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pending)
}
