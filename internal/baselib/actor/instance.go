package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// State is a node in the actor lifecycle graph:
//
//	Idle -> Starting -> Running -> Stopping -> Stopped
//	                     |
//	                     v
//	                   Error (terminal until a supervisor acts)
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Stopped
	ErrorState
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case ErrorState:
		return "error"
	default:
		return "unknown"
	}
}

// Counters are the accumulated per-actor statistics.
type Counters struct {
	Received  uint64
	Processed uint64
	Errors    uint64
	StartedAt time.Time
}

// Snapshot is the read-only view Snapshot() returns: a copy, never a live
// reference, so callers besides the dispatcher goroutine can never observe
// (or cause) a torn read of context — context mutation is only observable
// at message boundaries.
type Snapshot struct {
	Address  Address
	State    State
	Context  Message
	Counters Counters
}

// FailureNotifier is implemented by a supervisor node: the hook an Instance
// calls into when its handler fails.
type FailureNotifier interface {
	OnChildFailure(addr Address, err error)
}

// DependenciesFactory builds the Dependencies bundle injected into a
// specific actor's handler invocations. It's a factory rather than a fixed
// value because Dependencies.Self differs per instance and
// Send/Ask/SpawnChild close over the owning system.
type DependenciesFactory func(self *Instance) Dependencies

// CorrelationResolver is how an Instance reports an ask reply (or handler
// failure with a pending correlation token) back to the correlation
// manager. Wired in by internal/system so this package stays independent
// of internal/correlation.
type CorrelationResolver func(token string, reply Message, err error)

// InstanceConfig configures a new Instance.
type InstanceConfig struct {
	Address             Address
	Behavior            Behavior
	MailboxCapacity     int
	OverflowPolicy      OverflowPolicy
	DeadLetter          func(Envelope)
	Parent              FailureNotifier
	Clock               Clock
	Dependencies        DependenciesFactory
	ResolveCorrelation  CorrelationResolver
	Wg                  *sync.WaitGroup
}

// Instance is one running actor: mailbox + behavior + context + lifecycle
// state, dispatched by a single goroutine using per-actor single-threaded
// cooperative scheduling. Generalized from a compile-time message/response
// type pair to a dynamic Message model, and extended with a named
// lifecycle state machine, counters, and supervisor failure notification.
type Instance struct {
	addr     Address
	behavior Behavior
	mailbox  Mailbox

	deadLetter         func(Envelope)
	parent             FailureNotifier
	clock              Clock
	depsFn             DependenciesFactory
	resolveCorrelation CorrelationResolver

	mu      sync.RWMutex
	state   State
	context Message

	received  atomic.Uint64
	processed atomic.Uint64
	errs      atomic.Uint64
	startedAt time.Time

	subsMu      sync.Mutex
	subscribers map[string]Address

	stopCh    chan struct{}
	stopOnce  sync.Once
	resumeCh  chan struct{}
	doneCh    chan struct{}
	wg        *sync.WaitGroup
}

// NewInstance creates an Instance in the Idle state. Start must be called
// before it will process any messages.
func NewInstance(cfg InstanceConfig) *Instance {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}

	return &Instance{
		addr:               cfg.Address,
		behavior:           cfg.Behavior,
		mailbox:            NewMailbox(cfg.MailboxCapacity, cfg.OverflowPolicy),
		deadLetter:         cfg.DeadLetter,
		parent:             cfg.Parent,
		clock:              clock,
		depsFn:             cfg.Dependencies,
		resolveCorrelation: cfg.ResolveCorrelation,
		subscribers:        make(map[string]Address),
		stopCh:             make(chan struct{}),
		resumeCh:           make(chan struct{}, 1),
		doneCh:             make(chan struct{}),
		wg:                 cfg.Wg,
	}
}

// Address returns this actor's stable identity.
func (i *Instance) Address() Address { return i.addr }

// Start transitions Idle -> Starting -> Running, invoking the behavior's
// start hook exactly once, then launches the dispatch goroutine. Calling
// Start when not Idle returns ErrNotIdle and has no effect (idempotent
// start).
func (i *Instance) Start() error {
	i.mu.Lock()
	if i.state != Idle {
		i.mu.Unlock()
		return ErrNotIdle
	}
	i.state = Starting
	i.mu.Unlock()

	deps := i.depsFn(i)

	var initial Message
	if i.behavior.OnStart != nil {
		initial = i.behavior.OnStart(context.Background(), deps)
	} else {
		initial = i.behavior.InitialContext
	}

	i.mu.Lock()
	i.context = initial
	i.state = Running
	i.mu.Unlock()

	i.startedAt = i.clock.Now()

	if i.wg != nil {
		i.wg.Add(1)
	}

	log.DebugS(context.Background(), "actor starting", "addr", i.addr.Path)

	go i.dispatch()

	return nil
}

// Deliver enqueues env into this actor's mailbox, applying the configured
// overflow policy. Fails with ErrNotRunning if the actor isn't Running.
func (i *Instance) Deliver(env Envelope) (EnqueueVerdict, error) {
	i.mu.RLock()
	state := i.state
	i.mu.RUnlock()

	if state != Running {
		return Failed, ErrNotRunning
	}

	if env.EnqueuedAt.IsZero() {
		env.EnqueuedAt = i.clock.Now()
	}

	verdict := i.mailbox.Enqueue(env)
	switch verdict {
	case Enqueued, DroppedOldest:
		i.received.Add(1)

	case DroppedNewest:
		if i.deadLetter != nil {
			i.deadLetter(env)
		}

	case Failed:
		if i.deadLetter != nil {
			i.deadLetter(env)
		}
		return verdict, ErrMailboxFull
	}

	return verdict, nil
}

// Resume transitions an Errored actor back to Running, preserving context,
// per the supervisor "resume" strategy. A no-op if the actor isn't
// currently Errored.
func (i *Instance) Resume() {
	i.mu.Lock()
	if i.state != ErrorState {
		i.mu.Unlock()
		return
	}
	i.mu.Unlock()

	select {
	case i.resumeCh <- struct{}{}:
	default:
	}
}

// Stop transitions Running -> Stopping, closes the mailbox for new sends,
// and signals the dispatch loop to drain whatever is already buffered
// before invoking the stop hook and transitioning to Stopped. Idempotent.
func (i *Instance) Stop() {
	i.stopOnce.Do(func() {
		i.mu.Lock()
		prev := i.state
		if prev == Stopped {
			i.mu.Unlock()
			return
		}
		i.state = Stopping
		i.mu.Unlock()

		i.mailbox.CloseForNewSends()
		close(i.stopCh)

		if prev == Idle {
			// The dispatch goroutine never started; finish
			// synchronously so Wait() doesn't block forever.
			i.finishStop()
			close(i.doneCh)
		}
	})
}

// Wait blocks until the dispatch goroutine has fully exited (the stop hook
// has run and the actor is Stopped) or ctx is done, whichever comes first.
func (i *Instance) Wait(ctx context.Context) error {
	select {
	case <-i.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a read-only copy of {state, context, counters}.
func (i *Instance) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return Snapshot{
		Address: i.addr,
		State:   i.state,
		Context: i.context,
		Counters: Counters{
			Received:  i.received.Load(),
			Processed: i.processed.Load(),
			Errors:    i.errs.Load(),
			StartedAt: i.startedAt,
		},
	}
}

// MailboxSize returns the number of envelopes currently buffered, used by
// the owning system to decide when a drain has finished.
func (i *Instance) MailboxSize() int {
	return i.mailbox.Size()
}

// Subscribe adds addr to this actor's subscriber set for Emit delivery.
// Subscribers are tracked by address only: delivery always re-resolves the
// live instance through the directory rather than holding a strong
// reference.
func (i *Instance) Subscribe(addr Address) {
	i.subsMu.Lock()
	defer i.subsMu.Unlock()

	i.subscribers[addr.Path] = addr
}

// Unsubscribe removes addr from the subscriber set.
func (i *Instance) Unsubscribe(addr Address) {
	i.subsMu.Lock()
	defer i.subsMu.Unlock()

	delete(i.subscribers, addr.Path)
}

// Subscribers returns a snapshot of the current subscriber set.
func (i *Instance) Subscribers() []Address {
	i.subsMu.Lock()
	defer i.subsMu.Unlock()

	out := make([]Address, 0, len(i.subscribers))
	for _, a := range i.subscribers {
		out = append(out, a)
	}

	return out
}

// dispatch is the single-threaded message loop. It ranges over
// the mailbox's receive iterator, which blocks when empty and stops once
// CloseForNewSends has fired and the buffer is empty — so a Stop() drains
// whatever was already enqueued before the stop hook runs, matching the
// teacher's `for env := range a.mailbox.Receive(a.ctx)` loop in
// internal/baselib/actor/actor.go.
func (i *Instance) dispatch() {
	if i.wg != nil {
		defer i.wg.Done()
	}
	defer close(i.doneCh)

	for env := range i.mailbox.Receive(i.stopCh) {
		i.processOne(env)

		if i.isErrored() {
			if !i.waitForResumeOrStop() {
				break
			}
		}
	}

	i.finishStop()
}

func (i *Instance) isErrored() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.state == ErrorState
}

// waitForResumeOrStop blocks a supervisor-paused dispatcher until either
// Resume() or Stop() is called, returning false in the latter case so the
// caller can exit the dispatch loop.
func (i *Instance) waitForResumeOrStop() bool {
	select {
	case <-i.resumeCh:
		i.mu.Lock()
		i.state = Running
		i.mu.Unlock()

		return true

	case <-i.stopCh:
		return false
	}
}

// processOne runs one envelope through the handler and applies its result:
// commit context, deliver a reply, publish emitted events, and execute any
// follow-up plan instructions.
func (i *Instance) processOne(env Envelope) {
	i.mu.RLock()
	state := i.context
	i.mu.RUnlock()

	deps := i.depsFn(i)

	result, failure := i.safeInvoke(env, state, deps)
	if failure != nil {
		i.handleFailure(env, failure)
		return
	}

	if result.HasContext {
		i.mu.Lock()
		i.context = result.Context
		i.mu.Unlock()
	}

	if i.behavior.Kind == KindWithMachine && i.behavior.Machine != nil {
		i.mu.Lock()
		i.context = i.behavior.Machine.Tick(env.Message, i.context)
		i.mu.Unlock()
	}

	if result.HasReply {
		i.deliverReply(env, result.Reply)
	}

	for _, ev := range result.Emit {
		i.publish(ev)
	}

	for _, instr := range result.Plan {
		i.execInstruction(instr, deps)
	}

	i.processed.Add(1)
}

// safeInvoke calls the behavior handler, converting a panic into a returned
// error instead of crashing the dispatch goroutine.
func (i *Instance) safeInvoke(env Envelope, state Message,
	deps Dependencies) (result HandlerResult, failure error) {

	defer func() {
		if r := recover(); r != nil {
			failure = fmt.Errorf("actor %s: handler panic: %v", i.addr.Path, r)
		}
	}()

	return i.behavior.Handle(context.Background(), env.Message, state, deps), nil
}

// handleFailure increments the error counter, marks the actor Errored,
// notifies the parent supervisor, and leaves context untouched. A pending
// ask on this envelope (if any) is failed immediately rather than left to
// time out.
func (i *Instance) handleFailure(env Envelope, err error) {
	i.errs.Add(1)

	i.mu.Lock()
	i.state = ErrorState
	i.mu.Unlock()

	log.WarnS(context.Background(), "actor handler failed", err,
		"addr", i.addr.Path)

	if env.CorrelationToken != "" || env.ReplyPromise != nil {
		i.failReply(env, err)
	}

	if i.parent != nil {
		i.parent.OnChildFailure(i.addr, err)
	}
}

// deliverReply routes a handler's reply to whichever correlation mechanism
// the inbound envelope carried: a direct in-process Promise (used by
// in-process asks that don't need cross-actor token plumbing) or a
// correlation token resolved through C3.
func (i *Instance) deliverReply(env Envelope, reply Message) {
	if env.ReplyPromise != nil {
		env.ReplyPromise.Complete(fn.Ok(reply))

		return
	}

	if env.CorrelationToken != "" && i.resolveCorrelation != nil {
		i.resolveCorrelation(env.CorrelationToken, reply, nil)

		return
	}

	log.DebugS(context.Background(), "reply with no waiter discarded",
		"addr", i.addr.Path)
}

func (i *Instance) failReply(env Envelope, err error) {
	if env.ReplyPromise != nil {
		env.ReplyPromise.Complete(fn.Err[any](err))

		return
	}

	if env.CorrelationToken != "" && i.resolveCorrelation != nil {
		i.resolveCorrelation(env.CorrelationToken, nil, err)
	}
}

// Emit publishes event to this actor's current subscriber set. Exposed so
// Dependencies.Emit (available inside a handler) and HandlerResult.Emit
// (applied after a handler returns) share the same fan-out path.
func (i *Instance) Emit(event DomainEvent) {
	i.publish(event)
}

// publish fans an emitted DomainEvent out to every subscriber address,
// re-resolving each through Dependencies.Send (which the owning system
// backs with a directory lookup) rather than holding a direct reference.
func (i *Instance) publish(event DomainEvent) {
	deps := i.depsFn(i)
	for _, addr := range i.Subscribers() {
		deps.Send(context.Background(), addr, event)
	}
}

// execInstruction executes one MessagePlan element: a Send, an Ask (whose
// resolution is reified as a follow-up self-message carrying the
// onOk/onError continuation), or a bare DomainEvent.
func (i *Instance) execInstruction(instr any, deps Dependencies) {
	switch v := instr.(type) {
	case Send:
		deliveries := 1
		if v.Mode == Retry && v.Retries > 0 {
			deliveries += v.Retries
		}
		for n := 0; n < deliveries; n++ {
			deps.Send(context.Background(), v.To, v.Message)
		}

	case Ask:
		timeout := time.Duration(v.TimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = 5 * time.Second
		}

		future := deps.Ask(context.Background(), v.To, v.Message, timeout)
		future.OnComplete(context.Background(), func(res fn.Result[any]) {
			val, err := res.Unpack()

			var followUp Message
			switch {
			case err != nil && v.OnError != nil:
				followUp = v.OnError(err)
			case err == nil && v.OnOk != nil:
				followUp = v.OnOk(val)
			}

			if followUp != nil {
				//nolint:errcheck
				i.Deliver(Envelope{Message: followUp, Sender: i.addr})
			}
		})

	default:
		i.publish(v)
	}
}

// finishStop runs the behavior's stop hook (if any) and transitions to
// Stopped. Called once, either from the end of dispatch() or synchronously
// from Stop() when the actor never started.
func (i *Instance) finishStop() {
	deps := i.depsFn(i)

	i.mu.RLock()
	ctxVal := i.context
	i.mu.RUnlock()

	if i.behavior.OnStop != nil {
		i.behavior.OnStop(context.Background(), ctxVal, deps)
	}

	i.mu.Lock()
	i.state = Stopped
	i.mu.Unlock()

	log.DebugS(context.Background(), "actor stopped", "addr", i.addr.Path)
}
