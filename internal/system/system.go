package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/correlation"
	"github.com/elkhart-labs/actorcore/internal/directory"
	"github.com/elkhart-labs/actorcore/internal/scheduler"
	"github.com/elkhart-labs/actorcore/internal/supervisor"
)

// System is the actor runtime's entry point: it owns the directory,
// correlation manager, scheduler, and root supervision tree, and exposes
// spawn/send/ask/subscribe/stop as the only operations application code
// needs.
type System struct {
	cfg   Config
	clock actor.Clock

	dir   *directory.Directory
	corr  *correlation.Manager
	sched *scheduler.Scheduler
	root  *supervisor.Node

	mu        sync.Mutex
	instances map[string]*actor.Instance
	nodes     map[string]*supervisor.Node // lazily-created per-parent subtrees

	deadLetters *deadLetterRecord

	eventsMu       sync.Mutex
	eventListeners []func(Event)

	stopOnce sync.Once
}

// New creates a System. The scheduler and its recurring sweep of expired
// correlation entries and directory cache entries are started immediately.
func New(cfg Config) *System {
	cfg = cfg.withDefaults()

	s := &System{
		cfg:         cfg,
		clock:       cfg.Clock,
		dir:         directory.New(cfg.Directory),
		corr:        correlation.New(cfg.Clock),
		sched:       scheduler.New(cfg.Clock),
		instances:   make(map[string]*actor.Instance),
		nodes:       make(map[string]*supervisor.Node),
		deadLetters: newDeadLetterRecord(cfg.DeadLetterCapacity),
	}

	rootAddr := actor.NewAddress(cfg.Node, "system", "root-supervisor")
	s.root = supervisor.NewNode(rootAddr, nil, cfg.RestartPolicy, cfg.Clock)
	s.root.OnUnhandled = func(addr actor.Address, err error) {
		s.publishEvent(Event{Kind: SupervisorEscalated, Address: addr, Err: err})
	}
	s.root.OnRestartLimitExceeded = func(addr actor.Address, cause error) {
		s.publishEvent(Event{Kind: ExceededRestartLimit, Address: addr, Err: cause})
	}

	s.sched.Start()
	s.sched.ScheduleRecurring(cfg.SweepInterval, func() {
		now := s.clock.Now()
		s.corr.Sweep(now)
		s.dir.Sweep(now)
	})

	return s
}

// Spawn creates, registers, and starts a new actor running behavior, under
// address actor://<node>/<typ>/<id>. An empty id generates a fresh uuid.
func (s *System) Spawn(behavior actor.Behavior, typ, id string, opts ...SpawnOption) (actor.Address, error) {
	if id == "" {
		id = uuid.NewString()
	}

	addr := actor.NewAddress(s.cfg.Node, typ, id)

	o := spawnOptions{
		mailboxCapacity: s.cfg.DefaultMailboxCapacity,
		overflowPolicy:  s.cfg.DefaultOverflowPolicy,
		strategy:        supervisor.Restart,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	if _, exists := s.instances[addr.Path]; exists {
		s.mu.Unlock()

		return actor.Address{}, fmt.Errorf("%w: %s", ErrAlreadySpawned, addr.Path)
	}
	s.mu.Unlock()

	parentNode := s.root
	if !o.parent.IsZero() {
		parentNode = s.nodeFor(o.parent)
	}

	makeInstance := func() *actor.Instance {
		return actor.NewInstance(actor.InstanceConfig{
			Address:            addr,
			Behavior:           behavior,
			MailboxCapacity:    o.mailboxCapacity,
			OverflowPolicy:     o.overflowPolicy,
			DeadLetter:         s.onDeadLetter,
			Parent:             parentNode,
			Clock:              s.clock,
			Dependencies:       s.dependenciesFor,
			ResolveCorrelation: s.resolveCorrelation,
		})
	}

	inst := makeInstance()

	s.mu.Lock()
	s.instances[addr.Path] = inst
	s.mu.Unlock()

	spawner := supervisor.Spawner(func() (*actor.Instance, error) {
		fresh := makeInstance()

		s.mu.Lock()
		s.instances[addr.Path] = fresh
		s.mu.Unlock()

		s.dir.Register(addr, s.cfg.Node)

		return fresh, nil
	})

	parentNode.Attach(addr, inst, o.strategy, spawner)
	s.dir.Register(addr, s.cfg.Node)

	if err := inst.Start(); err != nil {
		return actor.Address{}, err
	}

	s.publishEvent(Event{Kind: ActorStarted, Address: addr})

	return addr, nil
}

// nodeFor returns (creating on first use) the supervisor node that
// supervises parent's children, itself escalating to whatever node
// supervises parent.
func (s *System) nodeFor(parent actor.Address) *supervisor.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.nodes[parent.Path]; ok {
		return n
	}

	var up actor.FailureNotifier = s.root
	for _, candidate := range s.nodes {
		for _, c := range candidate.Children() {
			if c.Path == parent.Path {
				up = candidate
			}
		}
	}

	n := supervisor.NewNode(parent, up, s.cfg.RestartPolicy, s.clock)
	n.OnRestartLimitExceeded = func(addr actor.Address, cause error) {
		s.publishEvent(Event{Kind: ExceededRestartLimit, Address: addr, Err: cause})
	}
	s.nodes[parent.Path] = n

	return n
}

// dependenciesFor builds the Dependencies bundle a given instance's
// handler sees.
func (s *System) dependenciesFor(self *actor.Instance) actor.Dependencies {
	selfAddr := self.Address()

	return actor.Dependencies{
		Self: selfAddr,
		Send: func(ctx context.Context, to actor.Address, msg actor.Message) {
			s.Send(ctx, to, msg)
		},
		Ask: func(ctx context.Context, to actor.Address, msg actor.Message, timeout time.Duration) actor.Future[any] {
			return s.Ask(ctx, to, msg, timeout)
		},
		Emit: func(event actor.DomainEvent) {
			self.Emit(event)
		},
		SpawnChild: func(behavior actor.Behavior, id string) (actor.Address, error) {
			return s.Spawn(behavior, selfAddr.Type+".child", id, WithParent(selfAddr))
		},
		Clock: s.clock,
	}
}

func (s *System) resolveCorrelation(token string, reply actor.Message, err error) {
	if err != nil {
		_ = s.corr.Fail(token, err)

		return
	}

	_ = s.corr.Resolve(token, reply)
}

// Send delivers msg to to on a fire-and-forget basis. An unknown address or
// a full/closed mailbox is routed to the dead-letter record instead of
// returning an error — Send never throws synchronously.
func (s *System) Send(_ context.Context, to actor.Address, msg actor.Message) {
	s.mu.Lock()
	inst, ok := s.instances[to.Path]
	s.mu.Unlock()

	env := actor.Envelope{Message: msg, EnqueuedAt: s.clock.Now()}

	if !ok {
		s.onDeadLetter(env)

		return
	}

	if _, err := inst.Deliver(env); err != nil {
		s.onDeadLetter(env)
	}
}

// Ask sends a correlated request to to and returns a Future for the reply.
// timeout <= 0 uses Config.DefaultAskTimeout. An unknown address or
// delivery failure fails the future immediately rather than waiting out
// the full timeout.
func (s *System) Ask(_ context.Context, to actor.Address, msg actor.Message, timeout time.Duration) actor.Future[any] {
	if timeout <= 0 {
		timeout = s.cfg.DefaultAskTimeout
	}

	token := s.corr.NewToken()
	future := s.corr.Register(token, timeout)

	s.mu.Lock()
	inst, ok := s.instances[to.Path]
	s.mu.Unlock()

	if !ok {
		_ = s.corr.Fail(token, ErrTargetNotFound)

		return future
	}

	env := actor.Envelope{Message: msg, CorrelationToken: token, EnqueuedAt: s.clock.Now()}
	if _, err := inst.Deliver(env); err != nil {
		_ = s.corr.Fail(token, err)
	}

	return future
}

func (s *System) onDeadLetter(env actor.Envelope) {
	s.deadLetters.add(env)
	s.publishEvent(Event{Kind: DeadLetter})
}

// StopActor stops and deregisters a single actor by address, without
// affecting the rest of the system. Returns false if addr is unknown.
func (s *System) StopActor(addr actor.Address) bool {
	s.mu.Lock()
	inst, ok := s.instances[addr.Path]
	if ok {
		delete(s.instances, addr.Path)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	inst.Stop()
	s.dir.Unregister(addr)
	s.publishEvent(Event{Kind: ActorStopped, Address: addr})

	return true
}

// DeadLetters returns a snapshot of the retained dead letters.
func (s *System) DeadLetters() []actor.Envelope {
	return s.deadLetters.Snapshot()
}

// Directory exposes the distributed directory for diagnostics and
// out-of-band registration (e.g. service discovery outside of Spawn).
func (s *System) Directory() *directory.Directory { return s.dir }

// Correlation exposes the ask/reply correlation manager for diagnostics.
func (s *System) Correlation() *correlation.Manager { return s.corr }

// Scheduler exposes the scheduler engine for diagnostics and for callers
// that schedule work on it directly.
func (s *System) Scheduler() *scheduler.Scheduler { return s.sched }

// Root exposes the root supervision node for diagnostics.
func (s *System) Root() *supervisor.Node { return s.root }

// MailboxDepths returns the current buffered-envelope count for every live
// actor, keyed by address path.
func (s *System) MailboxDepths() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.instances))
	for path, inst := range s.instances {
		out[path] = inst.MailboxSize()
	}

	return out
}

// Flush blocks until every actor's mailbox is empty or ctx is done,
// whichever comes first. Useful for tests and for draining before a
// non-shutdown checkpoint.
func (s *System) Flush(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.allDrained() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *System) allDrained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inst := range s.instances {
		if inst.MailboxSize() > 0 {
			return false
		}
	}

	return true
}

// Stop stops every actor, draining each actor's mailbox subject to
// Config.ShutdownTimeout, then tears down the scheduler and fails any
// still-pending asks. Idempotent.
func (s *System) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		all := make([]*actor.Instance, 0, len(s.instances))
		for _, inst := range s.instances {
			all = append(all, inst)
		}
		s.mu.Unlock()

		for _, inst := range all {
			inst.Stop()
		}

		deadline, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		var wg sync.WaitGroup
		for _, inst := range all {
			wg.Add(1)
			go func(i *actor.Instance) {
				defer wg.Done()
				_ = i.Wait(deadline)
			}(inst)
		}
		wg.Wait()

		s.sched.Stop()
		s.corr.ClearAll(ctx)

		for _, inst := range all {
			s.publishEvent(Event{Kind: ActorStopped, Address: inst.Address()})
		}

		log.InfoS(ctx, "system stopped", "actors", len(all))
	})
}
