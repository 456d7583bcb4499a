// Package scheduler implements the scheduler actor's timer engine: the
// single place in the system that owns delayed and recurring work.
// internal/system owns one engine and callers invoke
// ScheduleOnce/ScheduleRecurring/CancelSchedule on it as direct method
// calls; the engine is not wrapped in an actor Behavior, so these requests
// do not travel as messages. It is plain, testable Go with no actor
// dependency.
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
)

// Task is the work a scheduled entry performs when it fires.
type Task func()

type entry struct {
	id       string
	nextFire time.Time
	interval time.Duration // zero means one-shot
	task     Task
}

// Scheduler drives one-shot and recurring tasks from a single goroutine.
// Recurring tasks use a "fire, then schedule next interval from the tick"
// drift policy: a late tick never causes a catch-up burst, since the next
// deadline is always computed from the actual fire time, not the
// originally-intended one.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry

	clock  actor.Clock
	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Scheduler. A nil clock defaults to actor.SystemClock.
func New(clock actor.Clock) *Scheduler {
	if clock == nil {
		clock = actor.SystemClock
	}

	return &Scheduler{
		entries: make(map[string]*entry),
		clock:   clock,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the scheduler's run loop. Safe to call once; subsequent
// calls are no-ops.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop halts the run loop and waits for it to exit. Pending entries are
// simply discarded; callers that need "cancel and notify" semantics should
// Cancel each id first.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}

// ScheduleOnce runs task once after delay and returns a cancellable id.
func (s *Scheduler) ScheduleOnce(delay time.Duration, task Task) string {
	return s.add(delay, 0, task)
}

// ScheduleRecurring runs task every interval, starting after the first
// interval elapses.
func (s *Scheduler) ScheduleRecurring(interval time.Duration, task Task) string {
	return s.add(interval, interval, task)
}

func (s *Scheduler) add(delay, interval time.Duration, task Task) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.entries[id] = &entry{
		id:       id,
		nextFire: s.clock.Now().Add(delay),
		interval: interval,
		task:     task,
	}
	s.mu.Unlock()

	s.notify()

	return id
}

// CancelSchedule removes a pending or recurring entry. Returns false if id
// is unknown (already fired as a one-shot, already cancelled, or never
// existed).
func (s *Scheduler) CancelSchedule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}

	delete(s.entries, id)

	return true
}

// Cleanup cancels every pending entry, returning the count removed. Used
// during system shutdown.
func (s *Scheduler) Cleanup() int {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	s.notify()

	return n
}

// PendingCount reports how many entries (one-shot or recurring) are
// currently scheduled.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := s.nextWait()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.stopCh:
			return
		case <-s.wake:
			continue
		case <-timer.C:
			s.fireDue()
		}
	}
}

func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var earliest time.Time
	for _, e := range s.entries {
		if earliest.IsZero() || e.nextFire.Before(earliest) {
			earliest = e.nextFire
		}
	}

	if earliest.IsZero() {
		return time.Hour
	}

	wait := earliest.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}

	return wait
}

func (s *Scheduler) fireDue() {
	now := s.clock.Now()

	var due []*entry

	s.mu.Lock()
	for id, e := range s.entries {
		if !e.nextFire.After(now) {
			due = append(due, e)
			if e.interval > 0 {
				e.nextFire = now.Add(e.interval)
			} else {
				delete(s.entries, id)
			}
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		e.task()
	}
}
