// Package directory implements the distributed directory: a local
// authoritative registry plus a bounded, TTL-expiring, LRU-evicted cache of
// remote lookups, with an optional broadcast hook for propagating
// registrations and relaying lookups to peer nodes.
//
// Registry and cache are deliberately two separate maps rather than one
// map with a "this entry is authoritative" flag: the registry never
// expires or evicts (it's this node's own actors), so giving it TTL/LRU
// machinery it will never use would be dead weight on every lookup's hot
// path.
package directory

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
)

// EventKind distinguishes directory change notifications delivered to
// subscribers.
type EventKind int

const (
	// Registered fires when an address is (re-)registered.
	Registered EventKind = iota

	// Unregistered fires when an address is explicitly removed.
	Unregistered
)

// Event is delivered to subscribers on registry changes.
type Event struct {
	Kind    EventKind
	Address actor.Address
	Node    string
}

// Broadcaster relays registrations and lookups to peer nodes. internal/
// transport/grpcbroadcast provides the networked implementation; tests and
// single-node deployments can leave it nil.
type Broadcaster interface {
	BroadcastRegister(addr actor.Address, node string)
	BroadcastLookup(addr actor.Address) (node string, ok bool)
}

type regEntry struct {
	addr actor.Address
	node string
}

type cacheEntry struct {
	addr         actor.Address
	node         string
	expiresAt    time.Time
	lastAccessed time.Time
}

// Directory is the distributed directory for one node.
type Directory struct {
	mu       sync.Mutex
	registry map[string]regEntry
	cache    map[string]cacheEntry

	cacheCapacity int
	ttl           time.Duration
	clock         actor.Clock
	broadcaster   Broadcaster

	subsMu sync.Mutex
	subs   map[string][]func(Event) // keyed by actor type, "" = all types

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Config configures a Directory.
type Config struct {
	CacheCapacity int
	TTL           time.Duration
	Clock         actor.Clock
	Broadcaster   Broadcaster
}

// New creates a Directory. CacheCapacity <= 0 defaults to 1024; TTL <= 0
// defaults to 30s.
func New(cfg Config) *Directory {
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = 1024
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	clock := cfg.Clock
	if clock == nil {
		clock = actor.SystemClock
	}

	return &Directory{
		registry:      make(map[string]regEntry),
		cache:         make(map[string]cacheEntry),
		cacheCapacity: capacity,
		ttl:           ttl,
		clock:         clock,
		broadcaster:   cfg.Broadcaster,
		subs:          make(map[string][]func(Event)),
	}
}

// Register records addr as reachable at node, authoritative for this
// directory instance. Propagates to peers via the broadcaster, if any.
func (d *Directory) Register(addr actor.Address, node string) {
	d.mu.Lock()
	d.registry[addr.Path] = regEntry{addr: addr, node: node}
	d.mu.Unlock()

	d.notify(Event{Kind: Registered, Address: addr, Node: node})

	if d.broadcaster != nil {
		d.broadcaster.BroadcastRegister(addr, node)
	}
}

// Unregister removes addr from the registry.
func (d *Directory) Unregister(addr actor.Address) {
	d.mu.Lock()
	e, ok := d.registry[addr.Path]
	delete(d.registry, addr.Path)
	d.mu.Unlock()

	if ok {
		d.notify(Event{Kind: Unregistered, Address: addr, Node: e.node})
	}
}

// Lookup resolves addr to a node. Registry entries are checked first
// (never expire), then the cache (subject to TTL), then — on a full
// miss — the broadcaster, whose affirmative answer is cached.
func (d *Directory) Lookup(addr actor.Address) (string, bool) {
	now := d.clock.Now()

	d.mu.Lock()
	if e, ok := d.registry[addr.Path]; ok {
		d.mu.Unlock()
		d.hits.Add(1)

		return e.node, true
	}

	if e, ok := d.cache[addr.Path]; ok && now.Before(e.expiresAt) {
		e.lastAccessed = now
		d.cache[addr.Path] = e
		d.mu.Unlock()
		d.hits.Add(1)

		return e.node, true
	}
	d.mu.Unlock()

	d.misses.Add(1)

	if d.broadcaster == nil {
		return "", false
	}

	node, ok := d.broadcaster.BroadcastLookup(addr)
	if !ok {
		return "", false
	}

	d.cachePut(addr, node, now)

	return node, true
}

func (d *Directory) cachePut(addr actor.Address, node string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.cache[addr.Path]; !exists && len(d.cache) >= d.cacheCapacity {
		d.evictLRULocked()
	}

	d.cache[addr.Path] = cacheEntry{
		addr:         addr,
		node:         node,
		expiresAt:    now.Add(d.ttl),
		lastAccessed: now,
	}
}

// evictLRULocked removes the least-recently-accessed cache entry. Caller
// must hold mu.
func (d *Directory) evictLRULocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)

	for k, e := range d.cache {
		if !found || e.lastAccessed.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.lastAccessed, true
		}
	}

	if found {
		delete(d.cache, oldestKey)
	}
}

// Sweep removes expired cache entries. Intended to be driven by the
// scheduler actor's recurring tick rather than a private timer.
func (d *Directory) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var removed int
	for k, e := range d.cache {
		if !now.Before(e.expiresAt) {
			delete(d.cache, k)
			removed++
		}
	}

	return removed
}

// HitRate returns hits / (hits + misses), or 0 if there have been no
// lookups yet.
func (d *Directory) HitRate() float64 {
	hits := d.hits.Load()
	misses := d.misses.Load()
	total := hits + misses

	if total == 0 {
		return 0
	}

	return float64(hits) / float64(total)
}

// ListByType returns every address of the given type known to this
// directory: registry entries plus any non-expired cache entries. Registry
// entries take precedence when an address appears in both.
func (d *Directory) ListByType(typ string) []actor.Address {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()

	var out []actor.Address
	for _, e := range d.registry {
		if e.addr.Type == typ {
			out = append(out, e.addr)
		}
	}

	for path, e := range d.cache {
		if _, inRegistry := d.registry[path]; inRegistry {
			continue
		}
		if e.addr.Type == typ && now.Before(e.expiresAt) {
			out = append(out, e.addr)
		}
	}

	return out
}

// GetAll returns every address known to this directory: registry entries
// plus any non-expired cache entries. Registry entries take precedence when
// an address appears in both.
func (d *Directory) GetAll() []actor.Address {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()

	out := make([]actor.Address, 0, len(d.registry)+len(d.cache))
	for _, e := range d.registry {
		out = append(out, e.addr)
	}

	for path, e := range d.cache {
		if _, inRegistry := d.registry[path]; inRegistry {
			continue
		}
		if now.Before(e.expiresAt) {
			out = append(out, e.addr)
		}
	}

	return out
}

// Subscribe registers listener for directory events on addresses of typ
// ("" subscribes to every type). Listener panics are recovered so one bad
// subscriber can't take down Register/Unregister callers.
func (d *Directory) Subscribe(typ string, listener func(Event)) (unsubscribe func()) {
	d.subsMu.Lock()
	d.subs[typ] = append(d.subs[typ], listener)
	idx := len(d.subs[typ]) - 1
	d.subsMu.Unlock()

	return func() {
		d.subsMu.Lock()
		defer d.subsMu.Unlock()

		list := d.subs[typ]
		if idx < len(list) {
			list[idx] = nil
		}
	}
}

func (d *Directory) notify(evt Event) {
	d.subsMu.Lock()
	all := append([]func(Event){}, d.subs[""]...)
	typed := append([]func(Event){}, d.subs[evt.Address.Type]...)
	d.subsMu.Unlock()

	for _, l := range append(all, typed...) {
		if l == nil {
			continue
		}
		d.invokeSafely(l, evt)
	}
}

func (d *Directory) invokeSafely(listener func(Event), evt Event) {
	defer func() {
		_ = recover()
	}()

	listener(evt)
}
