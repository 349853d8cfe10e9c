// Package memory implements the runtime's unified typed store for mutable
// state plus a reactive observation channel (§4.1). Every memory entry is
// keyed by {type, ownerId} and carries a visibility scope that governs which
// blocks may see it via Search.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wod-wiki/runtime/internal/telemetry"
)

// Visibility controls which callers can observe an entry via Search.
type Visibility int

const (
	// Private entries are visible only to their owner's behaviors.
	Private Visibility = iota
	// Public entries are globally visible.
	Public
	// Inheritable entries are visible to descendants of the allocator.
	Inheritable
)

// ErrAlreadyAllocated is returned by Allocate when an entry already exists
// for the given {type, ownerId} pair.
var ErrAlreadyAllocated = errors.New("memory: already allocated")

// Ref is a stable reference token returned by Allocate. It is the natural
// {type, ownerId} key described in the data model; callers should treat it
// as opaque.
type Ref struct {
	Type    string
	OwnerID string
}

func (r Ref) String() string { return fmt.Sprintf("%s@%s", r.Type, r.OwnerID) }

// entry is the internal record backing a Ref.
type entry struct {
	visibility Visibility
	value      any
}

// Listener is invoked on allocate/set/release for entries matching a
// subscription's predicate. removed is true only for release notifications.
type Listener func(ref Ref, value any, removed bool)

// Predicate filters which refs a subscription is notified about.
type Predicate func(ref Ref, visibility Visibility) bool

// Query filters Search results; zero-valued fields are wildcards.
type Query struct {
	Type       string
	HasType    bool
	OwnerID    string
	HasOwnerID bool
	Visibility Visibility
	HasVisibility bool
}

// Descendancy answers whether candidate is a descendant of ancestor on the
// current stack, used to enforce Inheritable visibility. The memory store
// never inspects the stack directly (§4.1/§9 forbid parent pointers inside
// the store); the host supplies this function, typically backed by
// block.Stack.IsDescendant.
type Descendancy func(ancestorOwnerID, candidateOwnerID string) bool

// Store is the unified typed store for all mutable runtime state (§4.1).
// A single sync.RWMutex guards every operation, matching the teacher's
// in-memory registry store discipline of one lock per store instance.
type Store struct {
	mu       sync.RWMutex
	entries  map[Ref]*entry
	subs     map[*subscription]struct{}
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	isKin    Descendancy
	notifying bool
	pending   []*subscription
}

type subscription struct {
	predicate Predicate
	listener  Listener
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger attaches a structured logger used for diagnostic events
// (allocation conflicts, releases of unknown owners).
func WithLogger(l telemetry.Logger) Option { return func(s *Store) { s.logger = l } }

// WithMetrics attaches a metrics recorder tracking allocate/release/search volume.
func WithMetrics(m telemetry.Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithDescendancy supplies the function used to resolve Inheritable visibility.
func WithDescendancy(d Descendancy) Option { return func(s *Store) { s.isKin = d } }

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[Ref]*entry),
		subs:    make(map[*subscription]struct{}),
		logger:  telemetry.NoopLogger{},
		metrics: telemetry.NoopMetrics{},
		isKin:   func(string, string) bool { return false },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate reserves a new entry for {type, ownerId} with the given
// visibility and initial value. It fails with ErrAlreadyAllocated if the
// pair already exists.
func (s *Store) Allocate(ctx context.Context, typ, ownerID string, visibility Visibility, initial any) (Ref, error) {
	ref := Ref{Type: typ, OwnerID: ownerID}
	s.mu.Lock()
	if _, exists := s.entries[ref]; exists {
		s.mu.Unlock()
		s.logger.Warn(ctx, "memory: allocate conflict", "ref", ref.String())
		return Ref{}, ErrAlreadyAllocated
	}
	s.entries[ref] = &entry{visibility: visibility, value: initial}
	s.mu.Unlock()
	s.metrics.IncCounter("memory.allocate", 1, "type", typ)
	s.notify(ref, visibility, initial, false)
	return ref, nil
}

// Get returns the current value for ref, or (nil, false) if it does not exist.
func (s *Store) Get(ref Ref) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[ref]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set overwrites the value for ref. Subscribers are notified exactly once,
// after the value is committed (§4.1 correctness). Set is a no-op error if
// ref does not exist.
func (s *Store) Set(ctx context.Context, ref Ref, value any) error {
	s.mu.Lock()
	e, ok := s.entries[ref]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("memory: set on unknown ref %s", ref)
	}
	e.value = value
	vis := e.visibility
	s.mu.Unlock()
	s.notify(ref, vis, value, false)
	return nil
}

// Release removes a single entry, firing removal subscribers.
func (s *Store) Release(ref Ref) {
	s.mu.Lock()
	e, ok := s.entries[ref]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, ref)
	s.mu.Unlock()
	s.metrics.IncCounter("memory.release", 1, "type", ref.Type)
	s.notify(ref, e.visibility, e.value, true)
}

// ReleaseOwner removes every entry owned by ownerID, firing removal
// subscribers for each before returning (§4.1: "releasing an owner fires
// removals before the next push completes").
func (s *Store) ReleaseOwner(ownerID string) {
	s.mu.Lock()
	var toRemove []Ref
	for ref := range s.entries {
		if ref.OwnerID == ownerID {
			toRemove = append(toRemove, ref)
		}
	}
	removed := make(map[Ref]*entry, len(toRemove))
	for _, ref := range toRemove {
		removed[ref] = s.entries[ref]
		delete(s.entries, ref)
	}
	s.mu.Unlock()
	for _, ref := range toRemove {
		e := removed[ref]
		s.notify(ref, e.visibility, e.value, true)
	}
}

// Search filters entries by any combination of type/ownerId/visibility and
// enforces the §4.1 visibility rules relative to the requesting owner:
//   - Private entries are invisible to any requester other than the allocator.
//   - Inheritable entries are visible to descendants of the allocator.
//   - Public entries are globally visible.
// Order is unspecified (per §4.1): results follow map iteration order and
// may differ between calls.
func (s *Store) Search(requesterOwnerID string, q Query) []Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Ref
	for ref, e := range s.entries {
		if q.HasType && ref.Type != q.Type {
			continue
		}
		if q.HasOwnerID && ref.OwnerID != q.OwnerID {
			continue
		}
		if q.HasVisibility && e.visibility != q.Visibility {
			continue
		}
		if !s.visibleTo(requesterOwnerID, ref, e.visibility) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func (s *Store) visibleTo(requesterOwnerID string, ref Ref, vis Visibility) bool {
	switch vis {
	case Public:
		return true
	case Private:
		return requesterOwnerID == ref.OwnerID
	case Inheritable:
		return requesterOwnerID == ref.OwnerID || s.isKin(ref.OwnerID, requesterOwnerID)
	default:
		return false
	}
}

// Subscribe registers listener to be invoked on allocate/set/release for
// refs matching predicate. The returned unsubscribe function is idempotent.
// A listener added during a notification in progress observes only
// subsequent notifications (§4.1 correctness).
func (s *Store) Subscribe(predicate Predicate, listener Listener) (unsubscribe func()) {
	sub := &subscription{predicate: predicate, listener: listener}
	s.mu.Lock()
	if s.notifying {
		s.pending = append(s.pending, sub)
	} else {
		s.subs[sub] = struct{}{}
	}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	}
}

func (s *Store) notify(ref Ref, vis Visibility, value any, removed bool) {
	s.mu.Lock()
	s.notifying = true
	snapshot := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		snapshot = append(snapshot, sub)
	}
	s.notifying = false
	for _, sub := range s.pending {
		s.subs[sub] = struct{}{}
	}
	s.pending = nil
	s.mu.Unlock()

	for _, sub := range snapshot {
		if sub.predicate(ref, vis) {
			sub.listener(ref, value, removed)
		}
	}
}
