// Package inmemory implements provider.ContentProvider backed by a
// mutex-guarded map, grounded on the same locking discipline as
// internal/memory.Store: a single sync.RWMutex around every mutating
// method, no external dependency. It is the default provider for tests
// and demos; a host wanting durable history wires internal/provider/redis
// instead.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wod-wiki/runtime/internal/provider"
)

// Provider is an in-memory provider.ContentProvider.
type Provider struct {
	mu      sync.RWMutex
	entries map[string]provider.HistoryEntry
	caps    provider.Capabilities
	now     func() time.Time
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithCapabilities overrides the default read-write-delete capabilities.
func WithCapabilities(c provider.Capabilities) Option {
	return func(p *Provider) { p.caps = c }
}

// WithClock overrides the provider's now() source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New constructs an empty in-memory provider with full read/write/delete
// capabilities by default.
func New(opts ...Option) *Provider {
	p := &Provider{
		entries: make(map[string]provider.HistoryEntry),
		caps:    provider.Capabilities{CanWrite: true, CanDelete: true},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capabilities reports this provider's read/write/delete permissions.
func (p *Provider) Capabilities() provider.Capabilities {
	return p.caps
}

// GetEntries filters entries by the normalized query's date range and
// tags, then applies offset/limit, newest-first.
func (p *Provider) GetEntries(_ context.Context, query provider.Query) ([]provider.HistoryEntry, error) {
	q := provider.NormalizeQuery(query, p.now())

	p.mu.RLock()
	defer p.mu.RUnlock()

	matched := make([]provider.HistoryEntry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.CreatedAt.Before(q.Start) || e.CreatedAt.After(q.End) {
			continue
		}
		if !hasAllTags(e, q.Tags) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []provider.HistoryEntry{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func hasAllTags(e provider.HistoryEntry, want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(e.Tags))
	for _, t := range e.Tags {
		have[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

// GetEntry returns the entry with id, or provider.ErrNotFound.
func (p *Provider) GetEntry(_ context.Context, id string) (*provider.HistoryEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return &e, nil
}

// SaveEntry assigns id/createdAt/updatedAt and stores entry.
func (p *Provider) SaveEntry(_ context.Context, entry provider.HistoryEntry) (provider.HistoryEntry, error) {
	if !p.caps.CanWrite {
		return provider.HistoryEntry{}, provider.ErrWriteDenied
	}
	now := p.now()
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	p.mu.Lock()
	p.entries[entry.ID] = entry
	p.mu.Unlock()
	return entry, nil
}

// UpdateEntry applies patch's non-nil fields to the entry addressed by id.
func (p *Provider) UpdateEntry(_ context.Context, id string, patch provider.EntryPatch) (provider.HistoryEntry, error) {
	if !p.caps.CanWrite {
		return provider.HistoryEntry{}, provider.ErrWriteDenied
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		return provider.HistoryEntry{}, provider.ErrNotFound
	}
	if patch.RawContent != nil {
		e.RawContent = *patch.RawContent
	}
	if patch.Blocks != nil {
		e.Blocks = patch.Blocks
	}
	if patch.Results != nil {
		e.Results = patch.Results
	}
	if patch.Tags != nil {
		e.Tags = patch.Tags
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	e.UpdatedAt = p.now()
	p.entries[id] = e
	return e, nil
}

// DeleteEntry removes the entry addressed by id.
func (p *Provider) DeleteEntry(_ context.Context, id string) error {
	if !p.caps.CanDelete {
		return provider.ErrDeleteDenied
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[id]; !ok {
		return provider.ErrNotFound
	}
	delete(p.entries, id)
	return nil
}
