// Package redis implements provider.ContentProvider backed by Redis: one
// string key per entry (`wodr:entry:<id>`) holding the JSON-encoded
// HistoryEntry, plus a sorted set (`wodr:entries`) scored by CreatedAt
// unix-nano for efficient time-range queries. Grounded on the pack's
// adapter/redis.Adapter (URL-based Config, go-redis client, wrapped
// errors) adapted from a pub/sub publisher to a string-key+zset repository.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"

	"github.com/wod-wiki/runtime/internal/provider"
)

const (
	entryKeyPrefix = "wodr:entry:"
	indexKey       = "wodr:entries"
)

// Config configures the Redis-backed provider.
type Config struct {
	// URL is the Redis connection URL (required). Format:
	// redis://[:password@]host:port[/db]
	URL string
	// Capabilities controls which mutating operations are permitted.
	// Defaults to full read/write/delete.
	Capabilities provider.Capabilities
}

// Provider is a Redis-backed provider.ContentProvider.
type Provider struct {
	client goredis.UniversalClient
	caps   provider.Capabilities
	now    func() time.Time
}

// New constructs a Redis-backed provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis provider: URL is required")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis provider: invalid URL: %w", err)
	}
	caps := cfg.Capabilities
	if caps == (provider.Capabilities{}) {
		caps = provider.Capabilities{CanWrite: true, CanDelete: true}
	}
	return &Provider{client: goredis.NewClient(opts), caps: caps, now: time.Now}, nil
}

// NewFromClient constructs a Provider from an already-configured client,
// primarily for tests (e.g. against miniredis).
func NewFromClient(client goredis.UniversalClient, caps provider.Capabilities) *Provider {
	return &Provider{client: client, caps: caps, now: time.Now}
}

// Capabilities reports this provider's read/write/delete permissions.
func (p *Provider) Capabilities() provider.Capabilities {
	return p.caps
}

// GetEntries resolves the normalized query's [start, end] range (both ends
// inclusive) against the sorted set index, then loads and tag-filters the
// matching entries.
func (p *Provider) GetEntries(ctx context.Context, query provider.Query) ([]provider.HistoryEntry, error) {
	q := provider.NormalizeQuery(query, p.now())

	ids, err := p.client.ZRevRangeByScore(ctx, indexKey, &goredis.ZRangeBy{
		Min: fmt.Sprintf("%d", q.Start.UnixNano()),
		Max: fmt.Sprintf("%d", q.End.UnixNano()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis provider: query index: %w", err)
	}

	out := make([]provider.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		e, err := p.GetEntry(ctx, id)
		if err != nil {
			if errors.Is(err, provider.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !hasAllTags(*e, q.Tags) {
			continue
		}
		out = append(out, *e)
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []provider.HistoryEntry{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
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

// GetEntry loads and decodes the entry with id.
func (p *Provider) GetEntry(ctx context.Context, id string) (*provider.HistoryEntry, error) {
	body, err := p.client.Get(ctx, entryKeyPrefix+id).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, provider.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis provider: get %s: %w", id, err)
	}
	var e provider.HistoryEntry
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("redis provider: decode %s: %w", id, err)
	}
	return &e, nil
}

// SaveEntry assigns id/createdAt/updatedAt, stores the entry key, and
// indexes it by CreatedAt.
func (p *Provider) SaveEntry(ctx context.Context, entry provider.HistoryEntry) (provider.HistoryEntry, error) {
	if !p.caps.CanWrite {
		return provider.HistoryEntry{}, provider.ErrWriteDenied
	}
	now := p.now()
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := p.persist(ctx, entry); err != nil {
		return provider.HistoryEntry{}, err
	}
	return entry, nil
}

// UpdateEntry applies patch's non-nil fields to the entry addressed by id.
func (p *Provider) UpdateEntry(ctx context.Context, id string, patch provider.EntryPatch) (provider.HistoryEntry, error) {
	if !p.caps.CanWrite {
		return provider.HistoryEntry{}, provider.ErrWriteDenied
	}
	e, err := p.GetEntry(ctx, id)
	if err != nil {
		return provider.HistoryEntry{}, err
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

	if err := p.persist(ctx, *e); err != nil {
		return provider.HistoryEntry{}, err
	}
	return *e, nil
}

func (p *Provider) persist(ctx context.Context, e provider.HistoryEntry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis provider: encode %s: %w", e.ID, err)
	}
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, entryKeyPrefix+e.ID, body, 0)
	pipe.ZAdd(ctx, indexKey, goredis.Z{Score: float64(e.CreatedAt.UnixNano()), Member: e.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis provider: persist %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEntry removes the entry key and its index membership.
func (p *Provider) DeleteEntry(ctx context.Context, id string) error {
	if !p.caps.CanDelete {
		return provider.ErrDeleteDenied
	}
	if _, err := p.GetEntry(ctx, id); err != nil {
		return err
	}
	pipe := p.client.TxPipeline()
	pipe.Del(ctx, entryKeyPrefix+id)
	pipe.ZRem(ctx, indexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis provider: delete %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (p *Provider) Close() error {
	return p.client.Close()
}
