// Package provider defines the Content Provider contract (§6.2): the
// host-supplied persistence boundary the runtime treats as opaque. Two
// implementations live in sibling packages: inmemory (default, for tests
// and demos) and redis (a JSON string key per entry plus a sorted set for
// time-range queries), both exercising the boundary the core deliberately
// keeps external to itself.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by GetEntry/UpdateEntry/DeleteEntry when the
// addressed entry does not exist.
var ErrNotFound = errors.New("provider: entry not found")

// ErrWriteDenied is returned by SaveEntry/UpdateEntry when Capabilities
// reports CanWrite == false.
var ErrWriteDenied = errors.New("provider: write denied")

// ErrDeleteDenied is returned by DeleteEntry when Capabilities reports
// CanDelete == false.
var ErrDeleteDenied = errors.New("provider: delete denied")

// Capabilities reports which mutating operations a provider instance
// permits; a read-only host-supplied provider sets both to false.
type Capabilities struct {
	CanWrite  bool
	CanDelete bool
}

// Results carries the completion summary attached to a HistoryEntry once
// a run finishes.
type Results struct {
	CompletedAt time.Time
	Duration    time.Duration
	Logs        []string
}

// HistoryEntry is the §6.2 wire-level schema.
type HistoryEntry struct {
	ID            string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	RawContent    string
	Blocks        any
	Results       *Results
	Tags          []string
	Notes         string
	SchemaVersion int
}

// InNotebook reports whether the entry carries the "notebook:N" tag
// convention (§6.2).
func (e HistoryEntry) InNotebook(n string) bool {
	for _, t := range e.Tags {
		if t == "notebook:"+n {
			return true
		}
	}
	return false
}

// Query is the §6.2 getEntries filter. DaysBack, when non-zero and Start
// and End are both zero, is sugar for {start: now - N*day, end: now},
// normalized by NormalizeQuery before a provider filters entries.
type Query struct {
	Start    time.Time
	End      time.Time
	DaysBack int
	Tags     []string
	Limit    int
	Offset   int
}

// NormalizeQuery resolves DaysBack sugar into an explicit Start/End range
// relative to now; both providers treat the range as inclusive at both
// ends. daysBack: 0 with no explicit range resolves to [startOfToday, now]
// (§8 boundary behavior). Day boundaries are computed in UTC, since the
// runtime has no reliable notion of host timezone.
func NormalizeQuery(q Query, now time.Time) Query {
	if !q.Start.IsZero() || !q.End.IsZero() {
		return q
	}
	now = now.UTC()
	if q.DaysBack > 0 {
		q.Start = now.AddDate(0, 0, -q.DaysBack)
		q.End = now
		return q
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	q.Start = startOfToday
	q.End = now
	return q
}

// ContentProvider is the §6.2 host-supplied persistence boundary.
type ContentProvider interface {
	Capabilities() Capabilities
	GetEntries(ctx context.Context, query Query) ([]HistoryEntry, error)
	GetEntry(ctx context.Context, id string) (*HistoryEntry, error)
	SaveEntry(ctx context.Context, entry HistoryEntry) (HistoryEntry, error)
	UpdateEntry(ctx context.Context, id string, patch EntryPatch) (HistoryEntry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// EntryPatch restricts UpdateEntry to the §6.2 mutable field set.
type EntryPatch struct {
	RawContent *string
	Blocks     any
	Results    *Results
	Tags       []string
	Notes      *string
	Title      *string
}
