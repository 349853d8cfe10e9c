package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/provider"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return NewFromClient(cli, provider.Capabilities{CanWrite: true, CanDelete: true})
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSaveAndGetEntryRoundTrips(t *testing.T) {
	p := newTestProvider(t)
	saved, err := p.SaveEntry(context.Background(), provider.HistoryEntry{Title: "Fran", Tags: []string{"notebook:main"}})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := p.GetEntry(context.Background(), saved.ID)
	require.NoError(t, err)
	require.Equal(t, "Fran", got.Title)
}

func TestGetEntryNotFound(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.GetEntry(context.Background(), "missing")
	require.ErrorIs(t, err, provider.ErrNotFound)
}

func TestUpdateEntryAppliesPatch(t *testing.T) {
	p := newTestProvider(t)
	saved, err := p.SaveEntry(context.Background(), provider.HistoryEntry{Title: "Murph"})
	require.NoError(t, err)

	newTitle := "Murph (Partner)"
	updated, err := p.UpdateEntry(context.Background(), saved.ID, provider.EntryPatch{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)
}

func TestDeleteEntryRemovesFromIndex(t *testing.T) {
	p := newTestProvider(t)
	saved, err := p.SaveEntry(context.Background(), provider.HistoryEntry{Title: "x"})
	require.NoError(t, err)

	require.NoError(t, p.DeleteEntry(context.Background(), saved.ID))

	entries, err := p.GetEntries(context.Background(), provider.Query{DaysBack: 1})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSaveEntryDeniedWithoutWriteCapability(t *testing.T) {
	p := newTestProvider(t)
	p.caps = provider.Capabilities{CanWrite: false}
	_, err := p.SaveEntry(context.Background(), provider.HistoryEntry{Title: "x"})
	require.ErrorIs(t, err, provider.ErrWriteDenied)
}

func TestGetEntriesFiltersByTimeRangeAndTags(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	old := provider.HistoryEntry{Title: "old", Tags: []string{"notebook:main"}}
	savedOld, err := p.SaveEntry(ctx, old)
	require.NoError(t, err)
	savedOld.CreatedAt = time.Now().AddDate(0, 0, -10)
	require.NoError(t, p.persist(ctx, savedOld))

	_, err = p.SaveEntry(ctx, provider.HistoryEntry{Title: "recent", Tags: []string{"notebook:main"}})
	require.NoError(t, err)
	_, err = p.SaveEntry(ctx, provider.HistoryEntry{Title: "other", Tags: []string{"notebook:side"}})
	require.NoError(t, err)

	entries, err := p.GetEntries(ctx, provider.Query{DaysBack: 3, Tags: []string{"notebook:main"}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "recent", entries[0].Title)
}
