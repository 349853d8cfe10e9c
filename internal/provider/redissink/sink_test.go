package redissink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/output"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return mr, cli
}

func TestSendWritesEnvelopeToDefaultStream(t *testing.T) {
	mr, cli := newTestClient(t)
	sink, err := New(Options{Client: cli, RunID: "run-123"})
	require.NoError(t, err)

	evt := output.NewRecord(output.EventMilestone, "block-1", "root.1", time.Unix(100, 0), output.Payload{Status: "active"})
	require.NoError(t, sink.Send(context.Background(), evt))

	entries, err := mr.XRange("wodr:outputs:run-123", "-", "+")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["envelope"]), &env))
	require.Equal(t, "milestone", env.Type)
	require.Equal(t, "block-1", env.BlockID)
	require.Equal(t, "active", env.Payload.Status)
}

func TestSendUsesCustomStreamKey(t *testing.T) {
	mr, cli := newTestClient(t)
	sink, err := New(Options{
		Client:    cli,
		RunID:     "run-1",
		StreamKey: func(runID string) string { return "custom/" + runID },
	})
	require.NoError(t, err)

	evt := output.NewRecord(output.EventSegment, "block-1", "root.1", time.Unix(0, 0), output.Payload{})
	require.NoError(t, sink.Send(context.Background(), evt))

	entries, err := mr.XRange("custom/run-1", "-", "+")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSendInvokesOnPublished(t *testing.T) {
	_, cli := newTestClient(t)
	var published PublishedEvent
	sink, err := New(Options{
		Client: cli,
		RunID:  "run-9",
		OnPublished: func(_ context.Context, p PublishedEvent) error {
			published = p
			return nil
		},
	})
	require.NoError(t, err)

	evt := output.NewRecord(output.EventCompletion, "block-9", "root.9", time.Unix(0, 0), output.Payload{})
	require.NoError(t, sink.Send(context.Background(), evt))

	require.Equal(t, "wodr:outputs:run-9", published.Stream)
	require.NotEmpty(t, published.EntryID)
}

func TestSendPropagatesOnPublishedError(t *testing.T) {
	_, cli := newTestClient(t)
	sink, err := New(Options{
		Client: cli,
		RunID:  "run-1",
		OnPublished: func(context.Context, PublishedEvent) error {
			return errors.New("drain unavailable")
		},
	})
	require.NoError(t, err)

	evt := output.NewRecord(output.EventError, "block-1", "root.1", time.Unix(0, 0), output.Payload{})
	err = sink.Send(context.Background(), evt)
	require.EqualError(t, err, "drain unavailable")
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Options{})
	require.EqualError(t, err, "redissink: client is required")
}
