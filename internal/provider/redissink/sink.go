// Package redissink implements a Pulse-style output.Sink that publishes
// outputs$ records directly to a Redis Stream via XADD, envelope-wrapped as
// JSON. It is grounded on the teacher's features/stream/pulse Sink, adapted
// to talk to go-redis directly rather than through the full goa.design/pulse
// broker (see DESIGN.md's "Third-party dependency wiring" section, entry for
// goa.design/pulse, for why the consumer-group broker layer was left out).
package redissink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wod-wiki/runtime/internal/output"
)

// Envelope wraps an outputs$ record for transmission over a Redis Stream.
type Envelope struct {
	Type      string          `json:"type"`
	BlockID   string          `json:"block_id"`
	BlockKey  string          `json:"block_key"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   output.Payload  `json:"payload"`
}

// PublishedEvent describes an outputs$ record successfully written to the
// stream, carrying the Redis-assigned entry id.
type PublishedEvent struct {
	Event   output.Event
	Stream  string
	EntryID string
}

// Options configures a Sink.
type Options struct {
	// Client is the Redis client used to XADD entries. Required.
	Client redis.UniversalClient
	// StreamKey derives the target Redis Stream key from a run id. Defaults
	// to "wodr:outputs:<runID>".
	StreamKey func(runID string) string
	// RunID identifies the workout run whose outputs$ records are being
	// published; embedded in the default stream key.
	RunID string
	// MaxLen, if positive, caps the stream with an approximate MAXLEN
	// trim on every XADD (bounds unbounded growth for long-lived runs).
	MaxLen int64
	// OnPublished, when set, is invoked after a successful XADD.
	OnPublished func(context.Context, PublishedEvent) error
}

// Sink publishes output.Event values to a Redis Stream.
// Safe for concurrent Send calls (go-redis clients are goroutine-safe).
type Sink struct {
	client      redis.UniversalClient
	streamKey   func(runID string) string
	runID       string
	maxLen      int64
	onPublished func(context.Context, PublishedEvent) error
}

// New constructs a redis-backed output.Sink.
func New(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("redissink: client is required")
	}
	keyFn := opts.StreamKey
	if keyFn == nil {
		keyFn = defaultStreamKey
	}
	return &Sink{
		client:      opts.Client,
		streamKey:   keyFn,
		runID:       opts.RunID,
		maxLen:      opts.MaxLen,
		onPublished: opts.OnPublished,
	}, nil
}

// Send marshals event into an Envelope and XADDs it to the run's stream.
func (s *Sink) Send(ctx context.Context, event output.Event) error {
	env := Envelope{
		Type:      string(event.Type()),
		BlockID:   event.BlockID(),
		BlockKey:  event.BlockKey(),
		Timestamp: event.Timestamp().UTC(),
		Payload:   event.Payload(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redissink: marshal envelope: %w", err)
	}

	key := s.streamKey(s.runID)
	args := &redis.XAddArgs{
		Stream: key,
		Values: map[string]any{"envelope": body},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	entryID, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("redissink: xadd %s: %w", key, err)
	}
	if s.onPublished != nil {
		return s.onPublished(ctx, PublishedEvent{Event: event, Stream: key, EntryID: entryID})
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *Sink) Close(ctx context.Context) error {
	return s.client.Close()
}

func defaultStreamKey(runID string) string {
	return fmt.Sprintf("wodr:outputs:%s", runID)
}
