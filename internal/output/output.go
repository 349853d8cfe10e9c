// Package output implements the append-only outputs$ stream (§6.3). It
// mirrors the teacher's stream.Sink/stream.Event shape — an accessor
// interface over concrete structs embedding a Base — adapted from
// LLM-turn events (AssistantReply, ToolEnd, ...) to workout events
// (segment, milestone, completion, error).
package output

import (
	"context"
	"sync"
	"time"

	"github.com/wod-wiki/runtime/internal/telemetry"
)

// EventType enumerates outputs$ record flavors (§6.3).
type EventType string

const (
	EventSegment    EventType = "segment"
	EventMilestone  EventType = "milestone"
	EventCompletion EventType = "completion"
	EventError      EventType = "error"
)

// Event is one outputs$ record. Subscribers use Type() to filter by
// category (e.g. the audio system filters for Sound fragments inside
// Payload()) without needing to know the concrete struct.
type Event interface {
	Type() EventType
	BlockID() string
	BlockKey() string
	Timestamp() time.Time
	// Payload returns the event-specific, JSON-serializable data — the
	// §6.3 {label, fragments, metrics, status} fields.
	Payload() Payload
}

// Payload carries the §6.3 OutputRecord fields common to every event type.
type Payload struct {
	Label     string
	Fragments any
	Metrics   any
	Status    string
}

// Base supplies the common accessors every concrete Event embeds.
type Base struct {
	t   EventType
	id  string
	key string
	ts  time.Time
	p   Payload
}

// NewBase constructs a Base record.
func NewBase(t EventType, blockID, blockKey string, ts time.Time, p Payload) Base {
	return Base{t: t, id: blockID, key: blockKey, ts: ts, p: p}
}

func (b Base) Type() EventType       { return b.t }
func (b Base) BlockID() string       { return b.id }
func (b Base) BlockKey() string      { return b.key }
func (b Base) Timestamp() time.Time  { return b.ts }
func (b Base) Payload() Payload      { return b.p }

// Record is the generic concrete Event used for every §6.3 record; the
// teacher's stream package uses a distinct struct per event kind, but
// outputs$ carries one uniform shape across all four types, so a single
// embedding struct is all Base needs here.
type Record struct{ Base }

// NewRecord constructs a Record of the given type.
func NewRecord(t EventType, blockID, blockKey string, ts time.Time, p Payload) Record {
	return Record{Base: NewBase(t, blockID, blockKey, ts, p)}
}

// Sink delivers outputs$ records to a transport (a cast bridge, a log
// drain, a persistence writer). Implementations must be safe for
// concurrent use: Hub delivers to its sinks one after another, but Publish
// itself may be called from several goroutines at once.
type Sink interface {
	Send(ctx context.Context, event Event) error
	Close(ctx context.Context) error
}

// Hub is the in-process append-only outputs$ observable (§6.3): Publish
// fans out to every subscribed Sink and appends to an in-memory history a
// late subscriber (e.g. a UI history log mounted after the run started)
// can replay.
type Hub struct {
	mu      sync.RWMutex
	sinks   []Sink
	history []Event
	logger  telemetry.Logger
}

// Option configures a Hub at construction.
type Option func(*Hub)

// WithLogger attaches a structured logger used to report sink delivery
// failures without aborting the publish to other sinks.
func WithLogger(l telemetry.Logger) Option { return func(h *Hub) { h.logger = l } }

// NewHub constructs an empty Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{logger: telemetry.NoopLogger{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers sink to receive every future Publish call. Returns
// an unsubscribe function.
func (h *Hub) Subscribe(sink Sink) (unsubscribe func()) {
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	idx := len(h.sinks) - 1
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if idx < len(h.sinks) {
			h.sinks[idx] = nil
		}
	}
}

// Publish appends event to history and delivers it to every live sink. A
// delivery failure on one sink is logged and does not prevent delivery to
// the rest (§6.3: outputs$ is append-only and never blocked by a single
// slow or failing subscriber).
func (h *Hub) Publish(ctx context.Context, event Event) {
	h.mu.Lock()
	h.history = append(h.history, event)
	sinks := append([]Sink(nil), h.sinks...)
	h.mu.Unlock()

	for _, s := range sinks {
		if s == nil {
			continue
		}
		if err := s.Send(ctx, event); err != nil {
			h.logger.Warn(ctx, "output: sink delivery failed", "error", err.Error())
		}
	}
}

// History returns every record published so far, in publish order.
func (h *Hub) History() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, len(h.history))
	copy(out, h.history)
	return out
}

// Close closes every subscribed sink, collecting (not stopping on) errors.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.RLock()
	sinks := append([]Sink(nil), h.sinks...)
	h.mu.RUnlock()

	var firstErr error
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
