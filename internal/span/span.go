// Package span implements the per-block execution record tracker (§3.2,
// HistoryBehavior in §4.4). It is an append-only ledger: metrics are
// appended only while a record is open, and closed records are never
// mutated, mirroring the provider-precise, never-rewritten discipline of
// the teacher's transcript ledger.
//
// Each record is additionally backed by a real OpenTelemetry span so a host
// wired to an OTLP collector gets distributed tracing of a workout's block
// tree for free — the spec's "Span" and OTEL's Span name the same shape.
package span

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/wod-wiki/runtime/internal/telemetry"
)

// Status is the terminal state of a Record (§3.2, §7).
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusErrored   Status = "errored"
)

// MetricType enumerates the metric kinds a Record can accumulate (§6.5).
type MetricType string

const (
	MetricReps       MetricType = "repetitions"
	MetricResistance MetricType = "resistance"
	MetricDistance   MetricType = "distance"
	MetricRound      MetricType = "round"
)

// Metric is a single value appended to a Record during or after execution.
type Metric struct {
	Type      MetricType
	Value     any
	Recorded  time.Time
}

// Record is the per-block execution record opened on push and closed on
// pop (§3.2). Metrics can be appended only while the record is open; once
// closed, a record is immutable and AppendMetric rejects further metrics
// for its block.
type Record struct {
	BlockKey    string
	BlockID     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Status      Status
	Metrics     []Metric

	otelSpan telemetry.Span
}

// Tracker is the append-only store of Records, one per block push/pop
// pairing (§8 invariant 5: "exactly one execution record exists for B").
type Tracker struct {
	byBlockID map[string]*Record
	ordered   []*Record
	tracer    telemetry.Tracer
	logger    telemetry.Logger
}

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithTracer attaches an OTEL-backed tracer so each Record opens a real
// trace span alongside its bookkeeping entry.
func WithTracer(t telemetry.Tracer) Option { return func(tr *Tracker) { tr.tracer = t } }

// WithLogger attaches a structured logger for diagnostic events (e.g.
// appending a metric to a block with no open record).
func WithLogger(l telemetry.Logger) Option { return func(tr *Tracker) { tr.logger = l } }

// NewTracker constructs an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		byBlockID: make(map[string]*Record),
		tracer:    telemetry.NoopTracer{},
		logger:    telemetry.NoopLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open begins a new Record for blockID at startedAt, per the push protocol
// (§4.7.2 step 3). It panics if a record for blockID is already open — that
// would violate "no block appears in the stack more than once
// simultaneously" (§3.2 invariant), which callers must have already
// enforced via the stack.
func (t *Tracker) Open(ctx context.Context, blockKey, blockID string, startedAt time.Time) *Record {
	if _, exists := t.byBlockID[blockID]; exists {
		panic(fmt.Sprintf("span: record already open for block %s", blockID))
	}
	_, otelSpan := t.tracer.Start(ctx, "block:"+blockKey)
	rec := &Record{
		BlockKey:  blockKey,
		BlockID:   blockID,
		StartedAt: startedAt,
		Status:    StatusActive,
		otelSpan:  otelSpan,
	}
	t.byBlockID[blockID] = rec
	t.ordered = append(t.ordered, rec)
	return rec
}

// Close finalizes the Record for blockID with the given terminal status and
// completion time, computing Duration from StartedAt (§4.7.3 step 3). It is
// a no-op if no open record exists for blockID (e.g. StaleMetric race).
func (t *Tracker) Close(blockID string, status Status, completedAt time.Time) {
	rec, ok := t.byBlockID[blockID]
	if !ok {
		return
	}
	rec.CompletedAt = completedAt
	rec.Duration = completedAt.Sub(rec.StartedAt)
	rec.Status = status
	if rec.otelSpan != nil {
		switch status {
		case StatusCompleted:
			rec.otelSpan.SetStatus(codes.Ok, "")
		case StatusSkipped:
			rec.otelSpan.SetStatus(codes.Unset, "skipped")
		case StatusErrored:
			rec.otelSpan.SetStatus(codes.Error, "errored")
		}
		rec.otelSpan.End()
	}
	delete(t.byBlockID, blockID)
}

// AppendMetric appends a metric to the open record for blockID. Returns
// false (StaleMetric, §6.5/§7) if the block's record is already closed or
// never existed; callers must reject the metric update in that case rather
// than silently dropping the value.
func (t *Tracker) AppendMetric(blockID string, metric Metric) bool {
	rec, ok := t.byBlockID[blockID]
	if !ok {
		t.logger.Warn(context.Background(), "span: metric addressed to closed or unknown block", "blockID", blockID)
		return false
	}
	rec.Metrics = append(rec.Metrics, metric)
	return true
}

// IsOpen reports whether blockID currently has an active record.
func (t *Tracker) IsOpen(blockID string) bool {
	_, ok := t.byBlockID[blockID]
	return ok
}

// History returns every Record ever opened, in open order, including
// closed ones. The slice is owned by the caller; mutating it does not
// affect the tracker (§3.2: "the execution-record log is append-only").
func (t *Tracker) History() []*Record {
	out := make([]*Record, len(t.ordered))
	copy(out, t.ordered)
	return out
}
