package action

import "time"

// PushBlockPayload carries a pre-compiled block onto the stack. Block is
// typed as any to keep this package free of a dependency on package block;
// the execution core type-asserts it to *block.Block when applying.
type PushBlockPayload struct {
	ParentID string
	Block    any
}

// PopBlockPayload requests that BlockID be popped with the given terminal
// status (one of span.Status's string values).
type PopBlockPayload struct {
	BlockID string
	Status  string
}

// CompileAndPushPayload asks the compiler to compile Statement (a
// *script.Statement) under ParentID and push the result.
type CompileAndPushPayload struct {
	ParentID  string
	Statement any
}

// EmitEventPayload dispatches a named event on the bus.
type EmitEventPayload struct {
	Name    string
	Payload any
}

// EmitOutputPayload appends a record to the outputs$ stream (§6.3).
type EmitOutputPayload struct {
	Type      string
	BlockID   string
	BlockKey  string
	Label     string
	Fragments any
	Metrics   any
	Status    string
	Timestamp time.Time
}

// SetMemoryPayload writes a memory entry. Allocate distinguishes a
// first-write (memory.Store.Allocate) from an update to an existing ref
// (memory.Store.Set).
type SetMemoryPayload struct {
	Type       string
	OwnerID    string
	Visibility int
	Value      any
	Allocate   bool
}

// TrackRoundPayload opens a per-round sub-span (RoundSpanBehavior).
type TrackRoundPayload struct {
	BlockID string
	Round   int
}

// TrackMetricPayload appends a metric to BlockID's execution record (one of
// span.MetricType's string values for Type).
type TrackMetricPayload struct {
	BlockID string
	Type    string
	Value   any
}

// PlaySoundPayload requests SoundID be played, attributed to BlockID.
type PlaySoundPayload struct {
	SoundID string
	BlockID string
}

// ErrorPayload carries a typed runtime error (Kind is one of the §7 error
// taxonomy names) to be surfaced as an Error output and, for terminal
// kinds, to drive the root lifecycle to ERRORED.
type ErrorPayload struct {
	Kind     string
	Message  string
	Terminal bool
}
