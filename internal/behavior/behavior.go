// Package behavior implements the single-responsibility lifecycle units
// that compose into a block.Block (§4.4). Behaviors never mutate runtime
// state directly; every hook returns a slice of action.Action for the
// execution core's queue to apply, mirroring the event-bus handler
// contract in package hooks.
package behavior

import (
	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/clock"
	"github.com/wod-wiki/runtime/internal/hooks"
	"github.com/wod-wiki/runtime/internal/memory"
	"github.com/wod-wiki/runtime/internal/script"
	"github.com/wod-wiki/runtime/internal/span"
)

// ID names a behavior for requires/conflictsWith/group composition checks.
type ID string

const (
	IDActionLayer            ID = "ActionLayerBehavior"
	IDBoundTimer              ID = "BoundTimerBehavior"
	IDUnboundTimer            ID = "UnboundTimerBehavior"
	IDLapTimer                ID = "LapTimerBehavior"
	IDChildIndex              ID = "ChildIndexBehavior"
	IDRoundPerLoop            ID = "RoundPerLoopBehavior"
	IDRoundPerNext            ID = "RoundPerNextBehavior"
	IDSinglePass              ID = "SinglePassBehavior"
	IDBoundLoop               ID = "BoundLoopBehavior"
	IDUnboundLoop             ID = "UnboundLoopBehavior"
	IDChildRunner             ID = "ChildRunnerBehavior"
	IDCompletion              ID = "CompletionBehavior"
	IDRepScheme               ID = "RepSchemeBehavior"
	IDIntervalWaiting         ID = "IntervalWaitingBehavior"
	IDIntervalTimerRestart    ID = "IntervalTimerRestartBehavior"
	IDHistory                 ID = "HistoryBehavior"
	IDRoundDisplay            ID = "RoundDisplayBehavior"
	IDRoundSpan               ID = "RoundSpanBehavior"
	IDSoundCue                ID = "SoundCueBehavior"
	IDIdle                    ID = "IdleBehavior"
	IDRootLifecycle           ID = "RootLifecycleBehavior"
	IDSegmentOutput           ID = "SegmentOutputBehavior"
	IDTimerOutput             ID = "TimerOutputBehavior"
	IDTrackMetric             ID = "TrackMetricBehavior"
)

// Priority bands from §4.4. Higher runs first within a lifecycle hook.
const (
	PriorityInfrastructure = 1000
	PriorityTiming         = 900
	PriorityLoop           = 800
	PriorityChildExecution = 700
	PriorityCompletion     = 600
	PriorityRepScheme      = 500
	PriorityInterval       = 400
	PriorityTracking       = 300
	PriorityAudio          = 200
	PriorityUI             = 100
)

// Mutual-exclusivity groups; at most one attached behavior per group may
// belong to the same block (§4.4 composition rule 1).
const (
	GroupTimer          = "Timer"
	GroupRoundCounter   = "RoundCounter"
	GroupLoopTermination = "LoopTermination"
)

// Context is the per-hook-invocation view a behavior is given: its owning
// block, the shared stack/memory/bus/clock/span collaborators, and the
// compiled script (for ChildRunner to find the next statement to compile).
type Context struct {
	Block  *block.Block
	Stack  *block.Stack
	Memory *memory.Store
	Bus    *hooks.Bus
	Clock  *clock.Clock
	Spans  *span.Tracker
	Script *script.Script
}

// Behavior is the capability set a block attaches at compile time (§4.4).
// Lifecycle hooks are genuinely optional in the source material; Go
// expresses that by having every behavior embed Base and override only the
// hooks it needs, rather than by making the methods themselves optional on
// the interface.
type Behavior interface {
	ID() ID
	Priority() int
	Requires() []ID
	ConflictsWith() []ID
	Group() string

	OnPush(ctx *Context) []action.Action
	OnNext(ctx *Context) []action.Action
	OnEvent(ctx *Context, evt hooks.Event) []action.Action
	OnPop(ctx *Context) []action.Action
}

// Behavior looks up another behavior attached to the same block by id,
// letting closely-related behaviors (e.g. ChildRunner reading
// ChildIndex's cursor, RoundPerLoop reading a round counter) coordinate
// without the execution core acting as a message broker between them.
func (c *Context) Behavior(id ID) Behavior {
	for _, raw := range c.Block.Behaviors {
		if b, ok := raw.(Behavior); ok && b.ID() == id {
			return b
		}
	}
	return nil
}

// Base supplies no-op defaults for every hook so concrete behaviors need
// only implement the ones relevant to their responsibility (§4.4: "each
// behavior implementing some subset of onPush/onNext/onEvent/onPop").
type Base struct{}

func (Base) OnPush(*Context) []action.Action                 { return nil }
func (Base) OnNext(*Context) []action.Action                 { return nil }
func (Base) OnEvent(*Context, hooks.Event) []action.Action   { return nil }
func (Base) OnPop(*Context) []action.Action                  { return nil }
func (Base) Requires() []ID                                  { return nil }
func (Base) ConflictsWith() []ID                              { return nil }
func (Base) Group() string                                    { return "" }
