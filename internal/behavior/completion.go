package behavior

import (
	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/hooks"
)

// CompletionBehavior pops its block once it observes TriggerEvent, e.g.
// timer:complete for an AMRAP gated by time (§4.4, §4.5 "Completion(time)").
type CompletionBehavior struct {
	Base
	TriggerEvent string
}

// NewCompletionBehavior constructs a CompletionBehavior that pops on
// triggerEvent.
func NewCompletionBehavior(triggerEvent string) *CompletionBehavior {
	return &CompletionBehavior{TriggerEvent: triggerEvent}
}

func (b *CompletionBehavior) ID() ID        { return IDCompletion }
func (b *CompletionBehavior) Priority() int { return PriorityCompletion }

func (b *CompletionBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	if evt.Name != b.TriggerEvent {
		return nil
	}
	return []action.Action{
		emitEvent(EvtBlockComplete, ctx.Block.ID),
		popBlock(ctx.Block.ID, "completed"),
	}
}

// IdleBehavior holds its block until one of PopOnEvents is observed
// (§4.4) — used both for the initial "waiting for timer:start" idle child
// and the final idle child after a workout completes.
type IdleBehavior struct {
	Base
	PopOnEvents []string
}

// NewIdleBehavior constructs an IdleBehavior that pops on any of
// popOnEvents.
func NewIdleBehavior(popOnEvents ...string) *IdleBehavior {
	return &IdleBehavior{PopOnEvents: popOnEvents}
}

func (b *IdleBehavior) ID() ID        { return IDIdle }
func (b *IdleBehavior) Priority() int { return PriorityCompletion }

func (b *IdleBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	for _, name := range b.PopOnEvents {
		if evt.Name == name {
			return []action.Action{popBlock(ctx.Block.ID, "completed")}
		}
	}
	return nil
}

// LifecycleState is one of the root state machine's states (§4.6).
type LifecycleState int

const (
	Mounting LifecycleState = iota
	InitialIdle
	Executing
	Paused
	Completing
	Errored
	FinalIdle
	Complete
)

func (s LifecycleState) String() string {
	switch s {
	case Mounting:
		return "MOUNTING"
	case InitialIdle:
		return "INITIAL_IDLE"
	case Executing:
		return "EXECUTING"
	case Paused:
		return "PAUSED"
	case Completing:
		return "COMPLETING"
	case Errored:
		return "ERRORED"
	case FinalIdle:
		return "FINAL_IDLE"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// RootLifecycleBehavior orchestrates the root state machine (§4.6). Only
// the user-input events named below are handled here; every other event
// propagates to the current block unchanged, since Bus.Dispatch delivers
// to every registered handler regardless of which block owns it.
//
// In EXECUTING, onNext delegation to ChildRunner needs no gating here:
// ChildRunnerBehavior.readyToRun already checks this behavior's State() and
// no-ops while the root sits in MOUNTING/INITIAL_IDLE/PAUSED, so nothing
// pushes real content before timer:start. onNext itself is only ever driven
// by a pop cascade's parent-advance, a fresh push's self-kick, or a
// targeted timer:next/interval:resume re-check — never by a clock tick —
// so RoundPerNextBehavior's unconditional per-call round increment can
// never double-count.
type RootLifecycleBehavior struct {
	Base
	state LifecycleState
}

// NewRootLifecycleBehavior constructs a RootLifecycleBehavior starting in
// MOUNTING.
func NewRootLifecycleBehavior() *RootLifecycleBehavior {
	return &RootLifecycleBehavior{state: Mounting}
}

func (b *RootLifecycleBehavior) ID() ID        { return IDRootLifecycle }
func (b *RootLifecycleBehavior) Priority() int { return PriorityInfrastructure }

// State returns the current lifecycle state.
func (b *RootLifecycleBehavior) State() LifecycleState { return b.state }

func (b *RootLifecycleBehavior) OnPush(ctx *Context) []action.Action {
	b.state = InitialIdle
	return nil
}

func (b *RootLifecycleBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	switch evt.Name {
	case EvtTimerStart:
		if b.state != InitialIdle {
			return nil
		}
		b.state = Executing
		ctx.Clock.Start()
		return nil
	case EvtTimerPause:
		if b.state != Executing {
			return nil
		}
		b.state = Paused
		ctx.Clock.Pause()
		return nil
	case EvtTimerResume:
		if b.state != Paused {
			return nil
		}
		b.state = Executing
		ctx.Clock.Resume()
		return nil
	case EvtWorkoutComplete:
		if b.state != Executing && b.state != Paused {
			return nil
		}
		b.state = Completing
		return nil
	default:
		return nil
	}
}

// EnterErrored transitions the root to ERRORED, called by the execution
// core directly (not via an event) when a terminal error action is applied
// (ActionStorm, StackOverflow at root).
func (b *RootLifecycleBehavior) EnterErrored() {
	b.state = Errored
}

// EnterCompleting transitions EXECUTING/PAUSED to COMPLETING, called by the
// execution core directly (not via an event) when the root's own top-level
// content has run out (§4.6: "EXECUTING -> COMPLETING on child stack
// emptying") — as distinct from the EvtWorkoutComplete-driven transition,
// which OnEvent already handles.
func (b *RootLifecycleBehavior) EnterCompleting() {
	if b.state == Executing || b.state == Paused {
		b.state = Completing
	}
}

// EnterFinalIdle transitions COMPLETING/ERRORED to FINAL_IDLE once the
// terminal idle child has been pushed.
func (b *RootLifecycleBehavior) EnterFinalIdle() {
	if b.state == Completing || b.state == Errored {
		b.state = FinalIdle
	}
}

// EnterComplete transitions FINAL_IDLE to COMPLETE on user dismissal.
func (b *RootLifecycleBehavior) EnterComplete() {
	if b.state == FinalIdle {
		b.state = Complete
	}
}
