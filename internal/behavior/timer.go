package behavior

import (
	"time"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/clock"
	"github.com/wod-wiki/runtime/internal/hooks"
	"github.com/wod-wiki/runtime/internal/memory"
)

// TimeSpan records one contiguous interval the timer was running, used to
// derive total elapsed without re-deriving it from the clock's lifetime.
type TimeSpan struct {
	Start time.Duration
	End   time.Duration
}

// BoundTimerBehavior counts down (or up toward) a fixed Duration and emits
// timer:complete once reached (§4.4). It belongs to GroupTimer, so at most
// one of BoundTimer/UnboundTimer may be attached to a block.
type BoundTimerBehavior struct {
	Base
	Duration  time.Duration
	Direction TimerDirection

	elapsed   time.Duration
	completed bool
}

// TimerDirection mirrors script.TimerDirection for display purposes
// without requiring behavior to import script for this one enum.
type TimerDirection int

const (
	CountDown TimerDirection = iota
	CountUp
)

// NewBoundTimerBehavior constructs a BoundTimerBehavior for duration d.
func NewBoundTimerBehavior(d time.Duration, dir TimerDirection) *BoundTimerBehavior {
	return &BoundTimerBehavior{Duration: d, Direction: dir}
}

func (b *BoundTimerBehavior) ID() ID          { return IDBoundTimer }
func (b *BoundTimerBehavior) Priority() int   { return PriorityTiming }
func (b *BoundTimerBehavior) Group() string   { return GroupTimer }

func (b *BoundTimerBehavior) OnPush(ctx *Context) []action.Action {
	b.elapsed = 0
	b.completed = false
	return []action.Action{
		setMemory(ctx.Block.ID, MemTimerIsRunning, true, memory.Public, action.Display, true),
		setMemory(ctx.Block.ID, MemTimerTimeSpans, []TimeSpan{}, memory.Public, action.Memory, true),
		emitEvent(EvtTimerStarted, ctx.Block.ID),
	}
}

func (b *BoundTimerBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	if evt.Name != EvtTimerTick || b.completed {
		return nil
	}
	tick, ok := evt.Payload.(clock.Tick)
	if !ok {
		return nil
	}
	b.elapsed = tick.PausableElapsed
	acts := []action.Action{setMemory(ctx.Block.ID, MemTimerTimeSpans, b.elapsed, memory.Public, action.Memory, false)}
	if b.elapsed >= b.Duration {
		b.completed = true
		acts = append(acts, emitEvent(EvtTimerComplete, ctx.Block.ID))
	}
	return acts
}

func (b *BoundTimerBehavior) OnPop(ctx *Context) []action.Action {
	return []action.Action{setMemory(ctx.Block.ID, MemTimerIsRunning, false, memory.Public, action.Display, false)}
}

// Remaining returns the time left before completion; used by
// SoundCueBehavior's countdown cues and by the cast projection to populate
// timerValue.
func (b *BoundTimerBehavior) Remaining() time.Duration {
	if b.elapsed >= b.Duration {
		return 0
	}
	return b.Duration - b.elapsed
}

// UnboundTimerBehavior counts up indefinitely; unlike BoundTimer it never
// emits timer:complete (§4.4: "same as above but no completion").
type UnboundTimerBehavior struct {
	Base
	elapsed time.Duration
}

// NewUnboundTimerBehavior constructs an UnboundTimerBehavior.
func NewUnboundTimerBehavior() *UnboundTimerBehavior { return &UnboundTimerBehavior{} }

func (b *UnboundTimerBehavior) ID() ID        { return IDUnboundTimer }
func (b *UnboundTimerBehavior) Priority() int { return PriorityTiming }
func (b *UnboundTimerBehavior) Group() string { return GroupTimer }

func (b *UnboundTimerBehavior) OnPush(ctx *Context) []action.Action {
	b.elapsed = 0
	return []action.Action{
		setMemory(ctx.Block.ID, MemTimerIsRunning, true, memory.Public, action.Display, true),
		setMemory(ctx.Block.ID, MemTimerTimeSpans, []TimeSpan{}, memory.Public, action.Memory, true),
		emitEvent(EvtTimerStarted, ctx.Block.ID),
	}
}

func (b *UnboundTimerBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	if evt.Name != EvtTimerTick {
		return nil
	}
	tick, ok := evt.Payload.(clock.Tick)
	if !ok {
		return nil
	}
	b.elapsed = tick.PausableElapsed
	return []action.Action{setMemory(ctx.Block.ID, MemTimerTimeSpans, b.elapsed, memory.Public, action.Memory, false)}
}

func (b *UnboundTimerBehavior) OnPop(ctx *Context) []action.Action {
	return []action.Action{setMemory(ctx.Block.ID, MemTimerIsRunning, false, memory.Public, action.Display, false)}
}

// Elapsed returns the accumulated running time.
func (b *UnboundTimerBehavior) Elapsed() time.Duration { return b.elapsed }

// LapTimerBehavior records a lap split into timer:laps each time it
// observes a lap marker event (§4.4). The triggering event name is a
// runtime convention ("timer:lap") rather than part of the core taxonomy,
// since laps are an optional add-on most scripts never use.
type LapTimerBehavior struct {
	Base
	laps []time.Duration
}

// NewLapTimerBehavior constructs a LapTimerBehavior.
func NewLapTimerBehavior() *LapTimerBehavior { return &LapTimerBehavior{} }

func (b *LapTimerBehavior) ID() ID        { return IDLapTimer }
func (b *LapTimerBehavior) Priority() int { return PriorityTiming }

func (b *LapTimerBehavior) OnPush(ctx *Context) []action.Action {
	b.laps = nil
	return []action.Action{setMemory(ctx.Block.ID, MemTimerLaps, []time.Duration{}, memory.Public, action.Memory, true)}
}

func (b *LapTimerBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	if evt.Name != "timer:lap" {
		return nil
	}
	tick, ok := evt.Payload.(clock.Tick)
	if !ok {
		return nil
	}
	b.laps = append(b.laps, tick.PausableElapsed)
	laps := append([]time.Duration(nil), b.laps...)
	return []action.Action{setMemory(ctx.Block.ID, MemTimerLaps, laps, memory.Public, action.Memory, false)}
}

// IntervalTimerRestartBehavior resets the block's timer:time-spans each
// time an interval boundary is crossed (§4.4). It requires a timer
// behavior to be present but, since that requirement is an OR across
// BoundTimer/UnboundTimer, it is validated via HasAnyOf rather than a
// plain Requires() id (see behavior.Compose).
type IntervalTimerRestartBehavior struct{ Base }

// NewIntervalTimerRestartBehavior constructs an IntervalTimerRestartBehavior.
func NewIntervalTimerRestartBehavior() *IntervalTimerRestartBehavior {
	return &IntervalTimerRestartBehavior{}
}

func (b *IntervalTimerRestartBehavior) ID() ID        { return IDIntervalTimerRestart }
func (b *IntervalTimerRestartBehavior) Priority() int { return PriorityInterval }

func (b *IntervalTimerRestartBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	if evt.Name != EvtIntervalResume {
		return nil
	}
	return []action.Action{setMemory(ctx.Block.ID, MemTimerTimeSpans, []TimeSpan{}, memory.Public, action.Memory, false)}
}

// TimerOutputBehavior mirrors timer state changes onto the outputs$ stream
// (§4.4, §6.3) so subscribers (UI, cast bridge) observe timer progress
// without polling memory directly.
type TimerOutputBehavior struct{ Base }

// NewTimerOutputBehavior constructs a TimerOutputBehavior.
func NewTimerOutputBehavior() *TimerOutputBehavior { return &TimerOutputBehavior{} }

func (b *TimerOutputBehavior) ID() ID        { return IDTimerOutput }
func (b *TimerOutputBehavior) Priority() int { return PriorityUI }

func (b *TimerOutputBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	switch evt.Name {
	case EvtTimerStarted, EvtTimerComplete:
		return []action.Action{
			emitOutput(OutputMilestone, ctx.Block.ID, ctx.Block.Key, ctx.Block.Label, ctx.Block.Source.Fragments, nil, "active", ctx.Clock.Now()),
		}
	default:
		return nil
	}
}
