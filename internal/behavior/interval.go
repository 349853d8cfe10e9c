package behavior

import (
	"time"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/clock"
	"github.com/wod-wiki/runtime/internal/hooks"
)

// IntervalWaitingBehavior gates ChildRunner from pushing the next child
// once the current round's children finish early, holding until the next
// interval boundary (§4.4) — the "rest" portion of an EMOM-style interval.
type IntervalWaitingBehavior struct {
	Base
	Interval time.Duration

	waiting      bool
	lastBoundary int
}

// NewIntervalWaitingBehavior constructs an IntervalWaitingBehavior gating
// on boundaries of the given interval.
func NewIntervalWaitingBehavior(interval time.Duration) *IntervalWaitingBehavior {
	return &IntervalWaitingBehavior{Interval: interval}
}

func (b *IntervalWaitingBehavior) ID() ID        { return IDIntervalWaiting }
func (b *IntervalWaitingBehavior) Priority() int { return PriorityInterval }

// Waiting reports whether ChildRunner should hold its next push.
func (b *IntervalWaitingBehavior) Waiting() bool { return b.waiting }

func (b *IntervalWaitingBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	switch evt.Name {
	case EvtTimerTick:
		tick, ok := evt.Payload.(clock.Tick)
		if !ok || b.Interval <= 0 {
			return nil
		}
		boundary := int(tick.PausableElapsed / b.Interval)
		if boundary == b.lastBoundary {
			return nil
		}
		b.lastBoundary = boundary
		if b.waiting {
			b.waiting = false
			return []action.Action{emitEvent(EvtIntervalResume, ctx.Block.ID)}
		}
		return nil
	case EvtBlockComplete:
		if b.waiting {
			return nil
		}
		b.waiting = true
		return []action.Action{emitEvent(EvtIntervalWait, ctx.Block.ID)}
	default:
		return nil
	}
}
