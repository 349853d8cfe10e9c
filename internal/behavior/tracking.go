package behavior

import (
	"context"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/hooks"
	"github.com/wod-wiki/runtime/internal/memory"
)

// HistoryBehavior opens the block's execution record on push (§4.4). The
// matching Close call happens directly in the execution core's pop
// protocol (§4.7.3 step 3), since only the core knows the terminal status
// (completed/skipped/errored) a pop was performed with.
type HistoryBehavior struct{ Base }

// NewHistoryBehavior constructs a HistoryBehavior.
func NewHistoryBehavior() *HistoryBehavior { return &HistoryBehavior{} }

func (b *HistoryBehavior) ID() ID        { return IDHistory }
func (b *HistoryBehavior) Priority() int { return PriorityTracking }

func (b *HistoryBehavior) OnPush(ctx *Context) []action.Action {
	ctx.Spans.Open(context.Background(), ctx.Block.Key, ctx.Block.ID, ctx.Clock.Now())
	return nil
}

// RoundDisplayBehavior mirrors the current round number into display:round
// (§4.4) so a UI can show "Round 3 of 5" without reading loop:round itself.
type RoundDisplayBehavior struct{ Base }

// NewRoundDisplayBehavior constructs a RoundDisplayBehavior.
func NewRoundDisplayBehavior() *RoundDisplayBehavior { return &RoundDisplayBehavior{} }

func (b *RoundDisplayBehavior) ID() ID        { return IDRoundDisplay }
func (b *RoundDisplayBehavior) Priority() int { return PriorityTracking }

func (b *RoundDisplayBehavior) OnPush(ctx *Context) []action.Action {
	return []action.Action{setMemory(ctx.Block.ID, MemDisplayRound, 1, memory.Public, action.Display, true)}
}

func (b *RoundDisplayBehavior) OnNext(ctx *Context) []action.Action {
	round := currentRound(ctx)
	if round == 0 {
		return nil
	}
	return []action.Action{setMemory(ctx.Block.ID, MemDisplayRound, round, memory.Public, action.Display, false)}
}

// RoundSpanBehavior opens a TrackRound sub-span at the start of every
// round (§4.4), letting the span tracker attribute per-round duration
// separately from the block's overall execution record.
type RoundSpanBehavior struct{ Base }

// NewRoundSpanBehavior constructs a RoundSpanBehavior.
func NewRoundSpanBehavior() *RoundSpanBehavior { return &RoundSpanBehavior{} }

func (b *RoundSpanBehavior) ID() ID        { return IDRoundSpan }
func (b *RoundSpanBehavior) Priority() int { return PriorityTracking }

func (b *RoundSpanBehavior) OnNext(ctx *Context) []action.Action {
	round := currentRound(ctx)
	if round == 0 {
		return nil
	}
	return []action.Action{trackRound(ctx.Block.ID, round)}
}

// MetricUpdate is the payload of the "metric:update" event TrackMetricBehavior
// listens for. The runtime's UpdateMetric API (§6.5) does not dispatch this
// event; it resolves blockKey to a block id and enqueues a TrackMetric
// action for that block directly.
type MetricUpdate struct {
	Type  string
	Value any
}

// TrackMetricBehavior forwards rep/distance/resistance updates into the
// active span as TrackMetric actions (§4.4, §6.5).
type TrackMetricBehavior struct{ Base }

// NewTrackMetricBehavior constructs a TrackMetricBehavior.
func NewTrackMetricBehavior() *TrackMetricBehavior { return &TrackMetricBehavior{} }

func (b *TrackMetricBehavior) ID() ID        { return IDTrackMetric }
func (b *TrackMetricBehavior) Priority() int { return PriorityTracking }

func (b *TrackMetricBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	if evt.Name != "metric:update" {
		return nil
	}
	upd, ok := evt.Payload.(MetricUpdate)
	if !ok {
		return nil
	}
	return []action.Action{trackMetric(ctx.Block.ID, upd.Type, upd.Value)}
}

// SegmentOutputBehavior emits a "segment" output on mount and a
// "completion" output on unmount (§4.4, §6.3).
type SegmentOutputBehavior struct{ Base }

// NewSegmentOutputBehavior constructs a SegmentOutputBehavior.
func NewSegmentOutputBehavior() *SegmentOutputBehavior { return &SegmentOutputBehavior{} }

func (b *SegmentOutputBehavior) ID() ID        { return IDSegmentOutput }
func (b *SegmentOutputBehavior) Priority() int { return PriorityUI }

func (b *SegmentOutputBehavior) OnPush(ctx *Context) []action.Action {
	return []action.Action{
		emitOutput(OutputSegment, ctx.Block.ID, ctx.Block.Key, ctx.Block.Label, ctx.Block.Source.Fragments, nil, "active", ctx.Clock.Now()),
	}
}

func (b *SegmentOutputBehavior) OnPop(ctx *Context) []action.Action {
	return []action.Action{
		emitOutput(OutputCompletion, ctx.Block.ID, ctx.Block.Key, ctx.Block.Label, ctx.Block.Source.Fragments, nil, "completed", ctx.Clock.Now()),
	}
}
