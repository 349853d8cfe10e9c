package runtime

import (
	"fmt"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/memory"
	"github.com/wod-wiki/runtime/internal/output"
	"github.com/wod-wiki/runtime/internal/script"
	"github.com/wod-wiki/runtime/internal/span"
	"github.com/wod-wiki/runtime/internal/wodrterrors"
)

// Apply dispatches a single Action against the runtime's collaborators
// (§4.7.4: "the execution core implements Applier by dispatching on Kind").
// It is called exclusively from within action.Queue.Run, which guarantees
// rt.activeQueue is non-nil for the duration of the call.
func (rt *Runtime) Apply(a action.Action) error {
	ctx := rt.activeCtx
	switch a.Kind {
	case action.KindSetMemory:
		p := a.Payload.(action.SetMemoryPayload)
		ref := memory.Ref{Type: p.Type, OwnerID: p.OwnerID}
		if p.Allocate {
			if _, err := rt.memory.Allocate(ctx, p.Type, p.OwnerID, memory.Visibility(p.Visibility), p.Value); err != nil {
				return nil // re-push of an already-mounted block id; not fatal
			}
			return nil
		}
		return rt.memory.Set(ctx, ref, p.Value)

	case action.KindEmitOutput:
		p := a.Payload.(action.EmitOutputPayload)
		rec := output.NewRecord(output.EventType(p.Type), p.BlockID, p.BlockKey, p.Timestamp, output.Payload{
			Label: p.Label, Fragments: p.Fragments, Metrics: p.Metrics, Status: p.Status,
		})
		rt.outputs.Publish(ctx, rec)
		return nil

	case action.KindPlaySound:
		p := a.Payload.(action.PlaySoundPayload)
		rt.outputs.Publish(ctx, output.NewRecord(output.EventMilestone, p.BlockID, "", rt.clock.Now(), output.Payload{
			Label: p.SoundID, Status: "sound",
		}))
		return nil

	case action.KindTrackRound:
		p := a.Payload.(action.TrackRoundPayload)
		rt.spans.AppendMetric(p.BlockID, span.Metric{Type: span.MetricRound, Value: p.Round, Recorded: rt.clock.Now()})
		return nil

	case action.KindTrackMetric:
		p := a.Payload.(action.TrackMetricPayload)
		if !rt.spans.AppendMetric(p.BlockID, span.Metric{Type: span.MetricType(p.Type), Value: p.Value, Recorded: rt.clock.Now()}) {
			rt.logger.Warn(ctx, "runtime: metric addressed to closed block", "blockID", p.BlockID, "type", p.Type)
		}
		return nil

	case action.KindEmitEvent:
		p := a.Payload.(action.EmitEventPayload)
		// §4.7.1: an EVENT handler's returned actions are queued for the
		// *next* cycle, never merged into the one currently draining.
		acts := rt.dispatchEvent(p.Name, p.Payload)
		if p.Name == behavior.EvtIntervalResume {
			// IntervalWaitingBehavior only emits this once per interval
			// boundary, and only when it was actually gating ChildRunner
			// (§4.4: "gate child push until next interval boundary"). That
			// makes it the one event-driven re-check of onNext outside the
			// pop-cascade and the explicit timer:next ask — a blanket tick
			// sweep would instead call onNext once per tick, which would
			// double-count RoundPerNextBehavior's round on every tick
			// rather than once per boundary crossing.
			if blockID, ok := p.Payload.(string); ok {
				if blk, found := rt.stack.ByID(blockID); found {
					acts = append(acts, rt.invokeOnNext(blk)...)
				}
			}
		}
		rt.deferredNext = append(rt.deferredNext, acts...)
		return nil

	case action.KindError:
		p := a.Payload.(action.ErrorPayload)
		top := rt.stack.Top()
		var blockID, blockKey string
		if top != nil {
			blockID, blockKey = top.ID, top.Key
		}
		rt.activeQueue.Enqueue(errorOutputAction(p.Kind, blockID, blockKey, p.Message, rt.clock.Now()))
		if p.Terminal {
			return wodrterrors.New(errorKind(p.Kind), "apply", blockKey, fmt.Errorf("%s", p.Message))
		}
		return nil

	case action.KindPushBlock:
		p := a.Payload.(action.PushBlockPayload)
		return rt.applyPush(p.ParentID, p.Block.(*block.Block))

	case action.KindPopBlock:
		p := a.Payload.(action.PopBlockPayload)
		return rt.applyPop(p.BlockID, p.Status)

	case action.KindCompileAndPushBlock:
		p := a.Payload.(action.CompileAndPushPayload)
		return rt.applyCompileAndPush(p.ParentID, p.Statement.(*script.Statement))

	default:
		return fmt.Errorf("runtime: unknown action kind %d", a.Kind)
	}
}

// errorKind maps a §7 taxonomy name (as carried on ErrorPayload.Kind) to
// its wodrterrors sentinel, defaulting to KindActionStorm for an unrecognized
// or internally-synthesized kind (e.g. a storm detected by action.Queue.Run
// itself, which has no behavior-authored ErrorPayload).
func errorKind(kind string) error {
	switch kind {
	case "CompileError":
		return wodrterrors.KindCompileError
	case "DependencyViolation":
		return wodrterrors.KindDependencyViolation
	case "StackOverflow":
		return wodrterrors.KindStackOverflow
	case "StaleMetric":
		return wodrterrors.KindStaleMetric
	case "ProviderError":
		return wodrterrors.KindProviderError
	case "InvalidEvent":
		return wodrterrors.KindInvalidEvent
	default:
		return wodrterrors.KindActionStorm
	}
}

func (rt *Runtime) applyPush(parentID string, blk *block.Block) error {
	if err := rt.stack.Push(blk); err != nil {
		// StackOverflow is terminal (§7): propagate so runCycles routes it
		// through handleTerminalError rather than swallowing it here, since
		// a Queue.Run that returns an error stops draining immediately and
		// would never apply an action enqueued at this point anyway.
		return wodrterrors.StackOverflow("push", blk.Key, err)
	}
	bctx := rt.behaviorContext(blk)
	var acts []action.Action
	for _, raw := range blk.Behaviors {
		b := raw.(behavior.Behavior)
		acts = append(acts, b.OnPush(bctx)...)
	}
	rt.activeQueue.EnqueueAll(acts)
	rt.activeQueue.Enqueue(rt.emitEventAction(behavior.EvtStackPush, blk.ID))
	return nil
}

func (rt *Runtime) applyPop(blockID, status string) error {
	if rootBlk := rt.stack.Root(); rt.root != nil && rootBlk != nil && rootBlk.ID == blockID {
		switch rt.root.State() {
		case behavior.Executing, behavior.Paused:
			// §4.6: "EXECUTING -> COMPLETING on child stack emptying". The
			// root's own SinglePassBehavior just finished its one pass over
			// top-level content and asked to pop the root directly — that
			// would skip the COMPLETING -> FINAL_IDLE cascade entirely, so
			// redirect it into the same cascade a workout:complete event or
			// a terminal error drives, instead of letting the root remove
			// itself from the stack here.
			rt.root.EnterCompleting()
			return rt.deferFinalIdlePush(rootBlk)
		case behavior.Complete:
			// the sanctioned final pop from maybeFinishRoot; fall through
			// to the ordinary pop logic below.
		default:
			return nil
		}
	}

	blk, ok := rt.stack.ByID(blockID)
	if !ok {
		return nil
	}
	bctx := rt.behaviorContext(blk)
	var acts []action.Action
	for _, raw := range blk.Behaviors {
		b := raw.(behavior.Behavior)
		acts = append(acts, b.OnPop(bctx)...)
	}
	rt.activeQueue.EnqueueAll(acts)
	rt.activeQueue.Enqueue(rt.emitEventAction(behavior.EvtStackPop, blk.ID))

	if rt.spans.IsOpen(blk.ID) {
		rt.spans.Close(blk.ID, span.Status(status), rt.clock.Now())
	}
	rt.memory.ReleaseOwner(blk.ID)
	rt.bus.UnregisterByOwner(blk.ID)
	rt.stack.Pop()

	parent := rt.stack.Top()
	if parent == nil {
		// The root itself just popped (§4.6 FINAL_IDLE -> COMPLETE).
		rt.finished = true
		return nil
	}
	rt.deferredNext = append(rt.deferredNext, rt.invokeOnNext(parent)...)
	return nil
}
