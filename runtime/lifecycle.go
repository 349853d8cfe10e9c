package runtime

import (
	"context"
	"errors"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/compiler"
	"github.com/wod-wiki/runtime/internal/output"
	"github.com/wod-wiki/runtime/internal/provider"
	"github.com/wod-wiki/runtime/internal/script"
	"github.com/wod-wiki/runtime/internal/wodrterrors"
)

// applyCompileAndPush asks the compiler to compile stmt under parentID and
// pushes the result, or — per §4.5's "compilation fails" edge case — emits
// an Error output and advances the parent instead of pushing anything, so
// one malformed child statement cannot stall the rest of a script.
func (rt *Runtime) applyCompileAndPush(parentID string, stmt *script.Statement) error {
	parent, _ := rt.stack.ByID(parentID)
	blk, err := rt.compiler.Compile(rt.activeCtx, stmt, parent)
	if err != nil {
		ts := rt.clock.Now()
		var parentKey string
		if parent != nil {
			parentKey = parent.Key
		}
		rt.activeQueue.Enqueue(errorOutputAction("CompileError", parentID, parentKey, err.Error(), ts))
		rt.deferredNext = append(rt.deferredNext, rt.invokeOnNext(parent)...)
		return nil
	}
	return rt.applyPush(parentID, blk)
}

// enterErrored drives the root lifecycle to ERRORED. It does not start the
// cascade itself: handleTerminalError follows it with cascadeToFinalIdle,
// the same sequence used for a normal workout:complete, so a terminal
// error surfaces to the host the same way a clean finish does (§4.6
// ERRORED -> FINAL_IDLE -> COMPLETE shares the COMPLETING path).
func (rt *Runtime) enterErrored() {
	if rt.root != nil {
		rt.root.EnterErrored()
	}
}

// completeWorkout implements the §4.7.5 cancellation cascade once the root
// has observed workout:complete and transitioned to COMPLETING: every frame
// above the root is popped "skipped", then a final Idle child is pushed to
// hold for the host's dismissal event, then the root enters FINAL_IDLE.
func (rt *Runtime) completeWorkout(ctx context.Context) error {
	return rt.cascadeToFinalIdle(ctx)
}

// deferFinalIdlePush compiles the terminal idle child and queues its push
// for the next cycle, then marks the root FINAL_IDLE immediately. It exists
// because applyPop runs from inside action.Queue.Run: calling runCycles here
// (as cascadeToFinalIdle does) would stomp rt.activeQueue out from under the
// Run loop still draining it. Deferring is safe because runCycles' own
// outer loop keeps seeding fresh cycles from rt.deferredNext until it is
// empty, so the push is guaranteed to apply before the enclosing
// HandleEvent/Advance call returns and maybeFinishRoot gets a look.
func (rt *Runtime) deferFinalIdlePush(rootBlk *block.Block) error {
	idleStmt := rt.syntheticIdleStatement()
	idleBlk, err := compiler.IdleBlockStrategy{PopOnEvents: []string{dismissEvent}}.Compile(rt.activeCtx, idleStmt, rootBlk)
	if err != nil {
		return wodrterrors.CompileError("deferFinalIdlePush", rootBlk.Key, err)
	}
	rt.deferredNext = append(rt.deferredNext, rt.pushBlockAction(rootBlk.ID, idleBlk))
	rt.root.EnterFinalIdle()
	return nil
}

func (rt *Runtime) cascadeToFinalIdle(ctx context.Context) error {
	if rt.root == nil {
		return nil
	}
	if rt.root.State() != behavior.Completing && rt.root.State() != behavior.Errored {
		return nil
	}
	for {
		top := rt.stack.Top()
		if top == nil || rt.stack.Depth() <= 1 {
			break
		}
		if err := rt.runCycles(ctx, func(q *action.Queue) {
			q.Enqueue(rt.popBlockAction(top.ID, "skipped"))
		}); err != nil {
			return err
		}
	}

	rootBlk := rt.stack.Root()
	if rootBlk == nil {
		return nil
	}
	idleStmt := rt.syntheticIdleStatement()
	idleBlk, err := compiler.IdleBlockStrategy{PopOnEvents: []string{dismissEvent}}.Compile(ctx, idleStmt, rootBlk)
	if err != nil {
		return wodrterrors.CompileError("cascadeToFinalIdle", rootBlk.Key, err)
	}
	if err := rt.runCycles(ctx, func(q *action.Queue) {
		q.Enqueue(rt.pushBlockAction(rootBlk.ID, idleBlk))
	}); err != nil {
		return err
	}
	rt.root.EnterFinalIdle()
	return nil
}

// maybeFinishRoot checks whether the root has reached FINAL_IDLE with its
// terminal idle child already popped (the host dismissed it), and if so
// drives the final FINAL_IDLE -> COMPLETE transition and pops the root
// itself, persisting a history entry if a ContentProvider was configured
// (§6.2, §4.6).
func (rt *Runtime) maybeFinishRoot(ctx context.Context) error {
	if rt.finished || rt.root == nil {
		return nil
	}
	if rt.root.State() != behavior.FinalIdle {
		return nil
	}
	if rt.stack.Depth() != 1 {
		return nil
	}
	rt.root.EnterComplete()

	rootBlk := rt.stack.Top()
	if rootBlk == nil {
		return nil
	}
	if err := rt.saveHistory(ctx, rootBlk); err != nil {
		return err
	}
	return rt.runCycles(ctx, func(q *action.Queue) {
		q.Enqueue(rt.popBlockAction(rootBlk.ID, "completed"))
	})
}

func (rt *Runtime) saveHistory(ctx context.Context, rootBlk *block.Block) error {
	if rt.provider == nil {
		return nil
	}
	var logs []string
	for _, rec := range rt.spans.History() {
		logs = append(logs, rec.BlockKey+":"+string(rec.Status))
	}
	now := rt.clock.Now()
	entry := provider.HistoryEntry{
		ID:        rootBlk.ID,
		Title:     rootBlk.Label,
		CreatedAt: now,
		UpdatedAt: now,
		Results: &provider.Results{
			CompletedAt: now,
			Duration:    rt.clock.MonotonicElapsed(),
			Logs:        logs,
		},
	}
	if _, err := rt.provider.SaveEntry(ctx, entry); err != nil {
		return wodrterrors.ProviderError("saveHistory", err)
	}
	return nil
}

// handleTerminalError classifies err, surfaces it as an Error output, and
// drives the root through the same ERRORED -> FINAL_IDLE cascade a
// workout:complete would (§7 "user-visible behavior": a terminal error ends
// the run, it does not leave the host stuck mid-script).
func (rt *Runtime) handleTerminalError(ctx context.Context, err error) error {
	var re *wodrterrors.RuntimeError
	if !errors.As(err, &re) {
		re = wodrterrors.New(wodrterrors.KindActionStorm, "runCycles", "", err)
	}
	top := rt.stack.Top()
	var blockID, blockKey string
	if top != nil {
		blockID, blockKey = top.ID, top.Key
	}
	rt.outputs.Publish(ctx, output.NewRecord(output.EventError, blockID, blockKey, rt.clock.Now(), output.Payload{
		Label:  re.Kind.Error(),
		Status: re.Error(),
	}))
	rt.enterErrored()
	if cascadeErr := rt.cascadeToFinalIdle(ctx); cascadeErr != nil {
		return cascadeErr
	}
	return re
}
