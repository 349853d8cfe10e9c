// Package runtime wires the script model, compiler, behaviors, memory
// store, event bus, clock, span tracker, and output hub into the single
// public Runtime facade (§4.7). It is the direct analogue of the teacher's
// workflow turn-taking loop, adapted from "plan -> execute tools -> resume
// plan" to "mount block -> run onNext -> pop on completion -> advance
// parent".
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/cast"
	"github.com/wod-wiki/runtime/internal/clock"
	"github.com/wod-wiki/runtime/internal/compiler"
	"github.com/wod-wiki/runtime/internal/hooks"
	"github.com/wod-wiki/runtime/internal/memory"
	"github.com/wod-wiki/runtime/internal/output"
	"github.com/wod-wiki/runtime/internal/provider"
	"github.com/wod-wiki/runtime/internal/script"
	"github.com/wod-wiki/runtime/internal/span"
	"github.com/wod-wiki/runtime/internal/telemetry"
	"github.com/wod-wiki/runtime/internal/wodrterrors"
)

// dismissEvent is the convention name a host uses to acknowledge the final
// idle child and let the root complete, mirroring the runtime-convention
// naming LapTimerBehavior already uses for "timer:lap" — it is not part of
// the core event taxonomy (§4.2) since most scripts never reach it more
// than once per run.
const dismissEvent = "workout:dismiss"

// Options configures a Runtime at construction.
type Options struct {
	// Script is the parsed statement tree to execute. Required.
	Script *script.Script
	// Compiler overrides the default strategy chain (compiler.Default()).
	Compiler *compiler.Compiler
	// ClockSource overrides time.Now for the runtime's Clock.
	ClockSource clock.Source
	// MaxStackDepth bounds block.Stack; 0 uses config.DefaultMaxStackDepth.
	MaxStackDepth int
	// ActionQueueMaxBatch bounds the per-cycle action budget; 0 uses
	// config.DefaultActionQueueMaxBatch.
	ActionQueueMaxBatch int
	// OutputHub overrides the default output.Hub.
	OutputHub *output.Hub
	// ContentProvider is the host-supplied persistence boundary (§6.2). If
	// nil, history is never persisted.
	ContentProvider provider.ContentProvider
	// Logger and Metrics wire ambient observability through the store/queue.
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer
}

// Runtime is the public facade a host constructs one instance of per
// in-flight workout (§6.6: no process-wide state).
type Runtime struct {
	script   *script.Script
	compiler *compiler.Compiler

	stack  *block.Stack
	memory *memory.Store
	bus    *hooks.Bus
	clock  *clock.Clock
	spans  *span.Tracker

	outputs  *output.Hub
	provider provider.ContentProvider
	projector *cast.Projector

	logger telemetry.Logger

	maxBatch int

	root *behavior.RootLifecycleBehavior

	activeQueue  *action.Queue
	activeCtx    context.Context
	deferredNext []action.Action

	nextSyntheticID int
	finished        bool
	tickErr         error
}

// New constructs a Runtime over opts. It does not start execution; call
// Start to push the root and its initial Idle child.
func New(opts Options) (*Runtime, error) {
	if opts.Script == nil {
		return nil, fmt.Errorf("runtime: Script is required")
	}
	maxDepth := opts.MaxStackDepth
	if maxDepth <= 0 {
		maxDepth = 64
	}
	maxBatch := opts.ActionQueueMaxBatch
	if maxBatch <= 0 {
		maxBatch = 1024
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NoopTracer{}
	}

	comp := opts.Compiler
	if comp == nil {
		comp = compiler.Default()
	}
	outputs := opts.OutputHub
	if outputs == nil {
		outputs = output.NewHub(output.WithLogger(logger))
	}

	stack := block.NewStack(maxDepth)
	mem := memory.New(
		memory.WithLogger(logger),
		memory.WithMetrics(metrics),
		memory.WithDescendancy(stack.IsDescendant),
	)
	clk := clock.New(opts.ClockSource)
	spans := span.NewTracker(span.WithTracer(tracer), span.WithLogger(logger))
	bus := hooks.NewBus()

	rt := &Runtime{
		script:    opts.Script,
		compiler:  comp,
		stack:     stack,
		memory:    mem,
		bus:       bus,
		clock:     clk,
		spans:     spans,
		outputs:   outputs,
		provider:  opts.ContentProvider,
		logger:    logger,
		maxBatch:  maxBatch,
		projector: cast.New(mem, stack, clk),
	}
	clk.Subscribe(rt.onTick)
	return rt, nil
}

// Stack returns the live block stack, exposed read-only per §5 ("the Stack
// is shared read-only outside the processor").
func (rt *Runtime) Stack() *block.Stack { return rt.stack }

// Memory returns the live memory store for read-only inspection/subscription.
func (rt *Runtime) Memory() *memory.Store { return rt.memory }

// Outputs returns the outputs$ hub so hosts can Subscribe a sink.
func (rt *Runtime) Outputs() *output.Hub { return rt.outputs }

// Spans returns the execution-record tracker for read-only history queries.
func (rt *Runtime) Spans() *span.Tracker { return rt.spans }

// Clock returns the runtime's clock, e.g. so a host can drive Advance from
// a real wall-clock ticker.
func (rt *Runtime) Clock() *clock.Clock { return rt.clock }

// Cast projects the current snapshot into a §6.4 cast envelope.
func (rt *Runtime) Cast(idleMessage string) cast.Envelope {
	return rt.projector.Project(rt.clock.Now(), idleMessage)
}

// Finished reports whether the root has reached COMPLETE and popped itself.
func (rt *Runtime) Finished() bool { return rt.finished }

// rootStatement finds the script's single entry-point statement (§4.5
// WorkoutRoot: no parent statement, no Idle hint).
func (rt *Runtime) rootStatement() (*script.Statement, error) {
	for _, st := range rt.script.Statements {
		if st.Parent == nil && !st.HasHint(compiler.IdleHint) {
			return st, nil
		}
	}
	return nil, fmt.Errorf("runtime: script has no root statement")
}

func (rt *Runtime) syntheticIdleStatement(hints ...string) *script.Statement {
	rt.nextSyntheticID--
	hintSet := map[string]struct{}{compiler.IdleHint: {}}
	for _, h := range hints {
		hintSet[h] = struct{}{}
	}
	return &script.Statement{ID: rt.nextSyntheticID, Hints: hintSet}
}

// Start compiles the script's root and pushes it, then pushes the initial
// Idle child that holds until the host dispatches timer:start (§4.6
// MOUNTING -> INITIAL_IDLE).
func (rt *Runtime) Start(ctx context.Context) error {
	stmt, err := rt.rootStatement()
	if err != nil {
		return err
	}
	rootBlk, err := rt.compiler.Compile(ctx, stmt, nil)
	if err != nil {
		return wodrterrors.CompileError("start", "", err)
	}
	if err := rt.runCycles(ctx, func(q *action.Queue) {
		q.Enqueue(rt.pushBlockAction("", rootBlk))
	}); err != nil {
		return err
	}
	rt.root, _ = behaviorOf[*behavior.RootLifecycleBehavior](rootBlk, behavior.IDRootLifecycle)

	idleStmt := rt.syntheticIdleStatement()
	idleBlk, err := compiler.IdleBlockStrategy{PopOnEvents: []string{behavior.EvtTimerStart}}.Compile(ctx, idleStmt, rootBlk)
	if err != nil {
		return wodrterrors.CompileError("start", rootBlk.Key, err)
	}
	return rt.runCycles(ctx, func(q *action.Queue) {
		q.Enqueue(rt.pushBlockAction(rootBlk.ID, idleBlk))
	})
}

// behaviorOf looks up a concrete behavior type attached to blk by id.
func behaviorOf[T any](blk *block.Block, id behavior.ID) (T, bool) {
	var zero T
	for _, raw := range blk.Behaviors {
		b, ok := raw.(behavior.Behavior)
		if ok && b.ID() == id {
			t, ok := raw.(T)
			return t, ok
		}
	}
	return zero, false
}

// HandleEvent dispatches a named user/system event to every active block's
// behaviors and to bus-registered handlers, then drains the resulting
// action cycles (§4.7.1, §4.2). Dispatching "workout:complete" additionally
// drives the cancellation cascade (§4.7.5) once the root has transitioned
// to COMPLETING.
func (rt *Runtime) HandleEvent(ctx context.Context, name string, payload any) error {
	if err := rt.runCycles(ctx, func(q *action.Queue) {
		q.EnqueueAll(rt.dispatchEvent(name, payload))
	}); err != nil {
		return err
	}
	switch name {
	case behavior.EvtWorkoutComplete:
		if err := rt.completeWorkout(ctx); err != nil {
			return err
		}
	case behavior.EvtTimerNext:
		// §4.6: "timer:next" is one of the root-handled user-input events.
		// It is the athlete's explicit "advance me" signal for an untimed
		// block (e.g. an EffortFallback leaf counted by RoundPerNext/
		// SinglePass) — onNext is never swept there by a tick, only driven
		// by a child's pop cascade or this direct request.
		if err := rt.runCycles(ctx, func(q *action.Queue) {
			q.EnqueueAll(rt.invokeOnNext(rt.stack.Top()))
		}); err != nil {
			return err
		}
	}
	return rt.maybeFinishRoot(ctx)
}

// Advance moves the clock forward by d. While Running, this dispatches a
// timer:tick event to every active block's behaviors, driving BoundTimer
// decrement and IntervalWaiting boundary detection. onNext is never driven
// generically from a tick — see onTick and Apply's KindEmitEvent case for
// why that would double-count RoundPerNextBehavior's round on every tick
// instead of once per interval boundary.
func (rt *Runtime) Advance(ctx context.Context, d time.Duration) error {
	rt.activeCtx = ctx
	rt.clock.Advance(d)
	err := rt.tickErr
	rt.tickErr = nil
	if err != nil {
		return err
	}
	return rt.maybeFinishRoot(ctx)
}

// UpdateMetric enqueues a TrackMetric action addressed at blockKey (§6.5).
// If the block has already completed (no open span), the update is
// rejected with StaleMetric rather than silently applied.
func (rt *Runtime) UpdateMetric(ctx context.Context, blockKey, metricType string, value any) error {
	blk := rt.blockByKey(blockKey)
	if blk == nil {
		return wodrterrors.StaleMetric("updateMetric", blockKey, fmt.Errorf("block not found"))
	}
	if !rt.spans.IsOpen(blk.ID) {
		return wodrterrors.StaleMetric("updateMetric", blockKey, fmt.Errorf("block's span already closed"))
	}
	return rt.runCycles(ctx, func(q *action.Queue) {
		q.Enqueue(action.Action{
			Kind:  action.KindTrackMetric,
			Phase: action.SideEffect,
			Payload: action.TrackMetricPayload{BlockID: blk.ID, Type: metricType, Value: value},
		})
	})
}

func (rt *Runtime) blockByKey(key string) *block.Block {
	for _, f := range rt.stack.Frames() {
		if f.Key == key {
			return f
		}
	}
	return nil
}

// --- cycle plumbing -------------------------------------------------------

// runCycles seeds a fresh action.Queue via seed, drains it, and keeps
// running further cycles as long as applying an action (chiefly dispatching
// an event) produced work deferred for the *next* cycle (§4.7.1: "Handlers'
// returned actions are queued for the next cycle, not merged into the
// current one").
func (rt *Runtime) runCycles(ctx context.Context, seed func(*action.Queue)) error {
	rt.activeCtx = ctx
	pending := seed
	for pending != nil {
		q := action.NewQueue(rt, rt.maxBatch)
		rt.activeQueue = q
		rt.deferredNext = nil
		pending(q)
		err := q.Run(isStackMutation)
		rt.activeQueue = nil
		if err != nil {
			return rt.handleTerminalError(ctx, err)
		}
		if len(rt.deferredNext) == 0 {
			return nil
		}
		next := rt.deferredNext
		pending = func(q *action.Queue) { q.EnqueueAll(next) }
	}
	return nil
}

func isStackMutation(a action.Action) bool {
	switch a.Kind {
	case action.KindPushBlock, action.KindPopBlock, action.KindCompileAndPushBlock:
		return true
	default:
		return false
	}
}

func (rt *Runtime) onTick(tick clock.Tick) {
	ctx := rt.activeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	err := rt.runCycles(ctx, func(q *action.Queue) {
		q.EnqueueAll(rt.dispatchEvent(behavior.EvtTimerTick, tick))
	})
	rt.tickErr = err
}

// dispatchEvent invokes OnEvent on every behavior of every active block
// (top of stack first, since the most specific block should react before
// its ancestors) and on every bus.Dispatch-registered handler, per §4.2/§4.7.
func (rt *Runtime) dispatchEvent(name string, payload any) []action.Action {
	evt := hooks.Event{Name: name, Payload: payload}
	var acts []action.Action
	frames := rt.stack.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		bctx := rt.behaviorContext(frames[i])
		for _, raw := range frames[i].Behaviors {
			b := raw.(behavior.Behavior)
			acts = append(acts, b.OnEvent(bctx, evt)...)
		}
	}
	acts = append(acts, rt.bus.Dispatch(evt)...)
	return acts
}

func (rt *Runtime) invokeOnNext(blk *block.Block) []action.Action {
	if blk == nil {
		return nil
	}
	bctx := rt.behaviorContext(blk)
	var acts []action.Action
	for _, raw := range blk.Behaviors {
		b := raw.(behavior.Behavior)
		acts = append(acts, b.OnNext(bctx)...)
	}
	return acts
}

func (rt *Runtime) behaviorContext(blk *block.Block) *behavior.Context {
	return &behavior.Context{
		Block:  blk,
		Stack:  rt.stack,
		Memory: rt.memory,
		Bus:    rt.bus,
		Clock:  rt.clock,
		Spans:  rt.spans,
		Script: rt.script,
	}
}

func (rt *Runtime) pushBlockAction(parentID string, blk *block.Block) action.Action {
	return action.Action{Kind: action.KindPushBlock, Phase: action.Stack, Payload: action.PushBlockPayload{ParentID: parentID, Block: blk}}
}

func (rt *Runtime) popBlockAction(blockID, status string) action.Action {
	return action.Action{Kind: action.KindPopBlock, Phase: action.Stack, Payload: action.PopBlockPayload{BlockID: blockID, Status: status}}
}

func (rt *Runtime) emitEventAction(name string, payload any) action.Action {
	return action.Action{Kind: action.KindEmitEvent, Phase: action.Event, Payload: action.EmitEventPayload{Name: name, Payload: payload}}
}

func errorOutputAction(kind, blockID, blockKey, message string, ts time.Time) action.Action {
	return action.Action{
		Kind:  action.KindEmitOutput,
		Phase: action.Display,
		Payload: action.EmitOutputPayload{
			Type:      behavior.OutputError,
			BlockID:   blockID,
			BlockKey:  blockKey,
			Label:     kind,
			Status:    message,
			Timestamp: ts,
		},
	}
}
