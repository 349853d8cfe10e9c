package behavior

import (
	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/memory"
)

// RoundCounter is implemented by whichever round-counting behavior
// (RoundPerLoop or RoundPerNext — mutually exclusive via GroupRoundCounter)
// is attached to a block, so other behaviors (SinglePass, BoundLoop,
// RepScheme, RoundDisplay, RoundSpan) can read the current round without
// caring which counting policy produced it.
type RoundCounter interface {
	CurrentRound() int
}

func currentRound(ctx *Context) int {
	for _, id := range []ID{IDRoundPerLoop, IDRoundPerNext} {
		if rc, ok := ctx.Behavior(id).(RoundCounter); ok {
			return rc.CurrentRound()
		}
	}
	return 0
}

// ChildIndexBehavior tracks the current position within the active
// children round of the owning statement (§4.4). It does not decide when
// to advance itself — ChildRunnerBehavior calls Advance once it has
// compiled and pushed the child at the current position, so the ordering
// of "what runs next" stays entirely with ChildRunner.
type ChildIndexBehavior struct {
	Base
	round   int
	index   int
	wrapped bool
}

// NewChildIndexBehavior constructs a ChildIndexBehavior.
func NewChildIndexBehavior() *ChildIndexBehavior { return &ChildIndexBehavior{} }

func (b *ChildIndexBehavior) ID() ID        { return IDChildIndex }
func (b *ChildIndexBehavior) Priority() int { return PriorityLoop }

func (b *ChildIndexBehavior) OnPush(ctx *Context) []action.Action {
	b.round, b.index, b.wrapped = 0, 0, false
	return []action.Action{setMemory(ctx.Block.ID, MemLoopChildIndex, 0, memory.Public, action.Display, true)}
}

// CurrentRoundChildren returns the statement ids of the active round's
// children, or nil once every round has been exhausted.
func (b *ChildIndexBehavior) CurrentRoundChildren(ctx *Context) []int {
	children := ctx.Block.Source.Statement.Children
	if b.round >= len(children) {
		return nil
	}
	return children[b.round]
}

// Index returns the current child position within the active round.
func (b *ChildIndexBehavior) Index() int { return b.index }

// Round returns the current round's 0-based position within Children.
func (b *ChildIndexBehavior) Round() int { return b.round }

// WrappedLastAdvance reports whether the most recent call to Advance
// exhausted the round's children and moved on to the next round.
// RoundPerLoopBehavior (same priority band, attached before ChildIndex is
// consulted) reads this at the start of the following onNext to decide
// whether to increment its round counter.
func (b *ChildIndexBehavior) WrappedLastAdvance() bool { return b.wrapped }

// Advance moves the cursor to the next child, wrapping into the next round
// once the current one is exhausted, and mirrors the new index into memory.
func (b *ChildIndexBehavior) Advance(ctx *Context) []action.Action {
	children := ctx.Block.Source.Statement.Children
	b.wrapped = false
	b.index++
	if b.round >= len(children) || b.index >= len(children[b.round]) {
		b.index = 0
		b.round++
		b.wrapped = true
	}
	return []action.Action{setMemory(ctx.Block.ID, MemLoopChildIndex, b.index, memory.Public, action.Display, false)}
}

// RoundPerLoopBehavior increments its round counter whenever ChildIndex
// reports that a full pass over the current round's children just
// completed (§4.4: "increment round when child index wraps").
type RoundPerLoopBehavior struct {
	Base
	round int
}

// NewRoundPerLoopBehavior constructs a RoundPerLoopBehavior.
func NewRoundPerLoopBehavior() *RoundPerLoopBehavior { return &RoundPerLoopBehavior{} }

func (b *RoundPerLoopBehavior) ID() ID          { return IDRoundPerLoop }
func (b *RoundPerLoopBehavior) Priority() int   { return PriorityLoop }
func (b *RoundPerLoopBehavior) Group() string   { return GroupRoundCounter }
func (b *RoundPerLoopBehavior) CurrentRound() int { return b.round }

func (b *RoundPerLoopBehavior) OnPush(ctx *Context) []action.Action {
	b.round = 1
	return []action.Action{setMemory(ctx.Block.ID, MemLoopRound, b.round, memory.Public, action.Display, true)}
}

func (b *RoundPerLoopBehavior) OnNext(ctx *Context) []action.Action {
	ci, ok := ctx.Behavior(IDChildIndex).(*ChildIndexBehavior)
	if !ok || !ci.WrappedLastAdvance() {
		return nil
	}
	b.round++
	return []action.Action{
		setMemory(ctx.Block.ID, MemLoopRound, b.round, memory.Public, action.Display, false),
		emitEvent(EvtRoundsChanged, ctx.Block.ID),
	}
}

// RoundPerNextBehavior increments its round counter on every onNext call,
// independent of child completion (§4.4) — used where "round" means
// "interval pass", not "one full lap of children" (e.g. EMOM).
type RoundPerNextBehavior struct {
	Base
	round int
}

// NewRoundPerNextBehavior constructs a RoundPerNextBehavior.
func NewRoundPerNextBehavior() *RoundPerNextBehavior { return &RoundPerNextBehavior{} }

func (b *RoundPerNextBehavior) ID() ID           { return IDRoundPerNext }
func (b *RoundPerNextBehavior) Priority() int    { return PriorityLoop }
func (b *RoundPerNextBehavior) Group() string    { return GroupRoundCounter }
func (b *RoundPerNextBehavior) CurrentRound() int { return b.round }

func (b *RoundPerNextBehavior) OnPush(ctx *Context) []action.Action {
	b.round = 1
	return []action.Action{setMemory(ctx.Block.ID, MemLoopRound, b.round, memory.Public, action.Display, true)}
}

func (b *RoundPerNextBehavior) OnNext(ctx *Context) []action.Action {
	b.round++
	return []action.Action{
		setMemory(ctx.Block.ID, MemLoopRound, b.round, memory.Public, action.Display, false),
		emitEvent(EvtRoundsChanged, ctx.Block.ID),
	}
}

// SinglePassBehavior pops its block once the round counter reaches 2,
// i.e. after exactly one full iteration (§4.4).
type SinglePassBehavior struct{ Base }

// NewSinglePassBehavior constructs a SinglePassBehavior.
func NewSinglePassBehavior() *SinglePassBehavior { return &SinglePassBehavior{} }

func (b *SinglePassBehavior) ID() ID        { return IDSinglePass }
func (b *SinglePassBehavior) Priority() int { return PriorityLoop }
func (b *SinglePassBehavior) Group() string { return GroupLoopTermination }

func (b *SinglePassBehavior) OnNext(ctx *Context) []action.Action {
	if currentRound(ctx) >= 2 {
		return []action.Action{popBlock(ctx.Block.ID, "completed")}
	}
	return nil
}

// BoundLoopBehavior pops its block once the round counter exceeds N
// (§4.4).
type BoundLoopBehavior struct {
	Base
	N int
}

// NewBoundLoopBehavior constructs a BoundLoopBehavior bounded to n rounds.
func NewBoundLoopBehavior(n int) *BoundLoopBehavior { return &BoundLoopBehavior{N: n} }

func (b *BoundLoopBehavior) ID() ID        { return IDBoundLoop }
func (b *BoundLoopBehavior) Priority() int { return PriorityLoop }
func (b *BoundLoopBehavior) Group() string { return GroupLoopTermination }

func (b *BoundLoopBehavior) OnNext(ctx *Context) []action.Action {
	if currentRound(ctx) > b.N {
		return []action.Action{popBlock(ctx.Block.ID, "completed")}
	}
	return nil
}

// UnboundLoopBehavior never pops its block on its own account; the block
// can only end via an external event (CompletionBehavior, cancellation).
type UnboundLoopBehavior struct{ Base }

// NewUnboundLoopBehavior constructs an UnboundLoopBehavior.
func NewUnboundLoopBehavior() *UnboundLoopBehavior { return &UnboundLoopBehavior{} }

func (b *UnboundLoopBehavior) ID() ID        { return IDUnboundLoop }
func (b *UnboundLoopBehavior) Priority() int { return PriorityLoop }
func (b *UnboundLoopBehavior) Group() string { return GroupLoopTermination }

// ChildRunnerBehavior compiles and pushes the next child statement in the
// active round, then advances ChildIndex (§4.4). It runs in the
// ChildExecution band, after every Loop-band behavior has already updated
// round/child-index state for this cycle.
type ChildRunnerBehavior struct{ Base }

// NewChildRunnerBehavior constructs a ChildRunnerBehavior.
func NewChildRunnerBehavior() *ChildRunnerBehavior { return &ChildRunnerBehavior{} }

func (b *ChildRunnerBehavior) ID() ID        { return IDChildRunner }
func (b *ChildRunnerBehavior) Priority() int { return PriorityChildExecution }
func (b *ChildRunnerBehavior) Requires() []ID { return []ID{IDChildIndex} }

// OnPush kicks off the block's first child immediately on mount — the
// push-side mirror of the pop-cascade's parent-advance (§4.7.3 step 6),
// since nothing else would ever pop to trigger that NextAction(B) for a
// freshly-pushed container with no idle placeholder of its own. Only the
// root gates this: RootLifecycleBehavior starts in MOUNTING/INITIAL_IDLE,
// so a freshly-pushed root must wait for timer:start rather than push its
// first real child immediately (its kickoff instead arrives the normal way,
// via the initial Idle child's pop once the root reaches EXECUTING).
func (b *ChildRunnerBehavior) OnPush(ctx *Context) []action.Action {
	if !b.readyToRun(ctx) {
		return nil
	}
	return b.runNext(ctx)
}

func (b *ChildRunnerBehavior) OnNext(ctx *Context) []action.Action {
	if !b.readyToRun(ctx) {
		return nil
	}
	return b.runNext(ctx)
}

func (b *ChildRunnerBehavior) readyToRun(ctx *Context) bool {
	rl, ok := ctx.Behavior(IDRootLifecycle).(*RootLifecycleBehavior)
	return !ok || rl.State() == Executing
}

func (b *ChildRunnerBehavior) runNext(ctx *Context) []action.Action {
	ci, ok := ctx.Behavior(IDChildIndex).(*ChildIndexBehavior)
	if !ok {
		return nil
	}
	if iw, ok := ctx.Behavior(IDIntervalWaiting).(*IntervalWaitingBehavior); ok && iw.Waiting() {
		return nil
	}
	children := ci.CurrentRoundChildren(ctx)
	idx := ci.Index()
	if idx >= len(children) {
		return nil
	}
	stmt := ctx.Script.ByID()[children[idx]]
	if stmt == nil {
		return nil
	}
	acts := []action.Action{compileAndPush(ctx.Block.ID, stmt)}
	acts = append(acts, ci.Advance(ctx)...)
	return acts
}
