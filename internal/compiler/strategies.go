package compiler

import (
	"context"

	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/script"
)

// IdleHint marks a synthetic statement the runtime constructs for the
// root's initial/final idle children; it is never produced by the parser.
const IdleHint = "__idle__"

func toBlockBehaviors(bs []behavior.Behavior) []block.Behavior {
	out := make([]block.Behavior, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}

func finish(typ block.Type, stmt *script.Statement, parent *block.Block, label string, bs []behavior.Behavior) (*block.Block, error) {
	composed, err := behavior.Compose(bs)
	if err != nil {
		return nil, &CompileError{StatementID: stmt.ID, Reason: err.Error()}
	}
	return block.NewBlock(
		newBlockID(),
		blockKey(parent, stmt),
		typ,
		block.Source{Statement: stmt, Fragments: stmt.Fragments},
		toBlockBehaviors(composed),
		label,
		parentID(parent),
	), nil
}

func effortLabel(stmt *script.Statement) string {
	if eff, ok := script.FindFirst[script.EffortFragment](stmt.Fragments); ok {
		return eff.Name
	}
	return ""
}

// WorkoutRootStrategy matches the entry-point statement (no parent block,
// no parent statement) and composes the root's lifecycle and top-level
// loop-driving behaviors (§4.5).
type WorkoutRootStrategy struct{}

func (WorkoutRootStrategy) Name() string { return "WorkoutRoot" }

func (WorkoutRootStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	return parent == nil && stmt.Parent == nil && !stmt.HasHint(IdleHint)
}

func (WorkoutRootStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	bs := []behavior.Behavior{
		behavior.NewActionLayerBehavior(),
		behavior.NewRootLifecycleBehavior(),
		behavior.NewChildIndexBehavior(),
		behavior.NewChildRunnerBehavior(),
		behavior.NewRoundPerLoopBehavior(),
		behavior.NewSinglePassBehavior(),
		behavior.NewHistoryBehavior(),
		behavior.NewSegmentOutputBehavior(),
	}
	return finish(block.TypeRoot, stmt, parent, effortLabel(stmt), bs)
}

// IntervalLogicStrategy matches a Timer fragment paired with an
// EMOM/Interval hint (§4.5).
type IntervalLogicStrategy struct{}

func (IntervalLogicStrategy) Name() string { return "IntervalLogic" }

func (IntervalLogicStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	_, hasTimer := script.FindFirst[script.TimerFragment](stmt.Fragments)
	return hasTimer && (stmt.HasHint("EMOM") || stmt.HasHint("Interval"))
}

func (IntervalLogicStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	timer, _, err := singleTimerDuration(stmt)
	if err != nil {
		return nil, err
	}
	count, _ := repSchemeAndRoundCount(stmt)

	bs := []behavior.Behavior{
		behavior.NewActionLayerBehavior(),
		behavior.NewBoundTimerBehavior(timer.Duration, behavior.TimerDirection(timer.Direction)),
		behavior.NewIntervalWaitingBehavior(timer.Duration),
		behavior.NewRoundPerNextBehavior(),
		behavior.NewBoundLoopBehavior(count),
		behavior.NewChildIndexBehavior(),
		behavior.NewChildRunnerBehavior(),
		behavior.NewHistoryBehavior(),
		behavior.NewSoundCueBehavior(),
		behavior.NewRoundDisplayBehavior(),
		behavior.NewRoundSpanBehavior(),
		behavior.NewLapTimerBehavior(),
		behavior.NewIntervalTimerRestartBehavior(),
	}
	return finish(block.TypeInterval, stmt, parent, effortLabel(stmt), bs)
}

// AmrapLogicStrategy matches a Timer fragment paired with a Rounds
// fragment or an AMRAP hint (§4.5).
type AmrapLogicStrategy struct{}

func (AmrapLogicStrategy) Name() string { return "AmrapLogic" }

func (AmrapLogicStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	_, hasTimer := script.FindFirst[script.TimerFragment](stmt.Fragments)
	if !hasTimer {
		return false
	}
	_, hasRounds := script.FindFirst[script.RoundsFragment](stmt.Fragments)
	return hasRounds || stmt.HasHint("AMRAP")
}

func (AmrapLogicStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	timer, _, err := singleTimerDuration(stmt)
	if err != nil {
		return nil, err
	}

	bs := []behavior.Behavior{
		behavior.NewActionLayerBehavior(),
		behavior.NewBoundTimerBehavior(timer.Duration, behavior.TimerDirection(timer.Direction)),
		behavior.NewChildIndexBehavior(),
		behavior.NewChildRunnerBehavior(),
		behavior.NewRoundPerLoopBehavior(),
		behavior.NewUnboundLoopBehavior(),
		behavior.NewHistoryBehavior(),
		behavior.NewSoundCueBehavior(),
		behavior.NewCompletionBehavior(behavior.EvtTimerComplete),
		behavior.NewRoundSpanBehavior(),
		behavior.NewLapTimerBehavior(),
	}
	return finish(block.TypeAMRAP, stmt, parent, effortLabel(stmt), bs)
}

// GenericTimerStrategy matches any remaining Timer fragment not claimed by
// IntervalLogic/AmrapLogic (§4.5).
type GenericTimerStrategy struct{}

func (GenericTimerStrategy) Name() string { return "GenericTimer" }

func (GenericTimerStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	_, hasTimer := script.FindFirst[script.TimerFragment](stmt.Fragments)
	return hasTimer
}

func (GenericTimerStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	timer, _, err := singleTimerDuration(stmt)
	if err != nil {
		return nil, err
	}

	bound := timer.Direction == script.TimerCountDown
	bs := []behavior.Behavior{behavior.NewActionLayerBehavior()}
	if bound {
		bs = append(bs, behavior.NewBoundTimerBehavior(timer.Duration, behavior.TimerDirection(timer.Direction)))
	} else {
		bs = append(bs, behavior.NewUnboundTimerBehavior())
	}
	bs = append(bs, behavior.NewHistoryBehavior(), behavior.NewSoundCueBehavior())

	if hasChildren(stmt) {
		bs = append(bs,
			behavior.NewChildIndexBehavior(),
			behavior.NewChildRunnerBehavior(),
			behavior.NewRoundPerLoopBehavior(),
			behavior.NewSinglePassBehavior(),
		)
	}
	if bound {
		bs = append(bs, behavior.NewCompletionBehavior(behavior.EvtTimerComplete))
	}
	return finish(block.TypeTimer, stmt, parent, effortLabel(stmt), bs)
}

// GenericLoopStrategy matches a Rounds fragment with no Timer fragment
// (§4.5).
type GenericLoopStrategy struct{}

func (GenericLoopStrategy) Name() string { return "GenericLoop" }

func (GenericLoopStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	_, hasTimer := script.FindFirst[script.TimerFragment](stmt.Fragments)
	if hasTimer {
		return false
	}
	_, hasRounds := script.FindFirst[script.RoundsFragment](stmt.Fragments)
	return hasRounds
}

func (GenericLoopStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	count, scheme := repSchemeAndRoundCount(stmt)

	bs := []behavior.Behavior{
		behavior.NewActionLayerBehavior(),
		behavior.NewChildIndexBehavior(),
		behavior.NewRoundPerLoopBehavior(),
	}
	if len(scheme) > 0 {
		bs = append(bs, behavior.NewRepSchemeBehavior(scheme))
	}
	bs = append(bs,
		behavior.NewBoundLoopBehavior(count),
		behavior.NewChildRunnerBehavior(),
		behavior.NewHistoryBehavior(),
		behavior.NewRoundDisplayBehavior(),
		behavior.NewRoundSpanBehavior(),
		behavior.NewLapTimerBehavior(),
	)
	return finish(block.TypeRounds, stmt, parent, effortLabel(stmt), bs)
}

// GenericGroupStrategy matches any remaining statement with children
// (§4.5): a plain grouping of sibling statements with no timer or rounds
// semantics of its own.
type GenericGroupStrategy struct{}

func (GenericGroupStrategy) Name() string { return "GenericGroup" }

func (GenericGroupStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	return hasChildren(stmt)
}

func (GenericGroupStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	bs := []behavior.Behavior{
		behavior.NewActionLayerBehavior(),
		behavior.NewChildIndexBehavior(),
		behavior.NewChildRunnerBehavior(),
		behavior.NewRoundPerLoopBehavior(),
		behavior.NewSinglePassBehavior(),
		behavior.NewHistoryBehavior(),
	}
	return finish(block.TypeGroup, stmt, parent, effortLabel(stmt), bs)
}

// EffortFallbackStrategy matches any leaf statement not otherwise claimed
// (§4.5): a single exercise with no timer or rounds of its own, running
// for exactly one pass while the athlete records metrics against it.
type EffortFallbackStrategy struct{}

func (EffortFallbackStrategy) Name() string { return "EffortFallback" }

func (EffortFallbackStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	return stmt.IsLeaf() && !stmt.HasHint(IdleHint)
}

func (EffortFallbackStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	bs := []behavior.Behavior{
		behavior.NewActionLayerBehavior(),
		behavior.NewRoundPerNextBehavior(),
		behavior.NewSinglePassBehavior(),
		behavior.NewUnboundTimerBehavior(),
		behavior.NewHistoryBehavior(),
		behavior.NewSegmentOutputBehavior(),
		behavior.NewTrackMetricBehavior(),
	}
	return finish(block.TypeEffort, stmt, parent, effortLabel(stmt), bs)
}

// IdleBlockStrategy matches the synthetic idle statements the runtime
// constructs between the root and the first/last workout block (§4.5).
type IdleBlockStrategy struct {
	// PopOnEvents configures the IdleBehavior attached to the compiled
	// block; the runtime supplies {"timer:start"} for the initial idle
	// child and a dismissal event for the final one.
	PopOnEvents []string
}

func (s IdleBlockStrategy) Name() string { return "IdleBlock" }

func (s IdleBlockStrategy) CanHandle(stmt *script.Statement, parent *block.Block) bool {
	return stmt.HasHint(IdleHint)
}

func (s IdleBlockStrategy) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	bs := []behavior.Behavior{behavior.NewIdleBehavior(s.PopOnEvents...)}
	return finish(block.TypeIdle, stmt, parent, "", bs)
}

// Default returns the §4.5 strategy chain in its documented priority
// order, for statements drawn from the script proper. IdleBlockStrategy is
// deliberately not part of this chain: its PopOnEvents differ between the
// root's initial idle child (dismissed by timer:start) and its final one
// (dismissed by a user acknowledgement), so the runtime constructs those
// two blocks directly via IdleBlockStrategy.Compile rather than routing
// synthetic idle statements through the shared chain.
func Default() *Compiler {
	return New(
		WorkoutRootStrategy{},
		IntervalLogicStrategy{},
		AmrapLogicStrategy{},
		GenericTimerStrategy{},
		GenericLoopStrategy{},
		GenericGroupStrategy{},
		EffortFallbackStrategy{},
	)
}
