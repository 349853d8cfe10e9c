package behavior

import (
	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/memory"
)

// RepSchemeBehavior supplies the rep target for the current round from a
// fixed Scheme (e.g. 21-15-9) into metric:reps-target (§4.4). If Scheme is
// shorter than the number of rounds actually run, the last value is held
// for every subsequent round — the resolution of the §4.5 "rep scheme
// length mismatch" edge case.
type RepSchemeBehavior struct {
	Base
	Scheme []int
}

// NewRepSchemeBehavior constructs a RepSchemeBehavior for the given scheme.
func NewRepSchemeBehavior(scheme []int) *RepSchemeBehavior {
	return &RepSchemeBehavior{Scheme: scheme}
}

func (b *RepSchemeBehavior) ID() ID        { return IDRepScheme }
func (b *RepSchemeBehavior) Priority() int { return PriorityRepScheme }

func (b *RepSchemeBehavior) OnPush(ctx *Context) []action.Action {
	return []action.Action{setMemory(ctx.Block.ID, MemMetricRepsTarget, b.targetForRound(1), memory.Public, action.Memory, true)}
}

func (b *RepSchemeBehavior) OnNext(ctx *Context) []action.Action {
	round := currentRound(ctx)
	if round == 0 {
		return nil
	}
	return []action.Action{setMemory(ctx.Block.ID, MemMetricRepsTarget, b.targetForRound(round), memory.Public, action.Memory, false)}
}

func (b *RepSchemeBehavior) targetForRound(round int) int {
	if len(b.Scheme) == 0 {
		return 0
	}
	idx := round - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b.Scheme) {
		idx = len(b.Scheme) - 1
	}
	return b.Scheme[idx]
}
