// Package compiler implements the JIT Compiler (§4.5): an ordered list of
// Strategy candidates, tried in priority order, the first whose CanHandle
// matches wins. This chain-of-responsibility shape is grounded on the
// teacher's planner.Planner selection loop, adapted from "rank LLM tool
// candidates and take the first usable one" to "rank fragment-matching
// strategies and take the first applicable one".
package compiler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/script"
)

// CompileError is the §7 CompileError kind: a strategy match failure,
// conflicting fragments, or a cyclic children reference. It is local to
// the push attempt; the parent may skip the offending statement.
type CompileError struct {
	StatementID int
	Reason      string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiler: statement %d: %s", e.StatementID, e.Reason)
}

// Strategy compiles one script.Statement into a *block.Block, optionally
// attaching a validated behavior set. CanHandle must be a pure, total
// function of stmt and parent; Compile may fail with a *CompileError.
type Strategy interface {
	Name() string
	CanHandle(stmt *script.Statement, parent *block.Block) bool
	Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error)
}

// Compiler holds the ordered strategy chain (Default's order:
// WorkoutRoot, IntervalLogic, AmrapLogic, GenericTimer, GenericLoop,
// GenericGroup, EffortFallback; IdleBlock is compiled directly, outside
// the chain).
type Compiler struct {
	strategies []Strategy
}

// New constructs a Compiler trying strategies in the given order.
func New(strategies ...Strategy) *Compiler {
	return &Compiler{strategies: strategies}
}

// Compile finds the first strategy whose CanHandle matches and delegates
// to it. Returns a *CompileError if no strategy matches; in the Default
// chain EffortFallback catches every leaf without the idle hint, and the
// error is an explicit guard rather than a panic.
func (c *Compiler) Compile(ctx context.Context, stmt *script.Statement, parent *block.Block) (*block.Block, error) {
	for _, s := range c.strategies {
		if s.CanHandle(stmt, parent) {
			return s.Compile(ctx, stmt, parent)
		}
	}
	return nil, &CompileError{StatementID: stmt.ID, Reason: "no strategy matched"}
}

// newBlockID generates a unique id for a compiled block.
func newBlockID() string {
	return uuid.NewString()
}

// blockKey builds the hierarchical address for a child of parent, stable
// across repeated runs of the same script since it is derived from
// statement ids rather than push order.
func blockKey(parent *block.Block, stmt *script.Statement) string {
	if parent == nil {
		return "root"
	}
	return fmt.Sprintf("%s.%d", parent.Key, stmt.ID)
}

func parentID(parent *block.Block) string {
	if parent == nil {
		return ""
	}
	return parent.ID
}

// singleTimerDuration returns the one TimerFragment's duration/direction
// on fragments, or a *CompileError if two TimerFragments disagree (§4.5
// edge case: "contradictory durations ... compilation fails").
func singleTimerDuration(stmt *script.Statement) (script.TimerFragment, bool, error) {
	var found *script.TimerFragment
	for _, f := range stmt.Fragments {
		tf, ok := f.(script.TimerFragment)
		if !ok {
			continue
		}
		if found != nil && *found != tf {
			return script.TimerFragment{}, false, &CompileError{
				StatementID: stmt.ID,
				Reason:      "contradictory timer durations in fragments",
			}
		}
		t := tf
		found = &t
	}
	if found == nil {
		return script.TimerFragment{}, false, nil
	}
	if found.Duration == 0 && found.Direction == script.TimerCountDown {
		return script.TimerFragment{}, false, &CompileError{
			StatementID: stmt.ID,
			Reason:      "zero-duration countdown timer",
		}
	}
	return *found, true, nil
}

// repSchemeAndRoundCount resolves a statement's round count and optional
// rep scheme. If a RepFragment scheme and an explicit RoundsFragment count
// disagree in length, the documented resolution (Open Question, see
// DESIGN.md) is: the RoundsFragment count wins, whichever is shorter, and
// RepSchemeBehavior holds the scheme's last value for any rounds past the
// scheme's end.
func repSchemeAndRoundCount(stmt *script.Statement) (count int, scheme []int) {
	rounds, hasRounds := script.FindFirst[script.RoundsFragment](stmt.Fragments)
	rep, hasRep := script.FindFirst[script.RepFragment](stmt.Fragments)

	switch {
	case hasRep && len(rep.Scheme) > 0 && hasRounds && !rounds.FromRepScheme:
		scheme = rep.Scheme
		count = rounds.Count
	case hasRep && len(rep.Scheme) > 0:
		scheme = rep.Scheme
		count = len(rep.Scheme)
	case hasRounds:
		count = rounds.Count
	default:
		count = 1
	}
	return count, scheme
}

func hasChildren(stmt *script.Statement) bool {
	return !stmt.IsLeaf()
}
