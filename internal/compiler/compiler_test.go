package compiler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/script"
)

// TestDefaultChainPicksFirstMatchingStrategy covers the §4.5 priority order
// across its boundary cases: an Interval-hinted timer beats GenericTimer, a
// Rounds+Timer combination is AMRAP not GenericLoop, and a bare leaf falls
// all the way through to EffortFallback.
func TestDefaultChainPicksFirstMatchingStrategy(t *testing.T) {
	c := Default()
	root := &block.Block{ID: "root-1", Key: "root"}

	cases := []struct {
		name string
		stmt *script.Statement
		want string
	}{
		{
			name: "interval hint wins over generic timer",
			stmt: &script.Statement{
				ID:        2,
				Parent:    intPtr(1),
				Fragments: []script.Fragment{script.TimerFragment{Duration: time.Minute, Direction: script.TimerCountDown}},
				Hints:     map[string]struct{}{"EMOM": {}},
			},
			want: "IntervalLogic",
		},
		{
			name: "timer+rounds is amrap",
			stmt: &script.Statement{
				ID:     3,
				Parent: intPtr(1),
				Fragments: []script.Fragment{
					script.TimerFragment{Duration: 20 * time.Minute, Direction: script.TimerCountDown},
					script.RoundsFragment{Count: 0, FromRepScheme: false},
				},
			},
			want: "AmrapLogic",
		},
		{
			name: "bare timer with no rounds/interval hint is generic",
			stmt: &script.Statement{
				ID:        4,
				Parent:    intPtr(1),
				Fragments: []script.Fragment{script.TimerFragment{Duration: 5 * time.Minute, Direction: script.TimerCountDown}},
			},
			want: "GenericTimer",
		},
		{
			name: "rounds with no timer is generic loop",
			stmt: &script.Statement{
				ID:        5,
				Parent:    intPtr(1),
				Children:  [][]int{{6}},
				Fragments: []script.Fragment{script.RoundsFragment{Count: 5}},
			},
			want: "GenericLoop",
		},
		{
			name: "children with no timer/rounds is a generic group",
			stmt: &script.Statement{
				ID:       7,
				Parent:   intPtr(1),
				Children: [][]int{{8, 9}},
			},
			want: "GenericGroup",
		},
		{
			name: "bare leaf falls through to effort fallback",
			stmt: &script.Statement{
				ID:        10,
				Parent:    intPtr(1),
				Fragments: []script.Fragment{script.EffortFragment{Name: "Burpees"}},
			},
			want: "EffortFallback",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var matched string
			for _, s := range c.strategies {
				if s.CanHandle(tc.stmt, root) {
					matched = s.Name()
					break
				}
			}
			assert.Equal(t, tc.want, matched)

			blk, err := c.Compile(context.Background(), tc.stmt, root)
			require.NoError(t, err)
			require.NotNil(t, blk)
		})
	}
}

func TestWorkoutRootStrategyOnlyMatchesParentlessStatement(t *testing.T) {
	root := &script.Statement{ID: 1}
	child := &script.Statement{ID: 2, Parent: intPtr(1)}
	idle := &script.Statement{ID: 3, Hints: map[string]struct{}{IdleHint: {}}}

	assert.True(t, WorkoutRootStrategy{}.CanHandle(root, nil))
	assert.False(t, WorkoutRootStrategy{}.CanHandle(child, nil), "has a parent statement")
	assert.False(t, WorkoutRootStrategy{}.CanHandle(idle, nil), "synthetic idle statements never compile as root")
}

func TestSingleTimerDurationRejectsContradictoryFragments(t *testing.T) {
	stmt := &script.Statement{
		ID: 1,
		Fragments: []script.Fragment{
			script.TimerFragment{Duration: 30 * time.Second, Direction: script.TimerCountDown},
			script.TimerFragment{Duration: 45 * time.Second, Direction: script.TimerCountDown},
		},
	}
	_, _, err := singleTimerDuration(stmt)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.StatementID)
}

func TestSingleTimerDurationAcceptsRepeatedIdenticalFragment(t *testing.T) {
	tf := script.TimerFragment{Duration: 30 * time.Second, Direction: script.TimerCountDown}
	stmt := &script.Statement{ID: 1, Fragments: []script.Fragment{tf, tf}}

	got, ok, err := singleTimerDuration(stmt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tf, got)
}

func TestSingleTimerDurationRejectsZeroDurationCountdown(t *testing.T) {
	stmt := &script.Statement{
		ID:        1,
		Fragments: []script.Fragment{script.TimerFragment{Duration: 0, Direction: script.TimerCountDown}},
	}
	_, _, err := singleTimerDuration(stmt)
	require.Error(t, err)
}

// TestRepSchemeAndRoundCountExplicitRoundsWin covers the Open Question
// resolution documented in DESIGN.md: when a RepFragment's scheme and an
// explicit RoundsFragment count disagree in length, the RoundsFragment
// count wins, even when it is the longer of the two.
func TestRepSchemeAndRoundCountExplicitRoundsWin(t *testing.T) {
	stmt := &script.Statement{
		ID: 1,
		Fragments: []script.Fragment{
			script.RepFragment{Scheme: []int{21, 15, 9}},
			script.RoundsFragment{Count: 5},
		},
	}
	count, scheme := repSchemeAndRoundCount(stmt)
	assert.Equal(t, 5, count, "explicit RoundsFragment count wins when not FromRepScheme")
	assert.Equal(t, []int{21, 15, 9}, scheme)
}

func TestRepSchemeAndRoundCountDerivesFromSchemeLength(t *testing.T) {
	stmt := &script.Statement{
		ID: 1,
		Fragments: []script.Fragment{
			script.RepFragment{Scheme: []int{21, 15, 9}},
			script.RoundsFragment{FromRepScheme: true},
		},
	}
	count, scheme := repSchemeAndRoundCount(stmt)
	assert.Equal(t, 3, count)
	assert.Equal(t, []int{21, 15, 9}, scheme)
}

func TestRepSchemeAndRoundCountDefaultsToOne(t *testing.T) {
	stmt := &script.Statement{ID: 1}
	count, scheme := repSchemeAndRoundCount(stmt)
	assert.Equal(t, 1, count)
	assert.Nil(t, scheme)
}

func intPtr(i int) *int { return &i }
