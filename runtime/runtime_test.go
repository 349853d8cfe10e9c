package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/script"
)

// franScript builds a 3-round, 2-exercise-per-round script by hand:
//
//	(root, id 1)
//	  Rounds x3 (id 2)
//	    Thrusters (id 3)
//	    Pullups   (id 4)
func franScript() *script.Script {
	root := &script.Statement{ID: 1, Children: [][]int{{2}}}
	group := &script.Statement{
		ID:        2,
		Parent:    intPtr(1),
		Children:  [][]int{{3, 4}, {3, 4}, {3, 4}},
		Fragments: []script.Fragment{script.RoundsFragment{Count: 3}},
	}
	thrusters := &script.Statement{
		ID:        3,
		Parent:    intPtr(2),
		Fragments: []script.Fragment{script.EffortFragment{Name: "Thrusters"}},
	}
	pullups := &script.Statement{
		ID:        4,
		Parent:    intPtr(2),
		Fragments: []script.Fragment{script.EffortFragment{Name: "Pullups"}},
	}
	return &script.Script{Statements: []*script.Statement{root, group, thrusters, pullups}}
}

func intPtr(i int) *int { return &i }

func newTestRuntime(t *testing.T, s *script.Script) *Runtime {
	t.Helper()
	rt, err := New(Options{Script: s})
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	return rt
}

// TestFranCompletesAfterThreeRounds drives the full lifecycle end to end:
// MOUNTING -> INITIAL_IDLE on Start, EXECUTING on timer:start, six
// timer:next advances (3 rounds x 2 exercises), then COMPLETING ->
// FINAL_IDLE on the stack emptying naturally, then COMPLETE on dismissal.
func TestFranCompletesAfterThreeRounds(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, franScript())

	require.Equal(t, 2, rt.Stack().Depth(), "root + initial idle child")
	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerStart, nil))

	require.Equal(t, behavior.Executing, rt.root.State())
	assert.False(t, rt.Finished())

	// 3 rounds * 2 exercises = 6 explicit "done with this rep" advances.
	for i := 0; i < 6; i++ {
		require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerNext, nil))
		assert.False(t, rt.Finished(), "should not finish before round 3's last exercise pops")
	}

	// The stack emptied naturally: root must have transitioned through
	// COMPLETING to FINAL_IDLE and be holding for dismissal, not have
	// popped itself directly.
	require.Equal(t, behavior.FinalIdle, rt.root.State())
	assert.Equal(t, 2, rt.Stack().Depth(), "root plus the terminal idle child")
	assert.False(t, rt.Finished())

	require.NoError(t, rt.HandleEvent(ctx, dismissEvent, nil))
	assert.True(t, rt.Finished())
	assert.Equal(t, behavior.Complete, rt.root.State())
}

func TestPauseResumeDoesNotAdvanceClockWhilePaused(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, franScript())
	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerStart, nil))

	require.NoError(t, rt.Advance(ctx, 2*time.Second))
	elapsedBeforePause := rt.Clock().PausableElapsed()
	assert.Equal(t, 2*time.Second, elapsedBeforePause)

	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerPause, nil))
	assert.Equal(t, behavior.Paused, rt.root.State())

	require.NoError(t, rt.Advance(ctx, 5*time.Second))
	assert.Equal(t, elapsedBeforePause, rt.Clock().PausableElapsed(), "paused clock must not accrue pausable time")

	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerResume, nil))
	assert.Equal(t, behavior.Executing, rt.root.State())

	require.NoError(t, rt.Advance(ctx, 1*time.Second))
	assert.Equal(t, 3*time.Second, rt.Clock().PausableElapsed())
}

func TestWorkoutCompleteCascadesSkippingRemainingFrames(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, franScript())
	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerStart, nil))

	// Advance only once, leaving the group and first exercise still live,
	// then ask the host to end the workout outright.
	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerNext, nil))
	require.Greater(t, rt.Stack().Depth(), 1)

	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtWorkoutComplete, nil))
	require.Equal(t, behavior.FinalIdle, rt.root.State())
	assert.Equal(t, 2, rt.Stack().Depth(), "root plus the terminal idle child")

	require.NoError(t, rt.HandleEvent(ctx, dismissEvent, nil))
	assert.True(t, rt.Finished())
}

// TestCompileErrorOnContradictoryTimerFragments covers §4.5's "compilation
// fails" edge case: two disagreeing TimerFragments on the same statement
// must not abort the run, only skip that one child and advance the parent.
func TestCompileErrorOnContradictoryTimerFragments(t *testing.T) {
	ctx := context.Background()
	root := &script.Statement{ID: 1, Children: [][]int{{2}}}
	bad := &script.Statement{
		ID:     2,
		Parent: intPtr(1),
		Fragments: []script.Fragment{
			script.TimerFragment{Duration: 30 * time.Second, Direction: script.TimerCountDown},
			script.TimerFragment{Duration: 45 * time.Second, Direction: script.TimerCountDown},
		},
	}
	s := &script.Script{Statements: []*script.Statement{root, bad}}

	rt := newTestRuntime(t, s)
	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerStart, nil))

	var sawCompileError bool
	for _, rec := range rt.Outputs().History() {
		if rec.Payload().Label == "CompileError" {
			sawCompileError = true
		}
	}
	assert.True(t, sawCompileError, "expected a CompileError output instead of a stalled run")

	// The parent (root) must still have advanced past the failed child
	// rather than stalling, so the run reaches FINAL_IDLE on its own.
	require.Equal(t, behavior.FinalIdle, rt.root.State())
}

func TestCollectibleMetricTracksAgainstOpenSpan(t *testing.T) {
	ctx := context.Background()
	root := &script.Statement{ID: 1, Children: [][]int{{2}}}
	leaf := &script.Statement{
		ID:     2,
		Parent: intPtr(1),
		Fragments: []script.Fragment{
			script.EffortFragment{Name: "Run"},
			script.DistanceFragment{Direction: script.DirectionCollectible, Unit: script.UnitMeters},
		},
	}
	s := &script.Script{Statements: []*script.Statement{root, leaf}}
	rt := newTestRuntime(t, s)
	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerStart, nil))

	leafBlk := rt.Stack().Top()
	require.NotNil(t, leafBlk)
	require.NoError(t, rt.UpdateMetric(ctx, leafBlk.Key, "distance", 400.0))

	require.NoError(t, rt.HandleEvent(ctx, behavior.EvtTimerNext, nil))
	require.Equal(t, behavior.FinalIdle, rt.root.State())
}
