package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/action"
)

type recordingApplier struct {
	applied []action.Action
	onApply func(a action.Action) error
}

func (r *recordingApplier) Apply(a action.Action) error {
	r.applied = append(r.applied, a)
	if r.onApply != nil {
		return r.onApply(a)
	}
	return nil
}

func isStackPush(a action.Action) bool { return a.Kind == action.KindPushBlock }

// TestRunDrainsPhasesInOrderRegardlessOfEnqueueOrder covers §4.7.4: actions
// enqueued out of phase order (Stack before Display) must still apply
// DISPLAY -> MEMORY -> SIDE_EFFECT -> EVENT -> STACK.
func TestRunDrainsPhasesInOrderRegardlessOfEnqueueOrder(t *testing.T) {
	r := &recordingApplier{}
	q := action.NewQueue(r, 100)

	q.Enqueue(action.Action{Kind: action.KindPopBlock, Phase: action.Stack})
	q.Enqueue(action.Action{Kind: action.KindEmitEvent, Phase: action.Event})
	q.Enqueue(action.Action{Kind: action.KindSetMemory, Phase: action.Memory})
	q.Enqueue(action.Action{Kind: action.KindEmitOutput, Phase: action.Display})
	q.Enqueue(action.Action{Kind: action.KindPlaySound, Phase: action.SideEffect})

	require.NoError(t, q.Run(func(action.Action) bool { return false }))

	require.Len(t, r.applied, 5)
	assert.Equal(t, action.Display, r.applied[0].Phase)
	assert.Equal(t, action.Memory, r.applied[1].Phase)
	assert.Equal(t, action.SideEffect, r.applied[2].Phase)
	assert.Equal(t, action.Event, r.applied[3].Phase)
	assert.Equal(t, action.Stack, r.applied[4].Phase)
}

// TestRunRepeatsCycleOnStackMutation covers the "re-run every phase when a
// stack mutation happened" rule: a second cycle's DISPLAY action must apply
// only because the first cycle's STACK action mutated the stack.
func TestRunRepeatsCycleOnStackMutation(t *testing.T) {
	r := &recordingApplier{}
	q := action.NewQueue(r, 100)

	firstCycleDone := false
	r.onApply = func(a action.Action) error {
		if a.Kind == action.KindPushBlock && !firstCycleDone {
			firstCycleDone = true
			q.Enqueue(action.Action{Kind: action.KindEmitOutput, Phase: action.Display})
		}
		return nil
	}

	q.Enqueue(action.Action{Kind: action.KindPushBlock, Phase: action.Stack})

	require.NoError(t, q.Run(isStackPush))
	require.Len(t, r.applied, 2, "push, then the second cycle's display action")
	assert.Equal(t, action.KindPushBlock, r.applied[0].Kind)
	assert.Equal(t, action.KindEmitOutput, r.applied[1].Kind)
}

// TestRunAppliesAtMostOneStackActionPerCycle covers §4.7.1/§8 invariant 6:
// two queued STACK actions must apply on separate cycles, not the same one.
func TestRunAppliesAtMostOneStackActionPerCycle(t *testing.T) {
	r := &recordingApplier{}
	q := action.NewQueue(r, 100)

	var cyclesAtStackApply []int
	cycle := 0
	r.onApply = func(a action.Action) error {
		if a.Phase == action.Stack {
			cycle++
			cyclesAtStackApply = append(cyclesAtStackApply, cycle)
		}
		return nil
	}

	q.Enqueue(action.Action{Kind: action.KindPushBlock, Phase: action.Stack})
	q.Enqueue(action.Action{Kind: action.KindPopBlock, Phase: action.Stack})

	require.NoError(t, q.Run(isStackPush))
	require.Len(t, cyclesAtStackApply, 2)
	assert.NotEqual(t, cyclesAtStackApply[0], cyclesAtStackApply[1], "each stack action must land in its own cycle")
}

func TestRunReturnsActionStormWhenBatchExceeded(t *testing.T) {
	r := &recordingApplier{}
	q := action.NewQueue(r, 2)

	q.Enqueue(action.Action{Kind: action.KindEmitOutput, Phase: action.Display})
	q.Enqueue(action.Action{Kind: action.KindEmitOutput, Phase: action.Display})
	q.Enqueue(action.Action{Kind: action.KindEmitOutput, Phase: action.Display})

	err := q.Run(func(action.Action) bool { return false })
	require.Error(t, err)
	var storm *action.ErrActionStorm
	require.ErrorAs(t, err, &storm)
}

func TestPendingReflectsQueuedWork(t *testing.T) {
	q := action.NewQueue(&recordingApplier{}, 10)
	assert.False(t, q.Pending())
	q.Enqueue(action.Action{Phase: action.Memory})
	assert.True(t, q.Pending())
}

func TestEnqueueAllPreservesOrder(t *testing.T) {
	r := &recordingApplier{}
	q := action.NewQueue(r, 10)
	q.EnqueueAll([]action.Action{
		{Kind: action.KindSetMemory, Phase: action.Memory},
		{Kind: action.KindTrackRound, Phase: action.Memory},
	})
	require.NoError(t, q.Run(func(action.Action) bool { return false }))
	require.Len(t, r.applied, 2)
	assert.Equal(t, action.KindSetMemory, r.applied[0].Kind)
	assert.Equal(t, action.KindTrackRound, r.applied[1].Kind)
}
