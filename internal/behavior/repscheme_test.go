package behavior_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/script"
)

func TestRepSchemeTargetsFirstEntryOnPush(t *testing.T) {
	rs := behavior.NewRepSchemeBehavior([]int{21, 15, 9})
	ctx := newTestContext(t, &script.Statement{ID: 1}, []behavior.Behavior{rs})

	acts := rs.OnPush(ctx)
	require.Len(t, acts, 1)
	payload := acts[0].Payload.(action.SetMemoryPayload)
	assert.Equal(t, behavior.MemMetricRepsTarget, payload.Type)
	assert.Equal(t, 21, payload.Value)
	assert.True(t, payload.Allocate)
}

func TestRepSchemeHoldsLastValueOnceRoundsExceedSchemeLength(t *testing.T) {
	ci := behavior.NewChildIndexBehavior()
	rpl := behavior.NewRoundPerLoopBehavior()
	rs := behavior.NewRepSchemeBehavior([]int{21, 15, 9})
	stmt := &script.Statement{ID: 1, Children: [][]int{{10}, {10}, {10}, {10}}}
	ctx := newTestContext(t, stmt, []behavior.Behavior{ci, rpl, rs})

	ci.OnPush(ctx)
	rpl.OnPush(ctx)
	rs.OnPush(ctx)

	var last action.SetMemoryPayload
	for round := 2; round <= 4; round++ {
		ci.Advance(ctx)
		rpl.OnNext(ctx)
		acts := rs.OnNext(ctx)
		require.Len(t, acts, 1)
		last = acts[0].Payload.(action.SetMemoryPayload)
	}
	// round 4 has no 4th scheme entry; the last (9) is held rather than
	// indexing out of range or reporting zero.
	assert.Equal(t, 9, last.Value)
}

func TestRepSchemeNoCounterAttachedIsNoOp(t *testing.T) {
	rs := behavior.NewRepSchemeBehavior([]int{21, 15, 9})
	ctx := newTestContext(t, &script.Statement{ID: 1}, []behavior.Behavior{rs})
	assert.Nil(t, rs.OnNext(ctx))
}

func TestRepSchemeEmptySchemeYieldsZero(t *testing.T) {
	rs := behavior.NewRepSchemeBehavior(nil)
	ctx := newTestContext(t, &script.Statement{ID: 1}, []behavior.Behavior{rs})

	acts := rs.OnPush(ctx)
	require.Len(t, acts, 1)
	assert.Equal(t, 0, acts[0].Payload.(action.SetMemoryPayload).Value)
}
