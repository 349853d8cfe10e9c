package behavior_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/script"
)

func TestActionLayerPublishesSourceFragmentsOnPush(t *testing.T) {
	al := behavior.NewActionLayerBehavior()
	stmt := &script.Statement{
		ID:        1,
		Fragments: []script.Fragment{script.EffortFragment{Name: "Thrusters"}},
	}
	ctx := newTestContext(t, stmt, []behavior.Behavior{al})

	acts := al.OnPush(ctx)
	require.Len(t, acts, 1)
	payload := acts[0].Payload.(action.SetMemoryPayload)
	assert.Equal(t, behavior.MemFragmentDisplay, payload.Type)
	assert.Equal(t, ctx.Block.ID, payload.OwnerID)
	assert.True(t, payload.Allocate)
	assert.Equal(t, stmt.Fragments, payload.Value)
}
