package hooks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/hooks"
)

func TestDispatchInvokesHandlersInRegistrationOrder(t *testing.T) {
	b := hooks.NewBus()
	var order []string
	b.Register("timer:tick", func(hooks.Event) []action.Action {
		order = append(order, "first")
		return nil
	}, "owner-a")
	b.Register("timer:tick", func(hooks.Event) []action.Action {
		order = append(order, "second")
		return nil
	}, "owner-b")

	b.Dispatch(hooks.Event{Name: "timer:tick"})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatchOnlyInvokesHandlersForMatchingEventName(t *testing.T) {
	b := hooks.NewBus()
	var invoked bool
	b.Register("timer:tick", func(hooks.Event) []action.Action {
		invoked = true
		return nil
	}, "owner-a")

	b.Dispatch(hooks.Event{Name: "timer:complete"})
	assert.False(t, invoked)
}

func TestDispatchConcatenatesReturnedActions(t *testing.T) {
	b := hooks.NewBus()
	b.Register("block:complete", func(hooks.Event) []action.Action {
		return []action.Action{{Kind: action.KindEmitOutput}}
	}, "owner-a")
	b.Register("block:complete", func(hooks.Event) []action.Action {
		return []action.Action{{Kind: action.KindPopBlock}, {Kind: action.KindEmitEvent}}
	}, "owner-b")

	acts := b.Dispatch(hooks.Event{Name: "block:complete"})
	require.Len(t, acts, 3)
	assert.Equal(t, action.KindEmitOutput, acts[0].Kind)
	assert.Equal(t, action.KindPopBlock, acts[1].Kind)
	assert.Equal(t, action.KindEmitEvent, acts[2].Kind)
}

func TestUnregisterByOwnerRemovesAcrossAllEventNames(t *testing.T) {
	b := hooks.NewBus()
	var aCalls, bCalls int
	b.Register("timer:tick", func(hooks.Event) []action.Action { aCalls++; return nil }, "owner-a")
	b.Register("timer:complete", func(hooks.Event) []action.Action { aCalls++; return nil }, "owner-a")
	b.Register("timer:tick", func(hooks.Event) []action.Action { bCalls++; return nil }, "owner-b")

	b.UnregisterByOwner("owner-a")
	b.Dispatch(hooks.Event{Name: "timer:tick"})
	b.Dispatch(hooks.Event{Name: "timer:complete"})

	assert.Equal(t, 0, aCalls, "owner-a's handlers must be gone from every event name")
	assert.Equal(t, 1, bCalls, "owner-b's handler must survive owner-a's teardown")
}

func TestUnregisterRemovesOnlyTheNamedEvent(t *testing.T) {
	b := hooks.NewBus()
	var tickCalls, completeCalls int
	b.Register("timer:tick", func(hooks.Event) []action.Action { tickCalls++; return nil }, "owner-a")
	b.Register("timer:complete", func(hooks.Event) []action.Action { completeCalls++; return nil }, "owner-a")

	b.Unregister("timer:tick", "owner-a")
	b.Dispatch(hooks.Event{Name: "timer:tick"})
	b.Dispatch(hooks.Event{Name: "timer:complete"})

	assert.Equal(t, 0, tickCalls)
	assert.Equal(t, 1, completeCalls)
}

// TestDispatchSnapshotsHandlerListBeforeIterating covers the §4.2
// guarantee: a handler that registers a new handler mid-dispatch must not
// have that new registration invoked until the *next* Dispatch call.
func TestDispatchSnapshotsHandlerListBeforeIterating(t *testing.T) {
	b := hooks.NewBus()
	var lateCalls int
	b.Register("timer:tick", func(hooks.Event) []action.Action {
		b.Register("timer:tick", func(hooks.Event) []action.Action {
			lateCalls++
			return nil
		}, "owner-late")
		return nil
	}, "owner-a")

	b.Dispatch(hooks.Event{Name: "timer:tick"})
	assert.Equal(t, 0, lateCalls, "handler registered mid-dispatch must not fire on this dispatch")

	b.Dispatch(hooks.Event{Name: "timer:tick"})
	assert.Equal(t, 1, lateCalls, "it fires on the following dispatch")
}
