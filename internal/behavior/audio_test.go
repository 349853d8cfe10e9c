package behavior_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/hooks"
	"github.com/wod-wiki/runtime/internal/script"
)

func soundScript(triggers ...script.SoundTrigger) *script.Statement {
	frags := make([]script.Fragment, len(triggers))
	for i, tr := range triggers {
		frags[i] = script.SoundFragment{SoundID: string(tr), Trigger: tr}
	}
	return &script.Statement{ID: 1, Fragments: frags}
}

func TestSoundCueFiresOnMountAndUnmountTriggers(t *testing.T) {
	sc := behavior.NewSoundCueBehavior()
	stmt := soundScript(script.SoundOnMount, script.SoundOnUnmount)
	ctx := newTestContext(t, stmt, []behavior.Behavior{sc})

	acts := sc.OnPush(ctx)
	require.Len(t, acts, 1)
	assert.Equal(t, string(script.SoundOnMount), acts[0].Payload.(action.PlaySoundPayload).SoundID)

	acts = sc.OnPop(ctx)
	require.Len(t, acts, 1)
	assert.Equal(t, string(script.SoundOnUnmount), acts[0].Payload.(action.PlaySoundPayload).SoundID)
}

func TestSoundCueFiresOnCompleteEvent(t *testing.T) {
	sc := behavior.NewSoundCueBehavior()
	stmt := soundScript(script.SoundOnComplete)
	ctx := newTestContext(t, stmt, []behavior.Behavior{sc})

	assert.Nil(t, sc.OnEvent(ctx, tickEvent(time.Second)), "a tick with no bound timer attached must not fire countdown cues")

	acts := sc.OnEvent(ctx, hooks.Event{Name: behavior.EvtTimerComplete})
	require.Len(t, acts, 1)
	assert.Equal(t, string(script.SoundOnComplete), acts[0].Payload.(action.PlaySoundPayload).SoundID)
}

func TestSoundCueFiresCountdownAtSecondExactlyOnce(t *testing.T) {
	bt := behavior.NewBoundTimerBehavior(30*time.Second, behavior.CountDown)
	sc := behavior.NewSoundCueBehavior()
	stmt := &script.Statement{
		ID: 1,
		Fragments: []script.Fragment{
			script.SoundFragment{SoundID: "beep", Trigger: script.SoundCountdownAtSecond, AtSecond: 20},
		},
	}
	ctx := newTestContext(t, stmt, []behavior.Behavior{bt, sc})
	bt.OnPush(ctx)

	bt.OnEvent(ctx, tickEvent(5*time.Second)) // remaining 25s, no cue yet
	assert.Empty(t, sc.OnEvent(ctx, tickEvent(5*time.Second)))

	bt.OnEvent(ctx, tickEvent(10*time.Second)) // remaining 20s now
	acts := sc.OnEvent(ctx, tickEvent(10*time.Second))
	require.Len(t, acts, 1)
	assert.Equal(t, "beep", acts[0].Payload.(action.PlaySoundPayload).SoundID)

	// Further ticks at the same remaining time must not refire the cue.
	acts = sc.OnEvent(ctx, tickEvent(10*time.Second))
	assert.Empty(t, acts)
}
