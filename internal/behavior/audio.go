package behavior

import (
	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/clock"
	"github.com/wod-wiki/runtime/internal/hooks"
	"github.com/wod-wiki/runtime/internal/script"
)

// SoundCueBehavior emits the block's Sound fragments onto the outputs$
// stream as their triggers occur (§4.4): "mount" and "unmount" fire from
// push/pop, "complete" fires from timer:complete, and
// "countdown-at-second" fires once the bound timer's remaining time
// crosses AtSecond.
type SoundCueBehavior struct {
	Base

	firedCountdown map[int]bool
}

// NewSoundCueBehavior constructs a SoundCueBehavior.
func NewSoundCueBehavior() *SoundCueBehavior {
	return &SoundCueBehavior{firedCountdown: make(map[int]bool)}
}

func (b *SoundCueBehavior) ID() ID        { return IDSoundCue }
func (b *SoundCueBehavior) Priority() int { return PriorityAudio }

func (b *SoundCueBehavior) sounds(ctx *Context) []script.SoundFragment {
	return script.FindAll[script.SoundFragment](ctx.Block.Source.Fragments)
}

func (b *SoundCueBehavior) OnPush(ctx *Context) []action.Action {
	var acts []action.Action
	for _, s := range b.sounds(ctx) {
		if s.Trigger == script.SoundOnMount {
			acts = append(acts, playSound(s.SoundID, ctx.Block.ID))
		}
	}
	return acts
}

func (b *SoundCueBehavior) OnPop(ctx *Context) []action.Action {
	var acts []action.Action
	for _, s := range b.sounds(ctx) {
		if s.Trigger == script.SoundOnUnmount {
			acts = append(acts, playSound(s.SoundID, ctx.Block.ID))
		}
	}
	return acts
}

func (b *SoundCueBehavior) OnEvent(ctx *Context, evt hooks.Event) []action.Action {
	var acts []action.Action
	switch evt.Name {
	case EvtTimerComplete:
		for _, s := range b.sounds(ctx) {
			if s.Trigger == script.SoundOnComplete {
				acts = append(acts, playSound(s.SoundID, ctx.Block.ID))
			}
		}
	case EvtTimerTick:
		if _, ok := evt.Payload.(clock.Tick); !ok {
			return nil
		}
		bt, isBound := ctx.Behavior(IDBoundTimer).(*BoundTimerBehavior)
		if !isBound {
			return nil
		}
		remainingSec := int(bt.Remaining().Seconds())
		for _, s := range b.sounds(ctx) {
			if s.Trigger != script.SoundCountdownAtSecond {
				continue
			}
			if remainingSec == s.AtSecond && !b.firedCountdown[s.AtSecond] {
				b.firedCountdown[s.AtSecond] = true
				acts = append(acts, playSound(s.SoundID, ctx.Block.ID))
			}
		}
	}
	return acts
}
