package behavior

import (
	"time"

	"github.com/wod-wiki/runtime/internal/action"
	"github.com/wod-wiki/runtime/internal/memory"
)

func setMemory(ownerID, typ string, value any, vis memory.Visibility, phase action.Phase, allocate bool) action.Action {
	return action.Action{
		Kind:  action.KindSetMemory,
		Phase: phase,
		Payload: action.SetMemoryPayload{
			Type:       typ,
			OwnerID:    ownerID,
			Visibility: int(vis),
			Value:      value,
			Allocate:   allocate,
		},
	}
}

func emitEvent(name string, payload any) action.Action {
	return action.Action{Kind: action.KindEmitEvent, Phase: action.Event, Payload: action.EmitEventPayload{Name: name, Payload: payload}}
}

func emitOutput(typ, blockID, blockKey, label string, fragments, metrics any, status string, ts time.Time) action.Action {
	return action.Action{
		Kind:  action.KindEmitOutput,
		Phase: action.Display,
		Payload: action.EmitOutputPayload{
			Type:      typ,
			BlockID:   blockID,
			BlockKey:  blockKey,
			Label:     label,
			Fragments: fragments,
			Metrics:   metrics,
			Status:    status,
			Timestamp: ts,
		},
	}
}

func popBlock(blockID, status string) action.Action {
	return action.Action{Kind: action.KindPopBlock, Phase: action.Stack, Payload: action.PopBlockPayload{BlockID: blockID, Status: status}}
}

func pushBlock(parentID string, b any) action.Action {
	return action.Action{Kind: action.KindPushBlock, Phase: action.Stack, Payload: action.PushBlockPayload{ParentID: parentID, Block: b}}
}

func compileAndPush(parentID string, statement any) action.Action {
	return action.Action{Kind: action.KindCompileAndPushBlock, Phase: action.Stack, Payload: action.CompileAndPushPayload{ParentID: parentID, Statement: statement}}
}

func trackMetric(blockID, typ string, value any) action.Action {
	return action.Action{Kind: action.KindTrackMetric, Phase: action.SideEffect, Payload: action.TrackMetricPayload{BlockID: blockID, Type: typ, Value: value}}
}

func trackRound(blockID string, round int) action.Action {
	return action.Action{Kind: action.KindTrackRound, Phase: action.SideEffect, Payload: action.TrackRoundPayload{BlockID: blockID, Round: round}}
}

func playSound(soundID, blockID string) action.Action {
	return action.Action{Kind: action.KindPlaySound, Phase: action.SideEffect, Payload: action.PlaySoundPayload{SoundID: soundID, BlockID: blockID}}
}

func errAction(kind, msg string, terminal bool) action.Action {
	return action.Action{
		Kind:  action.KindError,
		Phase: action.Event,
		Payload: action.ErrorPayload{
			Kind:     kind,
			Message:  msg,
			Terminal: terminal,
		},
	}
}
