// Package action implements the execution core's deferred side-effect
// model (§4.7): every behavior hook returns a slice of Actions instead of
// mutating state inline, and a Queue applies them in strict phase order.
package action

import "fmt"

// Phase tags an Action with the stage of the processor that must apply it
// (§4.7.1). Phases drain in this order on every cycle.
type Phase int

const (
	Display Phase = iota
	Memory
	SideEffect
	Event
	Stack
	numPhases
)

func (p Phase) String() string {
	switch p {
	case Display:
		return "DISPLAY"
	case Memory:
		return "MEMORY"
	case SideEffect:
		return "SIDE_EFFECT"
	case Event:
		return "EVENT"
	case Stack:
		return "STACK"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Kind discriminates the tagged Action variants from §3.2.
type Kind int

const (
	KindPushBlock Kind = iota
	KindPopBlock
	KindCompileAndPushBlock
	KindEmitEvent
	KindEmitOutput
	KindSetMemory
	KindTrackRound
	KindTrackMetric
	KindPlaySound
	KindError
)

// Action is a deferred side effect returned by a behavior hook or by the
// event bus. A runtime-provided Applier applies it by dispatching on its
// Kind; the queue never interprets payloads itself, it only sequences
// Actions by Phase.
type Action struct {
	Kind    Kind
	Phase   Phase
	Payload any
}

// Applier executes a single Action. The execution core implements this by
// dispatching on Kind, keeping the action package itself free of any
// dependency on block/behavior/memory types.
type Applier interface {
	Apply(a Action) error
}
