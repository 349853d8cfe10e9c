// Package cast projects the runtime's current memory/span snapshot into
// the §6.4 cast/receiver envelopes (CLOCK_RUNNING, CLOCK_PAUSED,
// CLOCK_IDLE). Projector is a pure function of its inputs: it has no
// transport, mirroring the teacher's convention of keeping protocol
// encoding decoupled from delivery (the network/WebSocket layer is a
// separate, external concern per §6.4).
package cast

import (
	"fmt"
	"time"

	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/block"
	"github.com/wod-wiki/runtime/internal/clock"
	"github.com/wod-wiki/runtime/internal/memory"
	"github.com/wod-wiki/runtime/internal/script"
)

// EventType is the cast envelope discriminator.
type EventType string

const (
	EventClockRunning EventType = "CLOCK_RUNNING"
	EventClockPaused  EventType = "CLOCK_PAUSED"
	EventClockIdle    EventType = "CLOCK_IDLE"
)

// ProtocolVersion is the envelope's `version` field.
const ProtocolVersion = "1.0"

// Envelope is the §6.4 wire-level cast event.
type Envelope struct {
	EventType EventType `json:"eventType"`
	Timestamp string    `json:"timestamp"`
	Version   string    `json:"version"`
	Data      any       `json:"data"`
}

// RunningData is the CLOCK_RUNNING/CLOCK_PAUSED payload.
type RunningData struct {
	TimerValue                    float64  `json:"timerValue"`
	TimerDisplay                  string   `json:"timerDisplay"`
	Effort                        string   `json:"effort,omitempty"`
	Repetitions                   *int     `json:"repetitions,omitempty"`
	Resistance                    *float64 `json:"resistance,omitempty"`
	Distance                      *float64 `json:"distance,omitempty"`
	RoundCurrent                  int      `json:"roundCurrent"`
	RoundTotal                    *int     `json:"roundTotal,omitempty"`
	IsAMRAP                       bool     `json:"isAMRAP"`
	EstimatedCompletionPercentage *float64 `json:"estimatedCompletionPercentage,omitempty"`
	PauseDuration                 *float64 `json:"pauseDuration,omitempty"`
}

// IdleData is the CLOCK_IDLE payload.
type IdleData struct {
	CurrentTime string `json:"currentTime"`
	Message     string `json:"message,omitempty"`
}

// Projector turns a live runtime snapshot into cast envelopes.
type Projector struct {
	Memory *memory.Store
	Stack  *block.Stack
	Clock  *clock.Clock
}

// New constructs a Projector over the given collaborators.
func New(mem *memory.Store, stack *block.Stack, clk *clock.Clock) *Projector {
	return &Projector{Memory: mem, Stack: stack, Clock: clk}
}

// Project inspects the current top-of-stack block and clock state and
// returns the appropriate envelope. idleMessage is used verbatim as
// IdleData.Message when the clock is idle (e.g. "waiting to start",
// "workout complete").
func (p *Projector) Project(now time.Time, idleMessage string) Envelope {
	state := p.Clock.State()
	if state == clock.Idle {
		return p.projectIdle(now, idleMessage)
	}

	top := p.Stack.Top()
	data := p.projectRunning(top)

	if state == clock.Paused {
		pause := p.Clock.MonotonicElapsed() - p.Clock.PausableElapsed()
		seconds := pause.Seconds()
		data.PauseDuration = &seconds
		return Envelope{EventType: EventClockPaused, Timestamp: iso(now), Version: ProtocolVersion, Data: data}
	}
	return Envelope{EventType: EventClockRunning, Timestamp: iso(now), Version: ProtocolVersion, Data: data}
}

func (p *Projector) projectIdle(now time.Time, message string) Envelope {
	return Envelope{
		EventType: EventClockIdle,
		Timestamp: iso(now),
		Version:   ProtocolVersion,
		Data:      IdleData{CurrentTime: iso(now), Message: message},
	}
}

func (p *Projector) projectRunning(top *block.Block) RunningData {
	if top == nil {
		return RunningData{}
	}

	data := RunningData{
		RoundCurrent: 1,
		IsAMRAP:      top.Type == block.TypeAMRAP,
	}

	if v, ok := p.Memory.Get(memory.Ref{Type: behavior.MemDisplayRound, OwnerID: top.ID}); ok {
		if round, ok := v.(int); ok {
			data.RoundCurrent = round
		}
	}

	elapsed := p.Clock.MonotonicElapsed()
	data.TimerValue = elapsed.Seconds()
	data.TimerDisplay = formatClock(elapsed)

	for _, f := range top.Source.Fragments {
		switch fr := f.(type) {
		case script.EffortFragment:
			data.Effort = fr.Name
		case script.RepFragment:
			if fr.Scheme == nil {
				reps := fr.Count
				data.Repetitions = &reps
			}
		case script.ResistanceFragment:
			val := fr.Value
			data.Resistance = &val
		case script.DistanceFragment:
			val := fr.Value
			data.Distance = &val
		case script.RoundsFragment:
			total := fr.Count
			data.RoundTotal = &total
		}
	}

	if bt, ok := findBoundTimer(top); ok {
		data.TimerValue = bt.Remaining().Seconds()
		data.TimerDisplay = formatClock(bt.Remaining())
		if bt.Duration > 0 {
			pct := 100 * (1 - bt.Remaining().Seconds()/bt.Duration.Seconds())
			data.EstimatedCompletionPercentage = &pct
		}
	}

	return data
}

// findBoundTimer looks for a *behavior.BoundTimerBehavior among top's
// attached behaviors, since only bound timers carry a knowable duration
// the completion percentage can be computed from.
func findBoundTimer(top *block.Block) (*behavior.BoundTimerBehavior, bool) {
	for _, b := range top.Behaviors {
		if bt, ok := b.(*behavior.BoundTimerBehavior); ok {
			return bt, true
		}
	}
	return nil, false
}

func iso(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h, rem := total/3600, total%3600
	m, s := rem/60, rem%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
