// Package clock implements the runtime's single-threaded cooperative ticker
// (§4.3). The clock never reads wall-clock time directly inside behaviors;
// it is the only time source the rest of the runtime is allowed to consult
// (§9 design note), and it is driven deterministically by an injected
// ClockSource for reproducible tests.
package clock

import "time"

// State is one of the three clock states from §4.3.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Source supplies the current wall-clock instant, used only for Now()
// timestamps (e.g. execution-record StartedAt/CompletedAt). Production
// hosts pass time.Now; deterministic tests pass a fixed or manually
// advanced fake. Elapsed-time bookkeeping (PausableElapsed,
// MonotonicElapsed) is driven exclusively by Advance and never resamples
// Source, so tests get reproducible durations regardless of how Source
// behaves between calls.
type Source func() time.Time

// Tick is delivered to subscribers roughly every tickIntervalMs, carrying
// the pausable elapsed time. Ticks are never emitted during a paused
// interval (§4.3 guarantee).
type Tick struct {
	PausableElapsed  time.Duration
	MonotonicElapsed time.Duration
}

// TickListener receives Tick notifications.
type TickListener func(Tick)

// Clock holds two durations: monotonic elapsed since Start (including
// paused intervals) and pausable elapsed (excluding them). It is driven
// cooperatively by explicit Advance(d) calls — from a deterministic test,
// or from a host-owned goroutine translating real wall-clock ticks into
// Advance calls via RunWallClock. The clock itself never spawns goroutines
// implicitly, preserving the single-threaded cooperative discipline of the
// core (§5).
type Clock struct {
	source Source
	state  State

	monotonic time.Duration
	pausable  time.Duration

	listeners []TickListener
}

// New constructs an idle Clock whose Now() delegates to source. If source
// is nil, time.Now is used.
func New(source Source) *Clock {
	if source == nil {
		source = time.Now
	}
	return &Clock{source: source, state: Idle}
}

// Start transitions Idle -> Running. Starting an already-running or paused
// clock is a no-op.
func (c *Clock) Start() {
	if c.state != Idle {
		return
	}
	c.state = Running
}

// Pause transitions Running -> Paused. No further pausable time accrues
// until Resume; MonotonicElapsed keeps advancing via subsequent Advance
// calls regardless of pause state (§4.3: monotonic excludes nothing).
func (c *Clock) Pause() {
	if c.state != Running {
		return
	}
	c.state = Paused
}

// Resume transitions Paused -> Running.
func (c *Clock) Resume() {
	if c.state != Paused {
		return
	}
	c.state = Running
}

// Stop transitions to Idle and resets accumulated durations.
func (c *Clock) Stop() {
	c.state = Idle
	c.monotonic = 0
	c.pausable = 0
}

// State reports the current clock state.
func (c *Clock) State() State { return c.state }

// Now returns the current wall-clock instant from the injected source.
// This is the single point where the runtime is allowed to read time (§9);
// behaviors must never call time.Now directly.
func (c *Clock) Now() time.Time { return c.source() }

// PausableElapsed returns the accumulated running time, excluding any
// paused intervals.
func (c *Clock) PausableElapsed() time.Duration { return c.pausable }

// MonotonicElapsed returns the accumulated time since Start, including
// paused intervals.
func (c *Clock) MonotonicElapsed() time.Duration { return c.monotonic }

// Subscribe registers a listener invoked on every tick. Returns an
// unsubscribe function.
func (c *Clock) Subscribe(listener TickListener) (unsubscribe func()) {
	c.listeners = append(c.listeners, listener)
	idx := len(c.listeners) - 1
	return func() {
		if idx < len(c.listeners) {
			c.listeners[idx] = nil
		}
	}
}

// Advance moves time forward by d. MonotonicElapsed always accrues by d.
// PausableElapsed accrues by d, and a Tick is emitted to subscribers, only
// while Running; Advance is otherwise a bookkeeping no-op for
// PausableElapsed and emits no tick while Paused or Idle (§4.3: "never
// during a paused interval").
func (c *Clock) Advance(d time.Duration) {
	c.monotonic += d
	if c.state != Running {
		return
	}
	c.pausable += d
	tick := Tick{PausableElapsed: c.pausable, MonotonicElapsed: c.monotonic}
	for _, l := range c.listeners {
		if l != nil {
			l(tick)
		}
	}
}
