// Package hooks implements the runtime's owner-scoped event bus (§4.2).
// Handlers react to dispatched events by returning actions to be queued,
// never by mutating state directly — mirroring the action-deferral
// discipline of the execution core (§4.7).
package hooks

import (
	"sync"

	"github.com/wod-wiki/runtime/internal/action"
)

// Event is a runtime event dispatched on the bus, e.g. "timer:tick",
// "stack:push", "block:complete". Payload carries event-specific data.
type Event struct {
	Name    string
	Payload any
}

// Handler reacts to a dispatched Event and returns the actions it wants
// applied. Handlers must not dispatch new events synchronously — the
// actions they return are queued for processing, never dispatched inline
// (§4.2 contract).
type Handler func(event Event) []action.Action

// Bus is an owner-scoped pub/sub of runtime events. Unlike a plain
// fan-out bus, handlers are registered against both an event name and an
// owning block id so that UnregisterByOwner can cleanly tear down every
// handler a popped block installed (§4.7.3 step 5: "unregister its event
// bus owner").
//
// Bus is safe for concurrent use: registration is serialized behind a
// mutex and Dispatch snapshots the handler list before invoking it, so
// handlers registered mid-dispatch are not invoked until the next Dispatch
// call — matching the teacher's Bus.Publish snapshot discipline.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]registration
}

type registration struct {
	ownerID string
	handler Handler
}

// NewBus constructs an empty, ready-to-use Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]registration)}
}

// Register adds handler for eventName, scoped to ownerID so it can later be
// removed in bulk via UnregisterByOwner.
func (b *Bus) Register(eventName string, handler Handler, ownerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], registration{ownerID: ownerID, handler: handler})
}

// Unregister removes every registration of a handler for eventName
// belonging to ownerID.
func (b *Bus) Unregister(eventName, ownerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeOwnerLocked(eventName, ownerID)
}

// UnregisterByOwner removes every handler registered by ownerID across all
// event names. Called when a block is popped and disposed (§4.7.3).
func (b *Bus) UnregisterByOwner(ownerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name := range b.handlers {
		b.removeOwnerLocked(name, ownerID)
	}
}

func (b *Bus) removeOwnerLocked(eventName, ownerID string) {
	regs := b.handlers[eventName]
	out := regs[:0]
	for _, r := range regs {
		if r.ownerID != ownerID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		delete(b.handlers, eventName)
		return
	}
	b.handlers[eventName] = out
}

// Dispatch delivers event to every handler registered for event.Name, in
// registration order, and returns the concatenation of every handler's
// returned actions (§4.2). Dispatch takes a snapshot of the handler list
// before iterating so registrations/unregistrations triggered indirectly
// during dispatch never affect the current delivery.
func (b *Bus) Dispatch(event Event) []action.Action {
	b.mu.RLock()
	regs := append([]registration(nil), b.handlers[event.Name]...)
	b.mu.RUnlock()

	var out []action.Action
	for _, r := range regs {
		out = append(out, r.handler(event)...)
	}
	return out
}
