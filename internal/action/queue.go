package action

import "fmt"

// ErrActionStorm is returned by Queue.Run when a single cycle's action count
// exceeds the configured batch guard (§4.7.5, ActionStorm in §7).
type ErrActionStorm struct {
	Batch int
}

func (e *ErrActionStorm) Error() string {
	return fmt.Sprintf("action: storm detected, batch of %d exceeds limit", e.Batch)
}

// Queue implements the phased processor loop from §4.7.4:
//
//	repeat:
//	  for phase in [DISPLAY, MEMORY, SIDE_EFFECT, EVENT, STACK]:
//	    drain(phase)
//	  if any stack mutation happened this cycle: continue
//	  else: break
//
// Actions enqueued while draining a phase run within the *same* cycle if
// they target an earlier or equal phase that hasn't fully drained yet is
// not possible by construction (phases only drain forward); actions
// targeting the current or a later phase are appended to that phase's
// FIFO and drained before the cycle ends. EVENT-phase handlers queue their
// returned actions for the *next* cycle, never the current one (§4.7.1) —
// callers enforce this by tagging those actions for next-cycle delivery
// before calling Enqueue again.
type Queue struct {
	applier  Applier
	maxBatch int
	lists    [numPhases][]Action
}

// NewQueue constructs an empty Queue bound to applier, guarded by maxBatch
// actions processed per cycle (actionQueueMaxBatch, §3.3).
func NewQueue(applier Applier, maxBatch int) *Queue {
	return &Queue{applier: applier, maxBatch: maxBatch}
}

// Enqueue appends a to its Phase's FIFO list.
func (q *Queue) Enqueue(a Action) {
	q.lists[a.Phase] = append(q.lists[a.Phase], a)
}

// EnqueueAll enqueues every action in as, in order.
func (q *Queue) EnqueueAll(as []Action) {
	for _, a := range as {
		q.Enqueue(a)
	}
}

// Pending reports whether any phase currently has queued actions.
func (q *Queue) Pending() bool {
	for _, l := range q.lists {
		if len(l) > 0 {
			return true
		}
	}
	return false
}

// StackMutationFunc reports whether applying an action produced a stack
// push or pop, used by Run to decide whether to start another cycle.
type StackMutationFunc func(a Action) bool

// Run drains every phase in order, repeating cycles as long as a STACK
// mutation happened in the prior cycle (§4.7.1). It returns after a cycle
// produces no further queued work and no stack mutation occurred. The
// number of actions applied within any single cycle is bounded by
// maxBatch; exceeding it returns ErrActionStorm without applying the
// action that would have exceeded the budget.
func (q *Queue) Run(isStackMutation StackMutationFunc) error {
	for {
		applied := 0
		stackMutated := false
		for phase := Phase(0); phase < numPhases; phase++ {
			if phase == Stack {
				// At most one stack mutation is applied per cycle (§4.7.1,
				// §8 invariant 6); any remaining STACK actions carry over
				// to the next cycle's drain of this same phase.
				if len(q.lists[phase]) > 0 {
					a := q.lists[phase][0]
					q.lists[phase] = q.lists[phase][1:]
					applied++
					if applied > q.maxBatch {
						return &ErrActionStorm{Batch: applied}
					}
					if err := q.applier.Apply(a); err != nil {
						return err
					}
					if isStackMutation(a) {
						stackMutated = true
					}
				}
				continue
			}
			for len(q.lists[phase]) > 0 {
				a := q.lists[phase][0]
				q.lists[phase] = q.lists[phase][1:]
				applied++
				if applied > q.maxBatch {
					return &ErrActionStorm{Batch: applied}
				}
				if err := q.applier.Apply(a); err != nil {
					return err
				}
			}
		}
		if !stackMutated && !q.Pending() {
			return nil
		}
	}
}
