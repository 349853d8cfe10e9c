package behavior

import (
	"fmt"
	"sort"
)

// ErrDependencyViolation is returned by Compose when a behavior set
// violates group exclusivity, requires, or conflictsWith (§4.4 rules 1-3,
// DependencyViolation in §7).
type ErrDependencyViolation struct {
	Reason string
}

func (e *ErrDependencyViolation) Error() string {
	return "behavior: dependency violation: " + e.Reason
}

// Compose validates a candidate behavior set against the §4.4 composition
// rules and returns it sorted into descending-priority order, the order
// every lifecycle hook must be invoked in (rule 4). It does not mutate the
// input slice.
func Compose(behaviors []Behavior) ([]Behavior, error) {
	present := make(map[ID]bool, len(behaviors))
	groupOwner := make(map[string]ID)

	for _, b := range behaviors {
		present[b.ID()] = true
	}

	for _, b := range behaviors {
		if g := b.Group(); g != "" {
			if owner, exists := groupOwner[g]; exists {
				return nil, &ErrDependencyViolation{
					Reason: fmt.Sprintf("group %q already has %s, cannot also attach %s", g, owner, b.ID()),
				}
			}
			groupOwner[g] = b.ID()
		}
	}

	for _, b := range behaviors {
		for _, req := range b.Requires() {
			if !present[req] {
				return nil, &ErrDependencyViolation{
					Reason: fmt.Sprintf("%s requires %s, which is not attached", b.ID(), req),
				}
			}
		}
		for _, conflict := range b.ConflictsWith() {
			if present[conflict] {
				return nil, &ErrDependencyViolation{
					Reason: fmt.Sprintf("%s conflicts with %s, both attached", b.ID(), conflict),
				}
			}
		}
	}

	if present[IDIntervalTimerRestart] && !HasAnyOf(behaviors, IDBoundTimer, IDUnboundTimer) {
		return nil, &ErrDependencyViolation{
			Reason: fmt.Sprintf("%s requires a timer behavior, none attached", IDIntervalTimerRestart),
		}
	}

	sorted := make([]Behavior, len(behaviors))
	copy(sorted, behaviors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})
	return sorted, nil
}

// HasAnyOf reports whether any one of several candidate ids is attached
// (§4.4: "requires ... OR-semantics where declared — e.g. 'any timer
// present'"). Compose's plain AND-style Requires() check does not express
// OR groups, so behaviors with an OR-requirement (e.g.
// IntervalTimerRestartBehavior requiring "any timer") return nil from
// Requires() and Compose checks the OR-condition via HasAnyOf against the
// attached set.
func HasAnyOf(behaviors []Behavior, candidates ...ID) bool {
	want := make(map[ID]bool, len(candidates))
	for _, c := range candidates {
		want[c] = true
	}
	for _, b := range behaviors {
		if want[b.ID()] {
			return true
		}
	}
	return false
}
