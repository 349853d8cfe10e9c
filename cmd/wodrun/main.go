// Command wodrun drives a small hand-built workout script through the
// runtime against a deterministic fake clock, printing a cast.Envelope
// snapshot after every tick and event. It stands in for a UI host: no
// terminal input is read, the sequence of events a real app would send in
// response to athlete taps is hardcoded, so the cooperative scheduler's
// behavior can be observed end to end without attaching one.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wod-wiki/runtime/internal/behavior"
	"github.com/wod-wiki/runtime/internal/script"
	"github.com/wod-wiki/runtime/runtime"
)

// dismissEvent mirrors the runtime package's own unexported convention
// name for acknowledging a finished root's terminal idle child.
const dismissEvent = "workout:dismiss"

func intPtr(i int) *int { return &i }

// franScript builds the classic "Fran" couplet by hand: 3 rounds of
// thrusters and pullups on a 21-15-9 rep scheme.
//
//	(root, id 1)
//	  Rounds x3 (id 2)
//	    Thrusters 21-15-9 (id 3)
//	    Pullups   21-15-9 (id 4)
func franScript() *script.Script {
	root := &script.Statement{ID: 1, Children: [][]int{{2}}}
	rounds := &script.Statement{
		ID:        2,
		Parent:    intPtr(1),
		Children:  [][]int{{3, 4}, {3, 4}, {3, 4}},
		Fragments: []script.Fragment{script.RoundsFragment{Count: 3}},
	}
	thrusters := &script.Statement{
		ID:     3,
		Parent: intPtr(2),
		Fragments: []script.Fragment{
			script.EffortFragment{Name: "Thrusters"},
			script.RepFragment{Scheme: []int{21, 15, 9}},
		},
	}
	pullups := &script.Statement{
		ID:     4,
		Parent: intPtr(2),
		Fragments: []script.Fragment{
			script.EffortFragment{Name: "Pullups"},
			script.RepFragment{Scheme: []int{21, 15, 9}},
		},
	}
	return &script.Script{Statements: []*script.Statement{root, rounds, thrusters, pullups}}
}

func main() {
	tick := flag.Duration("tick", 5*time.Second, "clock advance per working interval")
	flag.Parse()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rt, err := runtime.New(runtime.Options{
		Script:      franScript(),
		ClockSource: func() time.Time { return now },
	})
	if err != nil {
		fatal("build runtime", err)
	}

	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		fatal("start", err)
	}
	snapshot(rt, "mounted")

	if err := rt.HandleEvent(ctx, behavior.EvtTimerStart, nil); err != nil {
		fatal("timer:start", err)
	}
	snapshot(rt, "timer:start")

	for round := 1; round <= 3 && !rt.Finished(); round++ {
		for _, label := range []string{"thrusters", "pullups"} {
			now = now.Add(*tick)
			if err := rt.Advance(ctx, *tick); err != nil {
				fatal("advance", err)
			}
			snapshot(rt, fmt.Sprintf("tick: round %d %s working", round, label))

			if err := rt.HandleEvent(ctx, behavior.EvtTimerNext, nil); err != nil {
				fatal("timer:next", err)
			}
			snapshot(rt, fmt.Sprintf("timer:next: round %d %s done", round, label))
		}
	}

	if !rt.Finished() {
		if err := rt.HandleEvent(ctx, dismissEvent, nil); err != nil {
			fatal("workout:dismiss", err)
		}
		snapshot(rt, "workout:dismiss")
	}
}

func snapshot(rt *runtime.Runtime, label string) {
	buf, err := json.MarshalIndent(rt.Cast("ready"), "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "wodrun: marshal envelope:", err)
		return
	}
	fmt.Printf("--- %s ---\n%s\n", label, buf)
}

func fatal(step string, err error) {
	fmt.Fprintf(os.Stderr, "wodrun: %s: %v\n", step, err)
	os.Exit(1)
}
