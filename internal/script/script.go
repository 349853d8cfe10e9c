// Package script defines the immutable parsed-statement model the runtime
// consumes from an external parser. The runtime never parses text; it only
// walks the tree of Statements and Fragments described here.
package script

import "fmt"

type (
	// Script is an ordered, finite sequence of Statements produced by the
	// (out of scope) parser. Statements form a tree via Statement.Parent/
	// Statement.Children; Script.ByID provides O(1) lookup for the compiler.
	Script struct {
		// Content is the original source text, carried only for diagnostics.
		Content string
		// Statements lists every statement in the script, in source order.
		Statements []*Statement
	}

	// Statement is a node in the parsed script tree.
	Statement struct {
		// ID is a stable integer unique within the script.
		ID int
		// Parent is the id of the containing statement, or nil for the root.
		Parent *int
		// Children groups ordered sibling ids; each inner slice is one "round"
		// of indented children (a rep-scheme round, an interval pass, ...).
		Children [][]int
		// Fragments carries the statement's typed content. Ordering within a
		// statement is not semantically meaningful.
		Fragments []Fragment
		// Meta is opaque source location used only for diagnostics/highlighting.
		Meta Meta
		// Hints is an advisory set of strings the compiler may use to guide
		// strategy matching. The runtime treats Hints as advisory only;
		// strategies match on Fragments primarily.
		Hints map[string]struct{}
	}

	// Meta is the opaque source location attached to a Statement.
	Meta struct {
		Line   int
		Column int
		Offset int
		Length int
	}
)

// IsLeaf reports whether the statement has no children groups, or every
// children group is empty.
func (s *Statement) IsLeaf() bool {
	for _, group := range s.Children {
		if len(group) > 0 {
			return false
		}
	}
	return true
}

// HasHint reports whether the statement carries the given advisory hint.
func (s *Statement) HasHint(hint string) bool {
	if s.Hints == nil {
		return false
	}
	_, ok := s.Hints[hint]
	return ok
}

// ByID indexes statements by id for O(1) compiler lookups.
func (s *Script) ByID() map[int]*Statement {
	idx := make(map[int]*Statement, len(s.Statements))
	for _, st := range s.Statements {
		idx[st.ID] = st
	}
	return idx
}

// Validate enforces the script-model invariants from the data model: the
// statement graph must be a tree (no cycles, no dangling child references,
// every referenced child's Parent must equal the referencing statement), and
// no statement may carry two fragments of the same type with conflicting
// values.
func (s *Script) Validate() error {
	idx := s.ByID()
	for _, st := range s.Statements {
		for _, group := range st.Children {
			for _, childID := range group {
				child, ok := idx[childID]
				if !ok {
					return fmt.Errorf("script: statement %d references missing child %d", st.ID, childID)
				}
				if child.Parent == nil || *child.Parent != st.ID {
					return fmt.Errorf("script: statement %d is not the declared parent of child %d", st.ID, childID)
				}
			}
		}
		if err := validateFragmentConsistency(st); err != nil {
			return err
		}
	}
	return detectCycles(s.Statements, idx)
}

func validateFragmentConsistency(st *Statement) error {
	seen := make(map[FragmentType]Fragment)
	for _, f := range st.Fragments {
		t := f.FragmentType()
		if prior, ok := seen[t]; ok {
			if !fragmentsEqual(prior, f) {
				return fmt.Errorf("script: statement %d has conflicting %s fragments", st.ID, t)
			}
			continue
		}
		seen[t] = f
	}
	return nil
}

func detectCycles(statements []*Statement, idx map[int]*Statement) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[int]int, len(statements))
	var visit func(id int) error
	visit = func(id int) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("script: cycle detected at statement %d", id)
		}
		state[id] = visiting
		st := idx[id]
		for _, group := range st.Children {
			for _, childID := range group {
				if err := visit(childID); err != nil {
					return err
				}
			}
		}
		state[id] = done
		return nil
	}
	for _, st := range statements {
		if err := visit(st.ID); err != nil {
			return err
		}
	}
	return nil
}
