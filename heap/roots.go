package heap

import (
	"iter"

	"github.com/hupe1980/procheap/term"
)

// RootSet enumerates the locations holding live terms at the moment of a
// collection. The enumeration must be complete and must not change while the
// collection runs; the collector rewrites each location in place.
type RootSet interface {
	Roots() iter.Seq[*term.Term]
}

// RootSlice is a RootSet over individual term locations.
type RootSlice []*term.Term

// Roots implements RootSet.
func (s RootSlice) Roots() iter.Seq[*term.Term] {
	return func(yield func(*term.Term) bool) {
		for _, r := range s {
			if !yield(r) {
				return
			}
		}
	}
}

// MultiRoots concatenates several root sets.
type MultiRoots []RootSet

// Roots implements RootSet.
func (m MultiRoots) Roots() iter.Seq[*term.Term] {
	return func(yield func(*term.Term) bool) {
		for _, rs := range m {
			if rs == nil {
				continue
			}
			for r := range rs.Roots() {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// RootStack models a process stack: a growable array of term slots that are
// all roots. Indexes stay valid across collections; the terms in the slots
// are rewritten when their objects move.
type RootStack struct {
	slots []term.Term
}

// Push appends t and returns its slot index.
func (s *RootStack) Push(t term.Term) int {
	s.slots = append(s.slots, t)
	return len(s.slots) - 1
}

// Pop removes and returns the top slot.
func (s *RootStack) Pop() term.Term {
	n := len(s.slots) - 1
	t := s.slots[n]
	s.slots[n] = term.None
	s.slots = s.slots[:n]
	return t
}

// Get returns the term in slot i.
func (s *RootStack) Get(i int) term.Term {
	return s.slots[i]
}

// Set replaces the term in slot i.
func (s *RootStack) Set(i int, t term.Term) {
	s.slots[i] = t
}

// Len returns the number of slots.
func (s *RootStack) Len() int {
	return len(s.slots)
}

// Truncate drops every slot from n upwards.
func (s *RootStack) Truncate(n int) {
	clear(s.slots[n:])
	s.slots = s.slots[:n]
}

// Roots implements RootSet.
func (s *RootStack) Roots() iter.Seq[*term.Term] {
	return func(yield func(*term.Term) bool) {
		for i := range s.slots {
			if !yield(&s.slots[i]) {
				return
			}
		}
	}
}
