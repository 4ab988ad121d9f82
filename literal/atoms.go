package literal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/procheap/term"
)

// DefaultMaxAtoms bounds the atom table.
const DefaultMaxAtoms = 1 << 20

// ErrAtomTableFull is returned when the atom table reached its limit.
var ErrAtomTableFull = errors.New("literal: atom table full")

// AtomTable maps atom names to atom terms. Atoms are never removed.
// It is safe for concurrent use.
type AtomTable struct {
	mu    sync.RWMutex
	names []string
	index map[string]uint32
	max   int
}

// NewAtomTable creates a table holding up to maxAtoms atoms. If maxAtoms is
// 0, DefaultMaxAtoms is used.
func NewAtomTable(maxAtoms int) *AtomTable {
	if maxAtoms <= 0 {
		maxAtoms = DefaultMaxAtoms
	}
	return &AtomTable{index: make(map[string]uint32), max: maxAtoms}
}

// Intern returns the atom named name, adding it if needed.
func (t *AtomTable) Intern(name string) (term.Term, error) {
	t.mu.RLock()
	i, ok := t.index[name]
	t.mu.RUnlock()
	if ok {
		return term.Atom(i), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.index[name]; ok {
		return term.Atom(i), nil
	}
	if len(t.names) >= t.max {
		return term.None, fmt.Errorf("%w: %d atoms", ErrAtomTableFull, t.max)
	}
	i = uint32(len(t.names))
	t.names = append(t.names, name)
	t.index[name] = i
	return term.Atom(i), nil
}

// MustIntern is Intern for names known at startup.
func (t *AtomTable) MustIntern(name string) term.Term {
	a, err := t.Intern(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the name of atom a.
func (t *AtomTable) Name(a term.Term) (string, bool) {
	if a.Tag() != term.TagAtom {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := a.AtomIndex()
	if int(i) >= len(t.names) {
		return "", false
	}
	return t.names[i], true
}

// Len returns the number of atoms.
func (t *AtomTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}
