package literal

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/procheap/heap"
	"github.com/hupe1980/procheap/internal/arena"
	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

// ErrSealed is returned when interning into a sealed area.
var ErrSealed = errors.New("literal: area sealed")

const defaultInitialWords = 1024

// Area is the literal area. Build it with Intern, then Seal it before any
// process reads it.
type Area struct {
	mu       sync.Mutex
	arena    *arena.Arena
	sealed   atomic.Bool
	binaries []*offheap.Binary
	objects  int
}

// NewArea creates an empty area with room for initialWords words. If
// initialWords is 0 a default is used; the area grows as needed.
func NewArea(initialWords int) (*Area, error) {
	if initialWords <= 0 {
		initialWords = defaultInitialWords
	}
	a, err := arena.New(initialWords, arena.WithHeapBacking())
	if err != nil {
		return nil, err
	}
	return &Area{arena: a}, nil
}

// Words implements heap.LiteralArea.
func (a *Area) Words() []uint64 {
	return a.arena.Words()[:a.arena.Offset()]
}

// Len returns the number of words in use.
func (a *Area) Len() int {
	return a.arena.Offset()
}

// Objects returns the number of interned objects.
func (a *Area) Objects() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.objects
}

// Seal freezes the area. It waits for a running Intern, so no word is
// written once Seal returns.
func (a *Area) Seal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed.Store(true)
}

// Sealed reports whether the area is frozen.
func (a *Area) Sealed() bool {
	return a.sealed.Load()
}

// Intern deep-copies t from h into the area and returns the literal term
// for the copy. Immediates and literal terms are returned unchanged. Sharing
// and cycles in t are preserved. Off-heap binaries gain a reference held
// until Close.
func (a *Area) Intern(h *heap.Heap, t term.Term) (term.Term, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed.Load() {
		return term.None, ErrSealed
	}
	if err := t.Validate(); err != nil {
		return term.None, err
	}
	if !t.IsBoxed() {
		return t, nil
	}

	// Discover the objects and give each an offset.
	type object struct {
		src   term.Term
		words []uint64
		l     term.Layout
		off   int
	}
	var (
		objects []object
		index   = make(map[term.Address]int)
		stack   = []term.Term{t}
		next    = a.arena.Offset()
	)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !c.IsBoxed() {
			continue
		}
		if _, ok := index[c.Address()]; ok {
			continue
		}
		w, l, err := h.Object(c)
		if err != nil {
			return term.None, fmt.Errorf("literal: intern: %w", err)
		}
		index[c.Address()] = len(objects)
		objects = append(objects, object{src: c, words: w[:l.Words], l: l, off: next})
		next += l.Words

		from, to := l.ChildSlots()
		for j := to - 1; j >= from; j-- {
			stack = append(stack, term.Term(w[j]))
		}
	}

	if err := a.reserve(next - a.arena.Offset()); err != nil {
		return term.None, err
	}

	// Take binary references before writing anything.
	var retained []*offheap.Binary
	for _, o := range objects {
		if o.l.Kind != term.KindRefcBinary {
			continue
		}
		reg := h.Registry()
		if reg == nil {
			return term.None, heap.ErrNoRegistry
		}
		b, err := reg.Lookup(offheap.Handle(o.words[1]))
		if err != nil {
			return term.None, fmt.Errorf("literal: intern: %w", err)
		}
		retained = append(retained, b)
	}
	for _, b := range retained {
		b.Retain()
	}
	a.binaries = append(a.binaries, retained...)

	for _, o := range objects {
		off, _ := a.arena.Alloc(o.l.Words)
		dw := a.arena.Words()[off : off+o.l.Words]
		copy(dw, o.words)
		dw[0] = uint64(term.Term(o.words[0]).WithAge(0))
		from, to := o.l.ChildSlots()
		for j := from; j < to; j++ {
			c := term.Term(dw[j])
			if c.IsBoxed() {
				dst := objects[index[c.Address()]]
				dw[j] = uint64(term.Literal(c.Kind(), dst.off))
			}
		}
	}
	a.objects += len(objects)
	return term.Literal(t.Kind(), objects[0].off), nil
}

// reserve makes room for n more words.
func (a *Area) reserve(n int) error {
	if a.arena.Remaining() >= n {
		return nil
	}
	capacity := max(a.arena.Capacity()*2, 1)
	for capacity-a.arena.Offset() < n {
		capacity *= 2
	}
	return a.arena.Grow(capacity)
}

// Close drops the binary references held by literals. The area must no
// longer be read afterwards.
func (a *Area) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, b := range a.binaries {
		b.Release()
	}
	a.binaries = nil
	a.arena.Free()
	a.sealed.Store(true)
}
