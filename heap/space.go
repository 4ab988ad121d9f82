package heap

import (
	"fmt"

	"github.com/hupe1980/procheap/internal/arena"
	"github.com/hupe1980/procheap/term"
)

// Space classifies where a term's object lives.
type Space uint8

const (
	// SpaceImmediate is reported for terms that carry no object.
	SpaceImmediate Space = iota
	// SpaceYoung is the active young semispace.
	SpaceYoung
	// SpaceOld is the old generation.
	SpaceOld
	// SpaceLarge is a dedicated large-object arena.
	SpaceLarge
	// SpaceLiteral is the shared literal area.
	SpaceLiteral
	// SpaceUnknown is reported for pointers that resolve to no live space.
	SpaceUnknown
)

func (s Space) String() string {
	switch s {
	case SpaceImmediate:
		return "immediate"
	case SpaceYoung:
		return "young"
	case SpaceOld:
		return "old"
	case SpaceLarge:
		return "large"
	case SpaceLiteral:
		return "literal"
	}
	return "unknown"
}

// space is one arena with the id stored in the addresses that point into it.
type space struct {
	id    uint32
	kind  Space
	arena *arena.Arena
}

func (s *space) words() []uint64 {
	return s.arena.Words()
}

// largeObject is a single object in its own space. It never moves.
type largeObject struct {
	sp         *space
	words      int
	remembered bool
}

// newSpace creates an arena of capacity words and registers it under a fresh id.
func (h *Heap) newSpace(kind Space, capacity int) (*space, error) {
	a, err := arena.New(capacity, h.arenaOpts...)
	if err != nil {
		return nil, err
	}

	var id uint32
	if n := len(h.freeIDs); n > 0 {
		id = h.freeIDs[n-1]
		h.freeIDs = h.freeIDs[:n-1]
	} else {
		if h.nextID > term.MaxSpace {
			a.Free()
			return nil, fmt.Errorf("heap: space ids exhausted")
		}
		id = h.nextID
		h.nextID++
	}

	sp := &space{id: id, kind: kind, arena: a}
	h.spaces[id] = sp
	return sp, nil
}

// dropSpace frees the arena and recycles the id.
func (h *Heap) dropSpace(sp *space) {
	sp.arena.Free()
	delete(h.spaces, sp.id)
	h.freeIDs = append(h.freeIDs, sp.id)
}

// lookup resolves a space id. A missing id is a layout violation.
func (h *Heap) lookup(id uint32, t term.Term) *space {
	sp, ok := h.spaces[id]
	if !ok {
		panic(&term.LayoutError{Word: t, Reason: "pointer into unknown space"})
	}
	return sp
}

// object returns the words from the object t points at to the end of its
// space, header first.
func (h *Heap) object(t term.Term) []uint64 {
	switch t.Tag() {
	case term.TagBoxed:
		addr := t.Address()
		sp := h.lookup(addr.Space(), t)
		w := sp.words()
		off, top := addr.Offset(), sp.arena.Offset()
		if off >= top {
			panic(&term.LayoutError{Word: t, Reason: "pointer beyond allocated words"})
		}
		return w[off:top]
	case term.TagLiteral:
		if h.literals == nil {
			panic(&term.LayoutError{Word: t, Reason: ErrNoLiteralArea.Error()})
		}
		w := h.literals.Words()
		off := t.LiteralOffset()
		if off >= len(w) {
			panic(&term.LayoutError{Word: t, Reason: "literal offset out of range"})
		}
		return w[off:]
	}
	panic(&term.LayoutError{Word: t, Reason: "not a pointer"})
}

// layout decodes the header of the object t points at and checks that the
// pointer kind matches it.
func (h *Heap) layout(t term.Term) ([]uint64, term.Layout) {
	w := h.object(t)
	hdr := term.Term(w[0])
	l := term.MustLayout(hdr)
	if l.Kind != t.Kind() {
		panic(&term.LayoutError{Word: t, Reason: "pointer kind does not match header " + l.Kind.String()})
	}
	if l.Words > len(w) {
		panic(&term.LayoutError{Word: t, Reason: "object extends beyond allocated words"})
	}
	return w[:l.Words], l
}

// SpaceOf reports which space holds the object t points at.
func (h *Heap) SpaceOf(t term.Term) Space {
	switch t.Tag() {
	case term.TagBoxed:
	case term.TagLiteral:
		return SpaceLiteral
	default:
		return SpaceImmediate
	}
	sp, ok := h.spaces[t.Address().Space()]
	if !ok {
		return SpaceUnknown
	}
	if sp == h.spare {
		return SpaceUnknown
	}
	return sp.kind
}
