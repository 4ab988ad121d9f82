package heap

import (
	"math"
	"math/big"
	"slices"

	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

// read returns the words and layout of the object t points at, provided t
// is one of kinds.
func (h *Heap) read(t term.Term, kinds ...term.Kind) (w []uint64, l term.Layout, err error) {
	if err = h.check(); err != nil {
		return nil, term.Layout{}, err
	}
	if !t.IsPointer() || !slices.Contains(kinds, t.Kind()) {
		return nil, term.Layout{}, badArg("%s is not a %v", t, kinds)
	}
	defer h.recoverLayout(&err)
	w, l = h.layout(t)
	return w, l, nil
}

// Object returns the words of the object t points at, header first, and its
// layout. The slice aliases heap memory: it must not be modified and is
// invalid after the next allocation.
func (h *Heap) Object(t term.Term) ([]uint64, term.Layout, error) {
	return h.read(t, t.Kind())
}

// Kind returns the kind recorded in the header of the object t points at,
// or KindNone for an immediate.
func (h *Heap) Kind(t term.Term) (term.Kind, error) {
	if err := t.Validate(); err != nil {
		return term.KindNone, err
	}
	if !t.IsPointer() {
		return term.KindNone, nil
	}
	_, l, err := h.read(t, t.Kind())
	if err != nil {
		return term.KindNone, err
	}
	return l.Kind, nil
}

// Age returns the number of minor collections the object t points at has
// survived. Old-generation objects keep the age they were promoted with.
func (h *Heap) Age(t term.Term) (int, error) {
	w, _, err := h.read(t, t.Kind())
	if err != nil {
		return 0, err
	}
	return int(term.Term(w[0]).HeaderAge()), nil
}

// Arity returns the number of elements of a tuple, pairs of a map, or
// captured values of a closure.
func (h *Heap) Arity(t term.Term) (int, error) {
	_, l, err := h.read(t, term.KindTuple, term.KindMap, term.KindClosure)
	if err != nil {
		return 0, err
	}
	return int(l.Size), nil
}

// Element returns tuple element i (zero-based).
func (h *Heap) Element(t term.Term, i int) (term.Term, error) {
	w, l, err := h.read(t, term.KindTuple)
	if err != nil {
		return term.None, err
	}
	if i < 0 || i >= l.Children {
		return term.None, badArg("element %d of %d-tuple", i, l.Children)
	}
	return term.Term(w[l.FirstChild+i]), nil
}

// Head returns the head of a list cell.
func (h *Heap) Head(t term.Term) (term.Term, error) {
	w, _, err := h.read(t, term.KindCons)
	if err != nil {
		return term.None, err
	}
	return term.Term(w[1]), nil
}

// Tail returns the tail of a list cell.
func (h *Heap) Tail(t term.Term) (term.Term, error) {
	w, _, err := h.read(t, term.KindCons)
	if err != nil {
		return term.None, err
	}
	return term.Term(w[2]), nil
}

// ListElements returns the elements of a proper list.
func (h *Heap) ListElements(t term.Term) ([]term.Term, error) {
	var out []term.Term
	seen := 0
	for t != term.Nil {
		w, _, err := h.read(t, term.KindCons)
		if err != nil {
			return out, err
		}
		out = append(out, term.Term(w[1]))
		t = term.Term(w[2])
		if seen++; seen > h.Footprint() {
			return out, badArg("cyclic list")
		}
	}
	return out, nil
}

// FloatValue returns the value of a boxed float.
func (h *Heap) FloatValue(t term.Term) (float64, error) {
	w, _, err := h.read(t, term.KindFloat)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(w[1]), nil
}

// BigIntValue returns the value of a small integer or a bignum.
func (h *Heap) BigIntValue(t term.Term) (*big.Int, error) {
	if t.IsSmall() {
		return big.NewInt(t.SmallValue()), nil
	}
	w, l, err := h.read(t, term.KindBigInt)
	if err != nil {
		return nil, err
	}
	limbs := w[1:l.Words]
	mag := make([]byte, len(limbs)*8) // big-endian
	for i, limb := range limbs {
		for b := range 8 {
			mag[len(mag)-1-(i*8+b)] = byte(limb >> (8 * b))
		}
	}
	x := new(big.Int).SetBytes(mag)
	if term.BigIntNegative(l.Size) {
		x.Neg(x)
	}
	return x, nil
}

// BinarySize returns the byte length of any binary kind.
func (h *Heap) BinarySize(t term.Term) (int, error) {
	switch t.Kind() {
	case term.KindBinary, term.KindSubBinary:
		_, l, err := h.read(t, t.Kind())
		return int(l.Size), err
	case term.KindRefcBinary:
		b, err := h.offHeapBinary(t)
		if err != nil {
			return 0, err
		}
		return b.Len(), nil
	}
	return 0, badArg("%s is not a binary", t)
}

// BinaryBytes returns a copy of the bytes of any binary kind.
func (h *Heap) BinaryBytes(t term.Term) ([]byte, error) {
	switch t.Kind() {
	case term.KindBinary:
		w, l, err := h.read(t, term.KindBinary)
		if err != nil {
			return nil, err
		}
		return unpackBytes(w[1:l.Words], int(l.Size)), nil
	case term.KindSubBinary:
		w, l, err := h.read(t, term.KindSubBinary)
		if err != nil {
			return nil, err
		}
		whole, err := h.BinaryBytes(term.Term(w[1]))
		if err != nil {
			return nil, err
		}
		off := int(w[2])
		if off+int(l.Size) > len(whole) {
			return nil, badArg("sub-binary outside its binary")
		}
		return slices.Clone(whole[off : off+int(l.Size)]), nil
	case term.KindRefcBinary:
		b, err := h.offHeapBinary(t)
		if err != nil {
			return nil, err
		}
		return slices.Clone(b.Bytes()), nil
	}
	return nil, badArg("%s is not a binary", t)
}

func (h *Heap) offHeapBinary(t term.Term) (*offheap.Binary, error) {
	w, _, err := h.read(t, term.KindRefcBinary)
	if err != nil {
		return nil, err
	}
	if h.registry == nil {
		return nil, ErrNoRegistry
	}
	return h.registry.Lookup(offheap.Handle(w[1]))
}

// MapGet looks up key in a map.
func (h *Heap) MapGet(m, key term.Term) (term.Term, bool, error) {
	w, l, err := h.read(m, term.KindMap)
	if err != nil {
		return term.None, false, err
	}
	n := int(l.Size)
	i, found := 0, false
	// Keys are sorted.
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c, err := h.Compare(term.Term(w[1+2*mid]), key)
		if err != nil {
			return term.None, false, err
		}
		switch {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid
		default:
			i, found = mid, true
			lo = hi
		}
	}
	if !found {
		return term.None, false, nil
	}
	return term.Term(w[2+2*i]), true, nil
}

// MapPairs returns the keys and values of a map in key order.
func (h *Heap) MapPairs(m term.Term) (keys, values []term.Term, err error) {
	w, l, err := h.read(m, term.KindMap)
	if err != nil {
		return nil, nil, err
	}
	for i := range int(l.Size) {
		keys = append(keys, term.Term(w[1+2*i]))
		values = append(values, term.Term(w[2+2*i]))
	}
	return keys, values, nil
}

// ClosureFunction returns the function id of a closure.
func (h *Heap) ClosureFunction(t term.Term) (uint64, error) {
	w, _, err := h.read(t, term.KindClosure)
	if err != nil {
		return 0, err
	}
	return w[1], nil
}

// ClosureEnv returns captured value i of a closure.
func (h *Heap) ClosureEnv(t term.Term, i int) (term.Term, error) {
	w, l, err := h.read(t, term.KindClosure)
	if err != nil {
		return term.None, err
	}
	if i < 0 || i >= l.Children {
		return term.None, badArg("environment slot %d of %d", i, l.Children)
	}
	return term.Term(w[l.FirstChild+i]), nil
}
