package heap

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"slices"

	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

// construct allocates an object and writes its header, its child slots and
// any raw words. children are pinned across the allocation, so the slots
// receive their current locations.
func (h *Heap) construct(kind term.Kind, size uint64, children []term.Term, raw func(w []uint64)) (term.Term, error) {
	if err := h.check(); err != nil {
		return term.None, err
	}
	for _, c := range children {
		if err := h.checkArg(c); err != nil {
			return term.None, err
		}
	}
	if size > term.MaxSize {
		return term.None, badArg("%s size %d out of range", kind, size)
	}

	words := term.ObjectWords(kind, size)
	mark := h.pin(children...)
	var (
		addr term.Address
		err  error
	)
	if kind == term.KindRefcBinary {
		// Off-heap references are tracked in young and old only.
		addr, err = h.allocYoung(words)
	} else {
		addr, err = h.alloc(words)
	}
	if err != nil {
		h.unpin(mark)
		return term.None, err
	}

	sp := h.spaces[addr.Space()]
	w := sp.words()[addr.Offset() : addr.Offset()+words]
	w[0] = uint64(term.MakeHeader(kind, size))
	l := term.MustLayout(term.Term(w[0]))
	for i := range children {
		w[l.FirstChild+i] = uint64(h.pinned[mark+i])
	}
	h.unpin(mark)
	if raw != nil {
		raw(w)
	}
	return term.Boxed(kind, addr), nil
}

// checkArg rejects words that are not values and pointers that do not
// resolve into this heap.
func (h *Heap) checkArg(t term.Term) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	switch h.SpaceOf(t) {
	case SpaceUnknown:
		return badArg("%s does not point into pid %d", t, h.pid)
	case SpaceLiteral:
		if h.literals == nil {
			return fmt.Errorf("%w: %s", ErrNoLiteralArea, t)
		}
	}
	return nil
}

// Cons returns the list cell [head | tail].
func (h *Heap) Cons(head, tail term.Term) (term.Term, error) {
	return h.construct(term.KindCons, 2, []term.Term{head, tail}, nil)
}

// TupleOf returns a tuple holding elems.
func (h *Heap) TupleOf(elems ...term.Term) (term.Term, error) {
	return h.construct(term.KindTuple, uint64(len(elems)), elems, nil)
}

// Tuple returns a tuple of the given arity with every element unset. Fill it
// with Set.
func (h *Heap) Tuple(arity int) (term.Term, error) {
	if arity < 0 {
		return term.None, badArg("negative arity %d", arity)
	}
	return h.construct(term.KindTuple, uint64(arity), nil, nil)
}

// List returns the proper list of elems.
func (h *Heap) List(elems ...term.Term) (term.Term, error) {
	return h.ImproperList(term.Nil, elems...)
}

// ImproperList returns elems consed onto tail.
func (h *Heap) ImproperList(tail term.Term, elems ...term.Term) (term.Term, error) {
	mark := h.pin(elems...)
	defer h.unpin(mark)

	acc := tail
	for i := len(elems) - 1; i >= 0; i-- {
		var err error
		if acc, err = h.Cons(h.pinned[mark+i], acc); err != nil {
			return term.None, err
		}
	}
	return acc, nil
}

// Map returns a map of the key/value pairs kvs (k1, v1, k2, v2, ...). Pairs
// are stored in term order of their keys; a repeated key keeps its last value.
func (h *Heap) Map(kvs ...term.Term) (term.Term, error) {
	if len(kvs)%2 != 0 {
		return term.None, badArg("odd number of map arguments: %d", len(kvs))
	}
	if err := h.check(); err != nil {
		return term.None, err
	}
	for _, t := range kvs {
		if err := h.checkArg(t); err != nil {
			return term.None, err
		}
	}

	type pair struct{ k, v term.Term }
	pairs := make([]pair, 0, len(kvs)/2)
	var cmpErr error
	for i := 0; i < len(kvs); i += 2 {
		pairs = append(pairs, pair{kvs[i], kvs[i+1]})
	}
	slices.SortStableFunc(pairs, func(a, b pair) int {
		c, err := h.Compare(a.k, b.k)
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c
	})
	if cmpErr != nil {
		return term.None, cmpErr
	}

	sorted := make([]term.Term, 0, len(kvs))
	for i, p := range pairs {
		if i+1 < len(pairs) {
			if c, _ := h.Compare(p.k, pairs[i+1].k); c == 0 {
				continue
			}
		}
		sorted = append(sorted, p.k, p.v)
	}
	return h.construct(term.KindMap, uint64(len(sorted)/2), sorted, nil)
}

// Float returns a boxed float. NaN and infinities are rejected.
func (h *Heap) Float(f float64) (term.Term, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return term.None, badArg("non-finite float %v", f)
	}
	return h.construct(term.KindFloat, 1, nil, func(w []uint64) {
		w[1] = math.Float64bits(f)
	})
}

// Integer returns v as a small integer, or as a bignum when out of range.
func (h *Heap) Integer(v int64) (term.Term, error) {
	if t, ok := term.SmallInt(v); ok {
		return t, nil
	}
	return h.BigInt(big.NewInt(v))
}

// BigInt returns x, normalised to a small integer when it fits.
func (h *Heap) BigInt(x *big.Int) (term.Term, error) {
	if x.IsInt64() {
		if t, ok := term.SmallInt(x.Int64()); ok {
			return t, nil
		}
	}
	mag := new(big.Int).Abs(x).Bytes() // big-endian
	limbs := term.WordsForBytes(len(mag))
	return h.construct(term.KindBigInt, term.BigIntSize(limbs, x.Sign() < 0), nil, func(w []uint64) {
		for i := range limbs {
			var limb uint64
			for b := 0; b < 8; b++ {
				j := len(mag) - 1 - (i*8 + b)
				if j < 0 {
					break
				}
				limb |= uint64(mag[j]) << (8 * b)
			}
			w[1+i] = limb
		}
	})
}

// Binary returns a heap binary holding a copy of data. Binaries of at least
// LargeObjectThresholdBytes live in the large-object area.
func (h *Heap) Binary(data []byte) (term.Term, error) {
	return h.construct(term.KindBinary, uint64(len(data)), nil, func(w []uint64) {
		packBytes(w[1:], data)
	})
}

// SubBinary returns a view of length bytes of bin starting at offset.
// Views of views refer to the underlying binary directly.
func (h *Heap) SubBinary(bin term.Term, offset, length int) (term.Term, error) {
	if !bin.Kind().IsBinary() {
		return term.None, badArg("%s is not a binary", bin)
	}
	size, err := h.BinarySize(bin)
	if err != nil {
		return term.None, err
	}
	if offset < 0 || length < 0 || offset+length > size {
		return term.None, badArg("sub-binary [%d,+%d) outside %d bytes", offset, length, size)
	}
	if bin.Kind() == term.KindSubBinary {
		w, _, err := h.read(bin, term.KindSubBinary)
		if err != nil {
			return term.None, err
		}
		offset += int(w[2])
		bin = term.Term(w[1])
	}
	return h.construct(term.KindSubBinary, uint64(length), []term.Term{bin}, func(w []uint64) {
		w[2] = uint64(offset)
	})
}

// RefcBinary returns a heap object referencing the off-heap binary b and
// takes one reference on it. The reference is dropped when a collection
// finds the object dead, or when the heap closes.
func (h *Heap) RefcBinary(b *offheap.Binary) (term.Term, error) {
	if h.registry == nil {
		return term.None, ErrNoRegistry
	}
	t, err := h.construct(term.KindRefcBinary, 1, nil, func(w []uint64) {
		w[1] = uint64(b.Handle())
	})
	if err != nil {
		return term.None, err
	}
	b.Retain()
	h.offHeap = append(h.offHeap, t.Address())
	return t, nil
}

// NewRefcBinary stores a copy of data in the off-heap registry and returns
// a RefcBinary holding the only reference.
func (h *Heap) NewRefcBinary(data []byte) (term.Term, error) {
	if h.registry == nil {
		return term.None, ErrNoRegistry
	}
	b := h.registry.New(data)
	defer b.Release()
	return h.RefcBinary(b)
}

// Closure returns a function value for function id fn capturing env.
func (h *Heap) Closure(fn uint64, env ...term.Term) (term.Term, error) {
	return h.construct(term.KindClosure, uint64(len(env)), env, func(w []uint64) {
		w[1] = fn
	})
}

// Set stores v in child slot i of the object obj points at (tuple element,
// map key/value slot, closure environment entry, list head or tail). It is
// meant for filling objects built with Tuple; it also records old objects
// that start pointing into the young generation.
func (h *Heap) Set(obj term.Term, i int, v term.Term) (err error) {
	if !obj.IsBoxed() {
		return badArg("%s is not a heap object", obj)
	}
	if err := h.checkArg(v); err != nil {
		return err
	}
	w, l, err := h.read(obj, obj.Kind())
	if err != nil {
		return err
	}
	if i < 0 || i >= l.Children {
		return badArg("slot %d outside %d child slots of %s", i, l.Children, obj)
	}
	if obj.Kind() == term.KindSubBinary {
		return badArg("sub-binary slots are immutable")
	}
	w[l.FirstChild+i] = uint64(v)

	if !v.IsBoxed() || h.SpaceOf(v) != SpaceYoung {
		return nil
	}
	addr := obj.Address()
	switch h.SpaceOf(obj) {
	case SpaceOld:
		h.remembered.Add(uint32(addr.Offset()))
	case SpaceLarge:
		h.large[addr.Space()].remembered = true
	}
	return nil
}

func packBytes(dst []uint64, data []byte) {
	var buf [8]byte
	for i := range dst {
		start := i * 8
		if start+8 <= len(data) {
			dst[i] = binary.LittleEndian.Uint64(data[start:])
			continue
		}
		clear(buf[:])
		copy(buf[:], data[start:])
		dst[i] = binary.LittleEndian.Uint64(buf[:])
	}
}

func unpackBytes(src []uint64, n int) []byte {
	out := make([]byte, len(src)*8)
	for i, w := range src {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out[:n]
}
