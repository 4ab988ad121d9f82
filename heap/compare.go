package heap

import (
	"bytes"
	"cmp"
	"errors"
	"math"
	"math/big"

	"github.com/hupe1980/procheap/term"
)

// Equal reports whether x on heap a and y on heap b are structurally equal.
// Binaries compare by content whatever their representation; numbers of
// different kinds are never equal. Cyclic terms are handled: a pair of
// objects already under comparison is assumed equal. Malformed terms compare
// unequal.
func Equal(a *Heap, x term.Term, b *Heap, y term.Term) (eq bool) {
	defer func() {
		if r := recover(); r != nil {
			if isLayoutPanic(r) {
				eq = false
				return
			}
			panic(r)
		}
	}()

	type pair struct{ x, y term.Term }
	seen := make(map[pair]struct{})
	var work workList[pair]
	work.push(pair{x, y})

	for {
		p, ok := work.pop()
		if !ok {
			return true
		}
		if !p.x.IsPointer() || !p.y.IsPointer() {
			if p.x != p.y {
				return false
			}
			continue
		}
		if a == b && p.x == p.y {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		kx, ky := p.x.Kind(), p.y.Kind()
		if kx.IsBinary() && ky.IsBinary() {
			bx, err := a.BinaryBytes(p.x)
			if err != nil {
				return false
			}
			by, err := b.BinaryBytes(p.y)
			if err != nil || !bytes.Equal(bx, by) {
				return false
			}
			continue
		}
		if kx != ky {
			return false
		}

		wx, lx := a.layout(p.x)
		wy, ly := b.layout(p.y)
		if lx.Size != ly.Size {
			return false
		}
		from, to := lx.ChildSlots()
		for i := 1; i < lx.Words; i++ {
			if i >= from && i < to {
				work.push(pair{term.Term(wx[i]), term.Term(wy[i])})
				continue
			}
			if wx[i] != wy[i] {
				return false
			}
		}
	}
}

func isLayoutPanic(r any) bool {
	err, ok := r.(error)
	var le *term.LayoutError
	return ok && errors.As(err, &le)
}

// Term order classes: number < atom < reference < fun < pid < tuple < map
// < nil < list < binary.
const (
	classNumber = iota
	classAtom
	classRef
	classFun
	classPid
	classTuple
	classMap
	classNil
	classList
	classBinary
	classNone
)

func orderClass(t term.Term) int {
	switch t.Tag() {
	case term.TagSmall:
		return classNumber
	case term.TagAtom, term.TagBool:
		return classAtom
	case term.TagRef:
		return classRef
	case term.TagPid:
		return classPid
	case term.TagNil:
		return classNil
	case term.TagBoxed, term.TagLiteral:
		switch t.Kind() {
		case term.KindFloat, term.KindBigInt:
			return classNumber
		case term.KindClosure:
			return classFun
		case term.KindTuple:
			return classTuple
		case term.KindMap:
			return classMap
		case term.KindCons:
			return classList
		case term.KindBinary, term.KindSubBinary, term.KindRefcBinary:
			return classBinary
		}
	}
	return classNone
}

// Compare returns the standard term order of x and y: -1, 0 or +1. Equal
// numbers of different kinds order integers first. Cyclic terms are handled
// like in Equal: a pair of objects already under comparison orders equal.
func (h *Heap) Compare(x, y term.Term) (c int, err error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	defer h.recoverLayout(&err)

	type pair struct{ x, y term.Term }
	seen := make(map[pair]struct{})
	var work workList[pair]
	work.push(pair{x, y})

	for {
		p, ok := work.pop()
		if !ok {
			return 0, nil
		}
		x, y := p.x, p.y
		if x == y {
			continue
		}
		cx, cy := orderClass(x), orderClass(y)
		if cx != cy {
			return cmp.Compare(cx, cy), nil
		}
		if x.IsPointer() && y.IsPointer() {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
		}

		switch cx {
		case classNumber:
			if c := h.compareNumbers(x, y); c != 0 {
				return c, nil
			}
		case classAtom:
			// Booleans sort before other atoms.
			if c := cmp.Compare(atomKey(x), atomKey(y)); c != 0 {
				return c, nil
			}
		case classRef:
			return cmp.Compare(x.RefValue(), y.RefValue()), nil
		case classPid:
			return cmp.Compare(x.PidValue(), y.PidValue()), nil
		case classNil:
		case classBinary:
			bx, err := h.BinaryBytes(x)
			if err != nil {
				return 0, err
			}
			by, err := h.BinaryBytes(y)
			if err != nil {
				return 0, err
			}
			if c := bytes.Compare(bx, by); c != 0 {
				return c, nil
			}
		case classList:
			wx, _ := h.layout(x)
			wy, _ := h.layout(y)
			work.push(pair{term.Term(wx[2]), term.Term(wy[2])})
			work.push(pair{term.Term(wx[1]), term.Term(wy[1])})
		case classTuple, classMap, classFun:
			wx, lx := h.layout(x)
			wy, ly := h.layout(y)
			if c := cmp.Compare(lx.Size, ly.Size); c != 0 {
				return c, nil
			}
			if cx == classFun && wx[1] != wy[1] {
				return cmp.Compare(wx[1], wy[1]), nil
			}
			from, to := lx.ChildSlots()
			if cx == classMap {
				// All keys, then all values.
				for i := to - 1; i >= from; i -= 2 {
					work.push(pair{term.Term(wx[i]), term.Term(wy[i])})
				}
				for i := to - 2; i >= from; i -= 2 {
					work.push(pair{term.Term(wx[i]), term.Term(wy[i])})
				}
				continue
			}
			for i := to - 1; i >= from; i-- {
				work.push(pair{term.Term(wx[i]), term.Term(wy[i])})
			}
		default:
			return 0, badArg("cannot order %s and %s", x, y)
		}
	}
}

func atomKey(t term.Term) uint64 {
	if t.Tag() == term.TagBool {
		if t.BoolValue() {
			return 1
		}
		return 0
	}
	return 2 + uint64(t.AtomIndex())
}

func (h *Heap) compareNumbers(x, y term.Term) int {
	if x.IsSmall() && y.IsSmall() {
		return cmp.Compare(x.SmallValue(), y.SmallValue())
	}
	fx, intX := h.numberValue(x)
	fy, intY := h.numberValue(y)
	if c := fx.Cmp(fy); c != 0 {
		return c
	}
	switch {
	case intX && !intY:
		return -1
	case !intX && intY:
		return 1
	}
	return 0
}

// numberValue returns a number as an exact big.Float and whether it is an
// integer kind.
func (h *Heap) numberValue(t term.Term) (*big.Float, bool) {
	f := new(big.Float).SetPrec(0)
	switch {
	case t.IsSmall():
		return f.SetPrec(64).SetInt64(t.SmallValue()), true
	case t.Kind() == term.KindFloat:
		w, _ := h.layout(t)
		return f.SetPrec(53).SetFloat64(math.Float64frombits(w[1])), false
	}
	x, err := h.BigIntValue(t)
	if err != nil {
		panic(&term.LayoutError{Word: t, Reason: err.Error()})
	}
	return f.SetPrec(uint(max(x.BitLen(), 1))).SetInt(x), true
}
