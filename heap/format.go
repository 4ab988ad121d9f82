package heap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/procheap/term"
)

const maxFormatDepth = 32

// Format renders t in Erlang-like notation for logs and debugging. Shared
// objects are printed each time they are reached; a cycle prints as "...".
func (h *Heap) Format(t term.Term) string {
	var sb strings.Builder
	f := formatter{h: h, sb: &sb, open: make(map[term.Term]bool)}
	f.term(t, 0)
	return sb.String()
}

type formatter struct {
	h    *Heap
	sb   *strings.Builder
	open map[term.Term]bool
}

func (f *formatter) term(t term.Term, depth int) {
	if !t.IsPointer() {
		f.sb.WriteString(t.String())
		return
	}
	if depth >= maxFormatDepth || f.open[t] {
		f.sb.WriteString("...")
		return
	}
	f.open[t] = true
	defer delete(f.open, t)

	switch t.Kind() {
	case term.KindCons:
		f.list(t, depth)
	case term.KindTuple:
		n, err := f.h.Arity(t)
		if err != nil {
			f.invalid(t)
			return
		}
		f.sb.WriteByte('{')
		for i := range n {
			if i > 0 {
				f.sb.WriteByte(',')
			}
			e, _ := f.h.Element(t, i)
			f.term(e, depth+1)
		}
		f.sb.WriteByte('}')
	case term.KindMap:
		keys, values, err := f.h.MapPairs(t)
		if err != nil {
			f.invalid(t)
			return
		}
		f.sb.WriteString("#{")
		for i := range keys {
			if i > 0 {
				f.sb.WriteByte(',')
			}
			f.term(keys[i], depth+1)
			f.sb.WriteString(" => ")
			f.term(values[i], depth+1)
		}
		f.sb.WriteByte('}')
	case term.KindFloat:
		v, err := f.h.FloatValue(t)
		if err != nil {
			f.invalid(t)
			return
		}
		f.sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case term.KindBigInt:
		v, err := f.h.BigIntValue(t)
		if err != nil {
			f.invalid(t)
			return
		}
		f.sb.WriteString(v.String())
	case term.KindBinary, term.KindSubBinary, term.KindRefcBinary:
		b, err := f.h.BinaryBytes(t)
		if err != nil {
			f.invalid(t)
			return
		}
		f.binary(b)
	case term.KindClosure:
		fn, err := f.h.ClosureFunction(t)
		if err != nil {
			f.invalid(t)
			return
		}
		n, _ := f.h.Arity(t)
		fmt.Fprintf(f.sb, "#Fun<%d/%d>", fn, n)
	default:
		f.invalid(t)
	}
}

func (f *formatter) list(t term.Term, depth int) {
	f.sb.WriteByte('[')
	for first := true; ; first = false {
		head, err := f.h.Head(t)
		if err != nil {
			f.invalid(t)
			break
		}
		if !first {
			f.sb.WriteByte(',')
		}
		f.term(head, depth+1)
		tail, _ := f.h.Tail(t)
		if tail == term.Nil {
			break
		}
		if tail.Kind() != term.KindCons || f.open[tail] {
			f.sb.WriteByte('|')
			f.term(tail, depth+1)
			break
		}
		t = tail
		if depth++; depth >= maxFormatDepth {
			f.sb.WriteString("|...")
			break
		}
	}
	f.sb.WriteByte(']')
}

func (f *formatter) binary(b []byte) {
	const maxShown = 16
	f.sb.WriteString("<<")
	for i, c := range b {
		if i == maxShown {
			f.sb.WriteString(",...")
			break
		}
		if i > 0 {
			f.sb.WriteByte(',')
		}
		f.sb.WriteString(strconv.Itoa(int(c)))
	}
	f.sb.WriteString(">>")
}

func (f *formatter) invalid(t term.Term) {
	f.sb.WriteString("#invalid<")
	f.sb.WriteString(t.String())
	f.sb.WriteByte('>')
}
