package heap

import (
	"fmt"

	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

// CopyTo deep-copies t from h into dst and returns the copy. Sharing and
// cycles inside t are preserved; literal pointers and immediates are kept
// as they are; every RefcBinary in t gains one reference for dst.
//
// The message is sized first, then allocated in dst in one young block plus
// one arena per large object. Collections dst runs to make room do not move
// h. On error dst is left as it was, unless the error killed dst.
func (h *Heap) CopyTo(dst *Heap, t term.Term) (out term.Term, err error) {
	if err := h.check(); err != nil {
		return term.None, err
	}
	if err := dst.check(); err != nil {
		return term.None, err
	}
	if err := t.Validate(); err != nil {
		return term.None, fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	if !t.IsBoxed() || dst == h {
		if t.IsLiteral() && dst.literals == nil {
			return term.None, ErrNoLiteralArea
		}
		return t, nil
	}

	plan, err := h.planCopy(t, dst)
	if err != nil {
		return term.None, err
	}
	if len(plan.refcs) > 0 {
		if dst.registry == nil {
			return term.None, ErrNoRegistry
		}
		if dst.registry != h.registry {
			return term.None, badArg("pid %d and pid %d use different off-heap registries", h.pid, dst.pid)
		}
	}

	mark := dst.pin()
	defer dst.unpin(mark)

	// Large objects first: their addresses survive the block allocation.
	for _, i := range plan.large {
		addr, err := dst.AllocateLarge(plan.layouts[i].Words * term.WordSize)
		if err != nil {
			return term.None, err
		}
		plan.dst[i] = addr
		plan.writeShell(h, dst, i)
		dst.pinned = append(dst.pinned, term.Boxed(plan.objects[i].Kind(), addr))
	}

	if plan.smallWords > 0 {
		if err := dst.check(); err != nil {
			return term.None, err
		}
		base, err := dst.allocYoung(plan.smallWords)
		if err != nil {
			return term.None, err
		}
		off := base.Offset()
		for _, i := range plan.small {
			plan.dst[i] = term.MakeAddress(base.Space(), off)
			off += plan.layouts[i].Words
		}
	}

	// No allocation from here on.
	for i := range plan.objects {
		if !plan.isLarge[i] {
			plan.writeShell(h, dst, i)
		}
		plan.link(h, dst, i)
	}
	for _, i := range plan.refcs {
		w := dst.spaces[plan.dst[i].Space()].words()
		b, err := dst.registry.Lookup(offheap.Handle(w[plan.dst[i].Offset()+1]))
		if err != nil {
			// The sender holds a reference, so the binary is alive.
			panic(fmt.Sprintf("heap: copy of dangling off-heap binary: %v", err))
		}
		b.Retain()
		dst.offHeap = append(dst.offHeap, plan.dst[i])
	}

	return t.Retarget(plan.dst[0]), nil
}

// copyPlan lists the objects reachable from a message root in discovery
// order, the root first.
type copyPlan struct {
	objects []term.Term
	layouts []term.Layout
	index   map[term.Address]int
	isLarge []bool
	dst     []term.Address

	small, large, refcs []int
	smallWords          int
}

func (h *Heap) planCopy(t term.Term, dst *Heap) (p *copyPlan, err error) {
	defer h.recoverLayout(&err)

	p = &copyPlan{index: make(map[term.Address]int)}
	var work workList[term.Term]
	work.push(t)
	for {
		c, ok := work.pop()
		if !ok {
			break
		}
		if !c.IsBoxed() {
			if err := c.Validate(); err != nil {
				panic(err)
			}
			if c.IsLiteral() && dst.literals == nil {
				return nil, ErrNoLiteralArea
			}
			continue
		}
		if _, dup := p.index[c.Address()]; dup {
			continue
		}
		w, l := h.layout(c)
		i := len(p.objects)
		p.index[c.Address()] = i
		p.objects = append(p.objects, c)
		p.layouts = append(p.layouts, l)

		large := l.Kind != term.KindRefcBinary && dst.isLarge(l.Words)
		p.isLarge = append(p.isLarge, large)
		if large {
			p.large = append(p.large, i)
		} else {
			p.small = append(p.small, i)
			p.smallWords += l.Words
		}
		if l.Kind == term.KindRefcBinary {
			p.refcs = append(p.refcs, i)
		}

		from, to := l.ChildSlots()
		for j := to - 1; j >= from; j-- {
			work.push(term.Term(w[j]))
		}
	}
	p.dst = make([]term.Address, len(p.objects))
	return p, nil
}

// writeShell copies object i into its destination with every child slot
// unset, so the destination stays traceable until link runs.
func (p *copyPlan) writeShell(src, dst *Heap, i int) {
	l := p.layouts[i]
	sw := src.object(p.objects[i])[:l.Words]
	a := p.dst[i]
	dw := dst.spaces[a.Space()].words()[a.Offset() : a.Offset()+l.Words]
	copy(dw, sw)
	dw[0] = uint64(term.Term(sw[0]).WithAge(0))
	from, to := l.ChildSlots()
	clear(dw[from:to])
}

// link points the child slots of copied object i at the copies.
func (p *copyPlan) link(src, dst *Heap, i int) {
	l := p.layouts[i]
	sw := src.object(p.objects[i])
	a := p.dst[i]
	dw := dst.spaces[a.Space()].words()[a.Offset() : a.Offset()+l.Words]
	from, to := l.ChildSlots()
	for j := from; j < to; j++ {
		c := term.Term(sw[j])
		if c.IsBoxed() {
			c = c.Retarget(p.dst[p.index[c.Address()]])
		}
		dw[j] = uint64(c)
	}
}
