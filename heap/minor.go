package heap

import (
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/procheap/term"
	"github.com/hupe1980/procheap/trace"
)

// CollectMinor runs a minor collection. roots is traced in addition to the
// heap's configured root set and may be nil. Collection never fails; the
// only error is a fatal one for the heap (closed, dead, or an invalid term
// layout found while tracing).
func (h *Heap) CollectMinor(roots RootSet) (err error) {
	if err := h.check(); err != nil {
		return err
	}
	defer h.recoverLayout(&err)

	h.minor(h.withRoots(roots), h.spare, false)
	return nil
}

func (h *Heap) withRoots(extra RootSet) RootSet {
	switch {
	case extra == nil:
		return h.roots
	case h.roots == nil:
		return extra
	}
	return MultiRoots{h.roots, extra}
}

// evacuator copies live young objects out of one semispace.
type evacuator struct {
	h          *Heap
	from, to   *space
	promoteAll bool

	survived, promoted int
}

// minor evacuates every young object reachable from roots, the pinned terms
// and the remembered set into to, or into the old generation once old
// enough. Afterwards to is the active semispace and the evacuated one is
// the spare.
func (h *Heap) minor(roots RootSet, to *space, promoteAll bool) {
	if h.collecting {
		panic("heap: collection re-entered")
	}
	h.collecting = true
	start := time.Now()

	e := &evacuator{h: h, from: h.young, to: to, promoteAll: promoteAll}
	oldScan := h.old.arena.Offset()
	toScan := to.arena.Offset()

	if roots != nil {
		for r := range roots.Roots() {
			*r = e.evacuate(*r)
		}
	}
	for i := range h.pinned {
		h.pinned[i] = e.evacuate(h.pinned[i])
	}

	// Old and large objects pointing into the young generation are roots too.
	remembered := roaring.New()
	it := h.remembered.Iterator()
	for it.HasNext() {
		off := it.Next()
		if _, young := e.scan(h.old, int(off)); young {
			remembered.Add(off)
		}
	}
	for _, lo := range h.large {
		if !lo.remembered {
			continue
		}
		if lo.sp.words()[0] == 0 {
			// Not initialised yet; keep watching it.
			continue
		}
		_, lo.remembered = e.scan(lo.sp, 0)
	}

	// Cheney scan over the to-space and the freshly promoted old region.
	for toScan < to.arena.Offset() || oldScan < h.old.arena.Offset() {
		for toScan < to.arena.Offset() {
			n, _ := e.scan(to, toScan)
			toScan += n
		}
		for oldScan < h.old.arena.Offset() {
			n, young := e.scan(h.old, oldScan)
			if young {
				remembered.Add(uint32(oldScan))
			}
			oldScan += n
		}
	}
	h.remembered = remembered

	released := h.sweepOffHeap(e.from)

	e.from.arena.Reset()
	h.young, h.spare = to, e.from

	pause := time.Since(start)
	h.stats.minor++
	h.stats.copied += uint64(e.survived + e.promoted)
	h.stats.promoted += uint64(e.promoted)
	h.stats.lastMinorPause = pause
	h.collecting = false

	h.metrics.OnMinorGC(pause, e.survived, e.promoted)
	h.record(trace.KindMinorGC, e.survived+e.promoted)
	h.logger.Debug("minor collection",
		slog.Uint64("pid", h.pid),
		slog.Int("survived", e.survived),
		slog.Int("promoted", e.promoted),
		slog.Int("released_binaries", released),
		slog.Duration("pause", pause))
}

// sweepOffHeap follows forwarding for RefcBinary objects that left from and
// releases the ones left behind.
func (h *Heap) sweepOffHeap(from *space) int {
	released := 0
	w := from.words()
	kept := h.offHeap[:0]
	for _, a := range h.offHeap {
		if a.Space() != from.id {
			kept = append(kept, a)
			continue
		}
		hdr := term.Term(w[a.Offset()])
		if hdr.IsForward() {
			kept = append(kept, hdr.ForwardAddress())
			continue
		}
		h.releaseHandle(w[a.Offset()+1])
		released++
	}
	clear(h.offHeap[len(kept):])
	h.offHeap = kept
	return released
}

// scan evacuates the children of the object at off in sp. It returns the
// object size and whether a child now lives in the young generation.
func (e *evacuator) scan(sp *space, off int) (int, bool) {
	l := term.MustLayout(term.Term(sp.words()[off]))
	young := false
	from, to := l.ChildSlots()
	for i := from; i < to; i++ {
		slot := off + i
		// Re-read the slice: promotion may grow the old generation.
		child := term.Term(sp.words()[slot])
		nc := e.evacuate(child)
		if nc != child {
			sp.words()[slot] = uint64(nc)
		}
		if nc.IsBoxed() && nc.Address().Space() == e.to.id {
			young = true
		}
	}
	return l.Words, young
}

// evacuate returns the new location of t, copying its object out of
// from-space the first time it is reached.
func (e *evacuator) evacuate(t term.Term) term.Term {
	if !t.IsBoxed() {
		if err := t.Validate(); err != nil {
			panic(err)
		}
		return t
	}
	if !t.Kind().Valid() {
		panic(&term.LayoutError{Word: t, Reason: "bad object kind"})
	}

	addr := t.Address()
	if addr.Space() != e.from.id {
		if addr.Space() == e.h.spare.id && e.h.spare != e.to {
			panic(&term.LayoutError{Word: t, Reason: "pointer into inactive semispace"})
		}
		e.h.lookup(addr.Space(), t)
		return t
	}

	w := e.from.words()
	off := addr.Offset()
	if off >= e.from.arena.Offset() {
		panic(&term.LayoutError{Word: t, Reason: "pointer beyond allocated words"})
	}
	hdr := term.Term(w[off])
	if hdr.IsForward() {
		return t.Retarget(hdr.ForwardAddress())
	}
	l := term.MustLayout(hdr)
	if l.Kind != t.Kind() {
		panic(&term.LayoutError{Word: t, Reason: "pointer kind does not match header " + l.Kind.String()})
	}
	if l.Words > e.from.arena.Offset()-off {
		panic(&term.LayoutError{Word: t, Reason: "object extends beyond allocated words"})
	}

	age := int(hdr.HeaderAge()) + 1
	var (
		dst  *space
		doff int
	)
	if e.promoteAll || age >= e.h.cfg.PromotionAge {
		if o, ok := e.h.oldAlloc(l.Words); ok {
			dst, doff = e.h.old, o
			e.promoted += l.Words
		}
	}
	if dst == nil {
		o, ok := e.to.arena.Alloc(l.Words)
		if !ok {
			panic("heap: to-space overflow")
		}
		dst, doff = e.to, o
		e.survived += l.Words
	}

	dw := dst.words()
	copy(dw[doff:doff+l.Words], w[off:off+l.Words])
	dw[doff] = uint64(hdr.WithAge(age))

	na := term.MakeAddress(dst.id, doff)
	w[off] = uint64(term.Forward(na))
	return t.Retarget(na)
}

// oldAlloc bumps the old generation, growing it when full. It fails only if
// the memory budget refuses the growth.
func (h *Heap) oldAlloc(words int) (int, bool) {
	a := h.old.arena
	if off, ok := a.Alloc(words); ok {
		return off, true
	}
	next := max(a.Capacity()*2, 1)
	for next < a.Offset()+words {
		next *= 2
	}
	if err := a.Grow(next); err != nil {
		h.logger.Warn("old generation growth refused", slog.Uint64("pid", h.pid), slog.Int("words", next), slog.Any("error", err))
		return 0, false
	}
	return a.Alloc(words)
}
