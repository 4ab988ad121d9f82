package heap

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/procheap/term"
	"github.com/hupe1980/procheap/trace"
)

// CollectMajor runs a full collection: the young generation is emptied into
// the old one, the old generation is compacted and unreachable large objects
// are freed. roots is traced in addition to the configured root set and may
// be nil.
func (h *Heap) CollectMajor(roots RootSet) (err error) {
	if err := h.check(); err != nil {
		return err
	}
	defer h.recoverLayout(&err)

	h.major(h.withRoots(roots))
	return nil
}

// markSet records marked object starts per space.
type markSet map[uint32]*roaring.Bitmap

// add marks off in space id and reports whether it was unmarked.
func (m markSet) add(id uint32, off int) bool {
	bm, ok := m[id]
	if !ok {
		bm = roaring.New()
		m[id] = bm
	}
	return bm.CheckedAdd(uint32(off))
}

func (m markSet) contains(id uint32, off int) bool {
	bm, ok := m[id]
	return ok && bm.Contains(uint32(off))
}

// fwdEntry moves words words from one old-generation offset to another.
type fwdEntry struct {
	from, to, words int
}

// fwdTable is sorted by from.
type fwdTable []fwdEntry

func (f fwdTable) find(off int) (fwdEntry, bool) {
	i, ok := slices.BinarySearchFunc(f, off, func(e fwdEntry, off int) int {
		return cmp.Compare(e.from, off)
	})
	if !ok {
		return fwdEntry{}, false
	}
	return f[i], true
}

// major is a mark-compact collection of the whole heap.
func (h *Heap) major(roots RootSet) {
	start := time.Now()

	// 1. Empty the young generation.
	h.minor(roots, h.spare, true)

	h.collecting = true
	locs := h.rootLocations(roots)

	// 2. Mark.
	marks := make(markSet)
	var work workList[term.Term]
	for _, r := range locs {
		work.push(*r)
	}
	for {
		t, ok := work.pop()
		if !ok {
			break
		}
		if !t.IsBoxed() {
			if err := t.Validate(); err != nil {
				panic(err)
			}
			continue
		}
		addr := t.Address()
		if !marks.add(addr.Space(), addr.Offset()) {
			continue
		}
		w, l := h.layout(t)
		from, to := l.ChildSlots()
		for i := from; i < to; i++ {
			work.push(term.Term(w[i]))
		}
	}

	// 3. Forwarding offsets for live old objects, in address order.
	ow := h.old.words()
	top := h.old.arena.Offset()
	var fwd fwdTable
	free := 0
	if bm, ok := marks[h.old.id]; ok {
		fwd = make(fwdTable, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			off := int(it.Next())
			n := term.MustLayout(term.Term(ow[off])).Words
			fwd = append(fwd, fwdEntry{from: off, to: free, words: n})
			free += n
		}
	}

	relocate := func(t term.Term) term.Term {
		if !t.IsBoxed() || t.Address().Space() != h.old.id {
			return t
		}
		f, ok := fwd.find(t.Address().Offset())
		if !ok {
			panic(&term.LayoutError{Word: t, Reason: "live pointer to unmarked object"})
		}
		return t.Retarget(term.MakeAddress(h.old.id, f.to))
	}

	// 4. Update roots and every live object.
	for _, r := range locs {
		*r = relocate(*r)
	}
	for id, bm := range marks {
		sp := h.spaces[id]
		w := sp.words()
		it := bm.Iterator()
		for it.HasNext() {
			off := int(it.Next())
			l := term.MustLayout(term.Term(w[off]))
			from, to := l.ChildSlots()
			for i := off + from; i < off+to; i++ {
				w[i] = uint64(relocate(term.Term(w[i])))
			}
		}
	}

	// Off-heap references of dead old objects must be read before sliding
	// overwrites them.
	released := 0
	kept := h.offHeap[:0]
	for _, a := range h.offHeap {
		if a.Space() != h.old.id {
			kept = append(kept, a)
			continue
		}
		if f, ok := fwd.find(a.Offset()); ok {
			kept = append(kept, term.MakeAddress(h.old.id, f.to))
			continue
		}
		h.releaseHandle(ow[a.Offset()+1])
		released++
	}
	clear(h.offHeap[len(kept):])
	h.offHeap = kept

	// 5. Slide.
	for _, f := range fwd {
		if f.from != f.to {
			copy(ow[f.to:f.to+f.words], ow[f.from:f.from+f.words])
		}
	}
	h.old.arena.Truncate(free)
	reclaimed := top - free

	// 6. Free unreachable large objects.
	for id, lo := range h.large {
		if marks.contains(id, 0) {
			continue
		}
		reclaimed += lo.words
		h.largeWords -= lo.words
		delete(h.large, id)
		h.dropSpace(lo.sp)
		h.stats.frees++
		h.record(trace.KindFree, lo.words)
	}

	// Nothing points into an empty young generation. Objects the memory
	// budget kept from being promoted are the exception.
	h.remembered.Clear()
	youngLive := h.young.arena.Offset() > 0
	for _, f := range fwd {
		if youngLive && h.pointsInto(h.old, f.to, h.young.id) {
			h.remembered.Add(uint32(f.to))
		}
	}
	for _, lo := range h.large {
		lo.remembered = youngLive && h.pointsInto(lo.sp, 0, h.young.id)
	}

	// The spare semispace is idle until the next minor collection.
	if err := h.spare.arena.Decommit(); err != nil {
		h.logger.Debug("decommit failed", slog.Uint64("pid", h.pid), slog.Any("error", err))
	}

	pause := time.Since(start)
	live := free + h.largeWords
	h.stats.major++
	h.stats.reclaimed += uint64(reclaimed)
	h.stats.lastMajorPause = pause
	h.collecting = false

	h.metrics.OnMajorGC(pause, live, reclaimed)
	h.record(trace.KindMajorGC, live)
	h.logger.Debug("major collection",
		slog.Uint64("pid", h.pid),
		slog.Int("live", live),
		slog.Int("reclaimed", reclaimed),
		slog.Int("released_binaries", released),
		slog.Duration("pause", pause))
}

// rootLocations lists each root location once, pinned terms included.
func (h *Heap) rootLocations(roots RootSet) []*term.Term {
	seen := make(map[*term.Term]struct{})
	var locs []*term.Term
	if roots != nil {
		for r := range roots.Roots() {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			locs = append(locs, r)
		}
	}
	for i := range h.pinned {
		locs = append(locs, &h.pinned[i])
	}
	return locs
}

// pointsInto reports whether the object at off in sp has a child in space id.
func (h *Heap) pointsInto(sp *space, off int, id uint32) bool {
	w := sp.words()
	if w[off] == 0 {
		return false
	}
	l := term.MustLayout(term.Term(w[off]))
	from, to := l.ChildSlots()
	for i := off + from; i < off+to; i++ {
		t := term.Term(w[i])
		if t.IsBoxed() && t.Address().Space() == id {
			return true
		}
	}
	return false
}
