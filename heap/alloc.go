package heap

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/procheap/term"
	"github.com/hupe1980/procheap/trace"
)

// Allocate reserves words zeroed words and returns their address. Requests
// whose size reaches LargeObjectThresholdBytes are served by AllocateLarge.
//
// The caller must write a valid header at the returned address before the
// next allocation: any allocation may collect, and a collection only keeps
// objects reachable from the root set.
func (h *Heap) Allocate(words int) (addr term.Address, err error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	if words <= 0 {
		return 0, fmt.Errorf("%w: %d words", ErrInvalidSize, words)
	}
	if words*term.WordSize >= h.cfg.LargeObjectThresholdBytes {
		return h.AllocateLarge(words * term.WordSize)
	}
	return h.allocYoung(words)
}

// allocYoung allocates in the young generation regardless of the large
// object threshold.
func (h *Heap) allocYoung(words int) (addr term.Address, err error) {
	if off, ok := h.young.arena.Alloc(words); ok {
		h.stats.allocated += uint64(words)
		h.record(trace.KindAlloc, words)
		return term.MakeAddress(h.young.id, off), nil
	}

	defer h.recoverLayout(&err)
	return h.allocSlow(words)
}

// allocSlow escalates: minor collection, growth, major collection, one more
// growth attempt, then exhaustion.
func (h *Heap) allocSlow(words int) (term.Address, error) {
	h.minor(h.roots, h.spare, false)
	if addr, ok := h.bump(words); ok {
		return addr, nil
	}

	if h.growFor(words) {
		if addr, ok := h.bump(words); ok {
			return addr, nil
		}
	}

	h.major(h.roots)
	if addr, ok := h.bump(words); ok {
		return addr, nil
	}
	if h.growFor(words) {
		if addr, ok := h.bump(words); ok {
			return addr, nil
		}
	}

	return 0, h.exhaust(words)
}

// bump allocates in the active semispace if the heap is within its ceiling.
func (h *Heap) bump(words int) (term.Address, bool) {
	if h.Footprint() > h.cfg.GrowthCeilingWords {
		return 0, false
	}
	off, ok := h.young.arena.Alloc(words)
	if !ok {
		return 0, false
	}
	h.stats.allocated += uint64(words)
	h.record(trace.KindAlloc, words)
	return term.MakeAddress(h.young.id, off), true
}

// growFor doubles the young generation until the live young data plus the
// request fit, capped so the footprint stays under the ceiling. It reports
// whether the heap grew.
func (h *Heap) growFor(words int) bool {
	cur := h.young.arena.Capacity()
	need := h.young.arena.Offset() + words
	limit := h.cfg.GrowthCeilingWords - h.old.arena.Offset() - h.largeWords

	next := cur * 2
	for next < need {
		next *= 2
	}
	if next > limit {
		next = limit
	}
	if next <= cur || next < need {
		return false
	}
	return h.grow(next)
}

// grow replaces both semispaces with arenas of capacity words. The live
// young data is evacuated into the new active semispace.
func (h *Heap) grow(capacity int) bool {
	to, err := h.newSpace(SpaceYoung, capacity)
	if err != nil {
		h.logger.Warn("young generation growth failed", slog.Uint64("pid", h.pid), slog.Int("words", capacity), slog.Any("error", err))
		return false
	}
	spare, err := h.newSpace(SpaceYoung, capacity)
	if err != nil {
		h.dropSpace(to)
		h.logger.Warn("young generation growth failed", slog.Uint64("pid", h.pid), slog.Int("words", capacity), slog.Any("error", err))
		return false
	}

	prev := h.young.arena.Capacity()
	oldSpare := h.spare
	h.minor(h.roots, to, false)
	// minor made the evacuated semispace the spare one.
	h.dropSpace(h.spare)
	h.dropSpace(oldSpare)
	h.spare = spare

	h.stats.growths++
	h.metrics.OnGrow(prev, capacity)
	h.record(trace.KindGrow, capacity)
	h.logger.Debug("young generation grown", slog.Uint64("pid", h.pid), slog.Int("from", prev), slog.Int("to", capacity))
	return true
}

// exhaust marks the heap dead with an AllocationExhaustedError.
func (h *Heap) exhaust(words int) error {
	err := &AllocationExhaustedError{
		PID:       h.pid,
		Requested: words,
		Footprint: h.Footprint(),
		Ceiling:   h.cfg.GrowthCeilingWords,
	}
	h.logger.Warn("allocation exhausted",
		slog.Uint64("pid", h.pid),
		slog.Int("requested", words),
		slog.Int("footprint", err.Footprint),
		slog.Int("ceiling", err.Ceiling))
	h.metrics.OnExhausted(words, err.Footprint)
	h.record(trace.KindExhausted, words)
	return h.terminate(err)
}

// AllocateLarge reserves an object of bytes bytes in its own arena. The
// address never changes; the object is freed by the first major collection
// that finds it unreachable.
func (h *Heap) AllocateLarge(bytes int) (addr term.Address, err error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	if bytes <= 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidSize, bytes)
	}
	defer h.recoverLayout(&err)

	words := term.WordsForBytes(bytes)
	if h.Footprint()+words > h.cfg.GrowthCeilingWords {
		h.major(h.roots)
		if h.Footprint()+words > h.cfg.GrowthCeilingWords {
			return 0, h.exhaust(words)
		}
	}

	sp, err := h.newSpace(SpaceLarge, words)
	if err != nil {
		// A refused arena is treated like a full heap.
		h.logger.Warn("large object arena refused", slog.Uint64("pid", h.pid), slog.Any("error", err))
		return 0, h.exhaust(words)
	}
	sp.arena.Alloc(words)

	h.large[sp.id] = &largeObject{sp: sp, words: words, remembered: true}
	h.largeWords += words
	h.stats.allocated += uint64(words)
	h.stats.largeAllocs++
	h.record(trace.KindAllocLarge, words)
	return term.MakeAddress(sp.id, 0), nil
}

// isLarge reports whether an object of words words goes to the large-object area.
func (h *Heap) isLarge(words int) bool {
	return words*term.WordSize >= h.cfg.LargeObjectThresholdBytes
}

// alloc allocates an object of words words in the right area.
func (h *Heap) alloc(words int) (term.Address, error) {
	if h.isLarge(words) {
		return h.AllocateLarge(words * term.WordSize)
	}
	return h.Allocate(words)
}
