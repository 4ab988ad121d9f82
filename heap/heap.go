package heap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/procheap/internal/arena"
	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
	"github.com/hupe1980/procheap/trace"
)

// Heap is the private memory of one process: a copying young generation,
// a compacted old generation and a set of large objects.
//
// A Heap is not safe for concurrent use. Every term returned by a Heap is
// only meaningful on that Heap; use CopyTo to move values between heaps.
type Heap struct {
	pid uint64
	cfg Config

	spaces  map[uint32]*space
	freeIDs []uint32
	nextID  uint32

	young *space // active semispace
	spare *space // inactive semispace
	old   *space
	large map[uint32]*largeObject

	largeWords int

	// offHeap lists the addresses of RefcBinary objects in young and old.
	offHeap []term.Address
	// remembered holds old-generation offsets of objects that may point into
	// the young generation. Large objects carry their own flag.
	remembered *roaring.Bitmap
	// pinned holds terms kept alive and updated across collections triggered
	// while a constructor or a copy is in flight.
	pinned []term.Term

	roots     RootSet
	registry  *offheap.Registry
	literals  LiteralArea
	arenaOpts []arena.Option

	logger      *slog.Logger
	metrics     MetricsObserver
	recorder    trace.Recorder
	onTerminate func(pid uint64, reason error)

	collecting bool
	dead       error
	closed     bool

	stats counters
}

type counters struct {
	minor, major, growths          uint64
	allocated, copied, promoted    uint64
	reclaimed, largeAllocs, frees  uint64
	lastMinorPause, lastMajorPause time.Duration
}

// Stats is a snapshot of heap usage. Sizes are in words.
type Stats struct {
	PID uint64

	YoungCapacity int
	YoungUsed     int
	OldCapacity   int
	OldUsed       int
	LargeObjects  int
	LargeWords    int
	Footprint     int
	Ceiling       int

	OffHeapRefs int
	Remembered  int

	MinorCollections uint64
	MajorCollections uint64
	Growths          uint64

	WordsAllocated uint64
	WordsCopied    uint64
	WordsPromoted  uint64
	WordsReclaimed uint64
	LargeAllocs    uint64
	LargeFrees     uint64

	LastMinorPause time.Duration
	LastMajorPause time.Duration
}

// New creates the heap of process pid.
func New(pid uint64, cfg Config, opts ...Option) (*Heap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	h := &Heap{
		pid:        pid,
		cfg:        cfg,
		spaces:     make(map[uint32]*space),
		nextID:     1,
		large:      make(map[uint32]*largeObject),
		remembered: roaring.New(),
		logger:     slog.New(slog.DiscardHandler),
		metrics:    &NoopMetricsObserver{},
	}
	for _, opt := range opts {
		opt(h)
	}

	var err error
	if h.young, err = h.newSpace(SpaceYoung, cfg.InitialYoungWords); err != nil {
		return nil, fmt.Errorf("heap: young generation: %w", err)
	}
	if h.spare, err = h.newSpace(SpaceYoung, cfg.InitialYoungWords); err != nil {
		h.dropSpace(h.young)
		return nil, fmt.Errorf("heap: young generation: %w", err)
	}
	if h.old, err = h.newSpace(SpaceOld, cfg.OldInitialWords); err != nil {
		h.dropSpace(h.young)
		h.dropSpace(h.spare)
		return nil, fmt.Errorf("heap: old generation: %w", err)
	}
	return h, nil
}

// PID returns the owning process id.
func (h *Heap) PID() uint64 { return h.pid }

// Config returns the effective configuration.
func (h *Heap) Config() Config { return h.cfg }

// Registry returns the off-heap registry, or nil.
func (h *Heap) Registry() *offheap.Registry { return h.registry }

// Err returns the reason the heap is no longer usable, or nil.
func (h *Heap) Err() error {
	if h.closed {
		return ErrClosed
	}
	return h.dead
}

// Footprint returns the words counted against the growth ceiling.
func (h *Heap) Footprint() int {
	return h.young.arena.Capacity() + h.old.arena.Offset() + h.largeWords
}

// Stats returns a snapshot of heap usage.
func (h *Heap) Stats() Stats {
	s := Stats{
		PID:              h.pid,
		Ceiling:          h.cfg.GrowthCeilingWords,
		LargeObjects:     len(h.large),
		LargeWords:       h.largeWords,
		OffHeapRefs:      len(h.offHeap),
		Remembered:       int(h.remembered.GetCardinality()),
		MinorCollections: h.stats.minor,
		MajorCollections: h.stats.major,
		Growths:          h.stats.growths,
		WordsAllocated:   h.stats.allocated,
		WordsCopied:      h.stats.copied,
		WordsPromoted:    h.stats.promoted,
		WordsReclaimed:   h.stats.reclaimed,
		LargeAllocs:      h.stats.largeAllocs,
		LargeFrees:       h.stats.frees,
		LastMinorPause:   h.stats.lastMinorPause,
		LastMajorPause:   h.stats.lastMajorPause,
	}
	if h.closed {
		return s
	}
	s.YoungCapacity = h.young.arena.Capacity()
	s.YoungUsed = h.young.arena.Offset()
	s.OldCapacity = h.old.arena.Capacity()
	s.OldUsed = h.old.arena.Offset()
	s.Footprint = h.Footprint()
	for _, lo := range h.large {
		if lo.remembered {
			s.Remembered++
		}
	}
	return s
}

// Close tears the heap down in one step: every arena is freed, every off-heap
// reference released and the memory budget returned. Close is idempotent.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	h.releaseOffHeap(h.offHeap)
	h.offHeap = nil
	for _, sp := range h.spaces {
		sp.arena.Free()
	}
	clear(h.spaces)
	clear(h.large)
	h.largeWords = 0
	h.pinned = nil
	h.remembered.Clear()

	h.logger.Debug("heap closed", slog.Uint64("pid", h.pid))
	return nil
}

// check returns the error that makes the heap unusable.
func (h *Heap) check() error {
	if h.closed {
		return ErrClosed
	}
	return h.dead
}

// releaseOffHeap drops the reference held by every RefcBinary at addrs.
func (h *Heap) releaseOffHeap(addrs []term.Address) {
	for _, a := range addrs {
		sp, ok := h.spaces[a.Space()]
		if !ok {
			continue
		}
		h.releaseHandle(sp.words()[a.Offset()+1])
	}
}

func (h *Heap) releaseHandle(w uint64) {
	if h.registry == nil {
		return
	}
	b, err := h.registry.Lookup(offheap.Handle(w))
	if err != nil {
		h.logger.Warn("dangling off-heap reference", slog.Uint64("pid", h.pid), slog.Any("error", err))
		return
	}
	b.Release()
}

// terminate marks the heap dead and fires the termination handler once.
func (h *Heap) terminate(reason error) error {
	if h.dead != nil {
		return h.dead
	}
	h.dead = reason
	if h.onTerminate != nil {
		h.onTerminate(h.pid, reason)
	}
	return reason
}

// recoverLayout turns a *term.LayoutError panic raised while tracing into a
// fatal heap error. Other panics propagate.
func (h *Heap) recoverLayout(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	var le *term.LayoutError
	if !ok || !errors.As(err, &le) || debugAssertions {
		panic(r)
	}
	h.collecting = false
	h.pinned = h.pinned[:0]
	h.logger.Error("invalid term layout", slog.Uint64("pid", h.pid), slog.Any("error", err))
	*errp = h.terminate(fmt.Errorf("heap: pid %d: %w", h.pid, err))
}

func (h *Heap) record(kind trace.Kind, words int) {
	if !trace.Enabled || h.recorder == nil {
		return
	}
	h.recorder.Record(trace.Event{
		Kind:      kind,
		PID:       h.pid,
		Words:     int64(words),
		Timestamp: time.Now(),
		CallSite:  trace.CallSite(3),
	})
}

// pin pushes terms onto the pinned root stack and returns the mark to
// restore with unpin.
func (h *Heap) pin(ts ...term.Term) int {
	mark := len(h.pinned)
	h.pinned = append(h.pinned, ts...)
	return mark
}

func (h *Heap) unpin(mark int) {
	if mark > len(h.pinned) {
		// A fatal collection error already dropped the pins.
		return
	}
	clear(h.pinned[mark:])
	h.pinned = h.pinned[:mark]
}
