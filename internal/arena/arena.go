package arena

import (
	"errors"
	"fmt"

	"github.com/hupe1980/procheap/internal/mmap"
)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

var (
	// ErrInvalidCapacity is returned when an arena is created or grown with a bad capacity.
	ErrInvalidCapacity = errors.New("arena: invalid capacity")
	// ErrFreed is returned when a freed arena is grown.
	ErrFreed = errors.New("arena: freed")
)

// WordSize is the number of bytes per arena word.
const WordSize = mmap.WordSize

// Stats tracks arena usage.
//
// Note on semantics:
//   - Capacity: words currently reserved
//   - Used: words handed out since the last Reset
//   - HighWater: largest Used ever observed
//   - TotalAllocs: cumulative allocation count
//   - Resets: number of Reset calls
type Stats struct {
	Capacity    int
	Used        int
	HighWater   int
	TotalAllocs uint64
	Resets      uint64
}

// Arena is a bump-pointer region of words.
type Arena struct {
	words   []uint64
	offset  int
	mapping *mmap.Mapping // nil when backed by a Go slice

	acquirer   MemoryAcquirer
	heapBacked bool
	charged    int64
	freed      bool

	highWater   int
	totalAllocs uint64
	resets      uint64
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer sets the memory acquirer for the arena.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithHeapBacking stores the words in an ordinary Go slice instead of an
// anonymous mapping. Small and short-lived arenas use this.
func WithHeapBacking() Option {
	return func(a *Arena) {
		a.heapBacked = true
	}
}

// New creates an Arena holding capacity words.
func New(capacity int, opts ...Option) (*Arena, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	a := &Arena{}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.back(capacity); err != nil {
		return nil, err
	}
	return a, nil
}

// back reserves storage for capacity words and charges the acquirer.
func (a *Arena) back(capacity int) error {
	bytes := int64(capacity) * WordSize
	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(bytes); err != nil {
			return err
		}
	}

	var (
		words   []uint64
		mapping *mmap.Mapping
	)
	if !a.heapBacked {
		m, err := mmap.MapAnon(capacity * WordSize)
		if err == nil {
			mapping = m
			words = m.Words()
		}
	}
	if words == nil {
		// Mapping unavailable or not wanted: fall back to the Go heap.
		words = make([]uint64, capacity)
	}

	a.words = words
	a.mapping = mapping
	a.charged = bytes
	return nil
}

// release returns the current storage and its charge.
func (a *Arena) release() {
	if a.mapping != nil {
		_ = a.mapping.Close()
		a.mapping = nil
	}
	a.words = nil
	if a.acquirer != nil && a.charged > 0 {
		a.acquirer.ReleaseMemory(a.charged)
	}
	a.charged = 0
}

// Alloc bumps the offset by n words and returns the start of the region.
// ok is false when fewer than n words remain; the arena is unchanged in that
// case. The returned words are zeroed.
func (a *Arena) Alloc(n int) (offset int, ok bool) {
	if n < 0 || n > len(a.words)-a.offset {
		return 0, false
	}

	offset = a.offset
	a.offset += n
	clear(a.words[offset:a.offset])

	a.totalAllocs++
	if a.offset > a.highWater {
		a.highWater = a.offset
	}
	return offset, true
}

// Reset rewinds the offset to zero. Previously allocated words become invalid.
func (a *Arena) Reset() {
	a.offset = 0
	a.resets++
}

// Decommit rewinds the offset and returns the pages of a mapped arena to
// the kernel. The capacity is kept; the pages read back as zero on next use.
func (a *Arena) Decommit() error {
	a.Reset()
	if a.mapping == nil {
		return nil
	}
	return a.mapping.Advise(mmap.AccessDontNeed)
}

// Free releases all storage in one step. It is idempotent.
// A freed arena has zero capacity and every Alloc fails.
func (a *Arena) Free() {
	if a.freed {
		return
	}
	a.release()
	a.offset = 0
	a.freed = true
}

// Grow re-backs the arena with capacity words, preserving the allocated
// prefix. Offsets handed out earlier stay valid.
func (a *Arena) Grow(capacity int) error {
	if a.freed {
		return ErrFreed
	}
	if capacity < len(a.words) {
		return fmt.Errorf("%w: cannot shrink %d to %d", ErrInvalidCapacity, len(a.words), capacity)
	}
	if capacity == len(a.words) {
		return nil
	}

	oldWords := a.words
	oldMapping := a.mapping
	oldCharged := a.charged

	if err := a.back(capacity); err != nil {
		return err
	}
	copy(a.words, oldWords[:a.offset])

	if oldMapping != nil {
		_ = oldMapping.Close()
	}
	if a.acquirer != nil && oldCharged > 0 {
		a.acquirer.ReleaseMemory(oldCharged)
	}
	return nil
}

// Truncate moves the offset back to n. Used after in-place compaction.
func (a *Arena) Truncate(n int) {
	if n < 0 || n > a.offset {
		panic(fmt.Sprintf("arena: truncate to %d outside [0,%d]", n, a.offset))
	}
	a.offset = n
}

// Words returns the full backing slice (len == Capacity).
// The slice is invalidated by Grow and Free.
func (a *Arena) Words() []uint64 {
	return a.words
}

// Offset returns the bump pointer.
func (a *Arena) Offset() int {
	return a.offset
}

// Capacity returns the number of words reserved.
func (a *Arena) Capacity() int {
	return len(a.words)
}

// Remaining returns the number of words still available.
func (a *Arena) Remaining() int {
	return len(a.words) - a.offset
}

// OffHeap reports whether the words live in an anonymous mapping.
func (a *Arena) OffHeap() bool {
	return a.mapping != nil
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		Capacity:    len(a.words),
		Used:        a.offset,
		HighWater:   a.highWater,
		TotalAllocs: a.totalAllocs,
		Resets:      a.resets,
	}
}

// Usage returns the used percentage of the arena.
func (a *Arena) Usage() float64 {
	if len(a.words) == 0 {
		return 0
	}
	return float64(a.offset) / float64(len(a.words)) * 100
}

func (a *Arena) String() string {
	return fmt.Sprintf(
		"Arena{capacity: %d words, used: %d, high-water: %d, usage: %.1f%%, allocs: %d, off-heap: %t}",
		len(a.words),
		a.offset,
		a.highWater,
		a.Usage(),
		a.totalAllocs,
		a.mapping != nil,
	)
}
