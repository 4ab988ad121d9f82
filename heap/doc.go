// Package heap implements the private heap of a lightweight process and its
// generational garbage collector.
//
// # Layout
//
// A heap owns several arenas, each identified by the space id carried in
// every boxed term that points into it:
//
//   - two young semispaces: the active one serves bump allocation, the spare
//     one receives survivors of the next minor collection;
//   - the old generation: one growable arena receiving promoted objects,
//     compacted in place by major collections;
//   - one arena per large object: never moved, freed by the first major
//     collection that finds it unreachable.
//
// # Collection
//
// Minor collections are Cheney copies of the young generation. Roots are the
// configured RootSet, terms pinned by in-flight constructors and copies, and
// the remembered set of old and large objects that may point into the young
// generation. An object surviving PromotionAge minor collections is copied
// into the old generation instead.
//
// Major collections empty the young generation, mark from the roots using
// roaring bitmaps and slide live old objects down in address order.
//
// Allocation escalates from bump allocation to a minor collection, growth of
// the young generation, a major collection and finally failure with
// ErrAllocationExhausted once the footprint would exceed GrowthCeilingWords.
// A failed heap is dead; the termination handler tells its owner.
//
// # Concurrency
//
// A Heap belongs to one process and must not be used concurrently. Shared
// data (literals, off-heap binaries) is reached through term values only.
package heap
