// Package arena provides the fixed-capacity word regions that back process heaps.
//
// An Arena is a contiguous run of 64-bit words with a bump pointer. There is
// no per-object free: a region is either rewound with Reset (a retired
// semispace about to be reused) or released in one step with Free (process
// exit, or a semispace replaced by growth).
//
// # Features
//
//   - Off-heap storage via anonymous mmap (the Go GC never scans heap words)
//   - Lazy zeroing at allocation time, so Reset is O(1)
//   - Optional MemoryAcquirer charged with the full capacity
//   - Grow re-backs the region while keeping offsets stable
//
// # Concurrency
//
// An Arena is owned by exactly one heap and used from one goroutine at a
// time. It has no internal locking.
package arena
