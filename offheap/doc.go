// Package offheap implements reference-counted binaries stored outside every
// process heap.
//
// A Binary is created once, and any number of processes may hold a
// reference to it through a small RefcBinary object in their own heap. The
// contents never change after creation; the only mutation is the reference
// count, which is updated atomically. A collector that does not carry a
// RefcBinary object forward releases its reference; the binary is freed when
// the count reaches zero.
//
// The Registry is explicit process-wide state: it is created by the runtime,
// passed to every heap, and torn down with Close. There is no package-level
// singleton.
//
// # Pinned binaries
//
// Binaries interned into the literal area are pinned: they survive a zero
// count and are freed only when the registry closes.
//
// # Thread Safety
//
// Registry and Binary are safe for concurrent use. Counts use sync/atomic;
// the handle table is guarded by a read-write mutex.
package offheap
