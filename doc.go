// Package procheap provides per-process heaps with generational garbage
// collection for runtimes built from many lightweight processes.
//
// Every process owns a private heap. Nothing is shared between heaps except
// immutable literals and reference-counted off-heap binaries, so each heap is
// collected on its own, with no locks and no global pauses:
//
//   - minor collections copy live young objects (Cheney scan), promoting
//     objects that survived enough collections into the old generation;
//   - major collections mark the whole heap and compact the old generation;
//   - large objects live in their own arenas and are never moved;
//   - a heap that would outgrow its ceiling fails with
//     ErrAllocationExhausted and only its process exits.
//
// # Quick Start
//
//	rt, _ := procheap.New(procheap.WithMemoryLimit(64 << 20))
//	defer rt.Close()
//
//	ok, _ := rt.Atom("ok")
//	a, _ := rt.Spawn(1)
//	b, _ := rt.Spawn(2)
//
//	msg, _ := a.Heap().TupleOf(ok, term.MustSmallInt(42))
//	_ = a.Send(b, msg) // deep copy into b's heap
//
//	got, _ := b.Receive()
//	fmt.Println(b.Heap().Format(got)) // {#atom<0>,42}
//
// # Roots
//
// A term held in a Go variable is not a root. Keep terms that must survive an
// allocation on the process stack (Process.Roots) or in the mailbox; the
// collector rewrites those slots when objects move.
//
// # Packages
//
//   - term: the tagged word encoding and object layouts
//   - heap: allocation, collection, construction and deep copy
//   - offheap: reference-counted binaries shared between heaps
//   - literal: the read-only literal area and the atom table
//   - trace: allocation and collection events, sampled or streamed
package procheap
