// Package mmap provides anonymous memory mappings used as arena storage.
//
// # Overview
//
// Heap words live outside the Go heap so that the Go garbage collector never
// scans them. A Mapping owns one anonymous read-write region and releases it
// in a single munmap (or VirtualFree) call.
//
// # Usage
//
//	m, err := mmap.MapAnon(words * 8)
//	if err != nil { ... }
//	defer m.Close()
//
//	w := m.Words() // []uint64 view of the region
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) hints
//   - Windows: VirtualAlloc/VirtualFree (advice is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. A Mapping is otherwise
// owned by a single goroutine.
package mmap
