// Package resource implements a node-wide memory budget shared by process heaps.
//
// Every arena charges its capacity against the Controller when it is created
// and releases it when it is freed. The budget is the only piece of
// allocator state shared between processes; it holds counters, never heap
// contents.
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for the hard limit and atomic
// counters for usage. AcquireMemory is non-blocking and returns
// ErrMemoryLimitExceeded immediately; the caller (a heap) turns that into a
// collection, a smaller growth step, or a process-local allocation failure:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB for all heaps on this node
//	})
//
//	if err := rc.AcquireMemory(64 << 10); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(64 << 10)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional budgeting without nil checks everywhere.
package resource
