package procheap

import (
	"errors"

	"github.com/hupe1980/procheap/heap"
	"github.com/hupe1980/procheap/internal/resource"
	"github.com/hupe1980/procheap/literal"
	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

var (
	// ErrAllocationExhausted is the exit reason of a process whose heap
	// would outgrow its ceiling.
	ErrAllocationExhausted = heap.ErrAllocationExhausted

	// ErrInvalidTermLayout is the exit reason of a process whose heap holds
	// a malformed term.
	ErrInvalidTermLayout = term.ErrInvalidTermLayout

	// ErrHeapClosed is returned when using the heap of an exited process.
	ErrHeapClosed = heap.ErrClosed

	// ErrMemoryLimitExceeded is returned when a heap arena does not fit the
	// runtime memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded

	// ErrSealed is returned when interning literals after the first spawn.
	ErrSealed = literal.ErrSealed

	// ErrLiveBinaries is returned by Close when off-heap binaries leaked.
	ErrLiveBinaries = offheap.ErrLiveBinaries

	// ErrRuntimeClosed is returned when using a closed runtime.
	ErrRuntimeClosed = errors.New("runtime closed")

	// ErrProcessExists is returned when spawning a pid that is alive.
	ErrProcessExists = errors.New("process already exists")

	// ErrNoProcess is returned when addressing a process that has exited.
	ErrNoProcess = errors.New("no such process")

	// ErrForeignProcess is returned when a process belongs to another runtime.
	ErrForeignProcess = errors.New("process belongs to another runtime")
)
