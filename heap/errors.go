package heap

import (
	"errors"
	"fmt"

	"github.com/hupe1980/procheap/term"
)

var (
	// ErrAllocationExhausted is the sentinel for a heap that reached its growth
	// ceiling with collection unable to reclaim enough space. It is fatal to
	// the owning process only.
	ErrAllocationExhausted = errors.New("allocation exhausted")

	// ErrInvalidTermLayout is re-exported from package term.
	ErrInvalidTermLayout = term.ErrInvalidTermLayout

	// ErrClosed is returned when a heap is used after Close.
	ErrClosed = errors.New("heap closed")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid heap config")

	// ErrInvalidSize is returned for non-positive allocation requests.
	ErrInvalidSize = errors.New("invalid allocation size")

	// ErrBadArgument is returned when an accessor gets a term of the wrong kind
	// or an index out of range.
	ErrBadArgument = errors.New("bad argument")

	// ErrNoRegistry is returned when an off-heap binary is used on a heap
	// created without a registry.
	ErrNoRegistry = errors.New("no off-heap registry")

	// ErrNoLiteralArea is returned when a literal term is read on a heap
	// created without a literal area.
	ErrNoLiteralArea = errors.New("no literal area")
)

// AllocationExhaustedError describes a failed allocation.
//
// It matches ErrAllocationExhausted with errors.Is.
type AllocationExhaustedError struct {
	PID       uint64
	Requested int // words
	Footprint int // words held when the request failed
	Ceiling   int // configured GrowthCeilingWords
}

func (e *AllocationExhaustedError) Error() string {
	return fmt.Sprintf("allocation exhausted: pid %d requested %d words (footprint %d, ceiling %d)",
		e.PID, e.Requested, e.Footprint, e.Ceiling)
}

func (e *AllocationExhaustedError) Unwrap() error { return ErrAllocationExhausted }

func badArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadArgument, fmt.Sprintf(format, args...))
}
