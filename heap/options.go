package heap

import (
	"log/slog"

	"github.com/hupe1980/procheap/internal/arena"
	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/trace"
)

// LiteralArea is the read-only word store literal terms point into.
type LiteralArea interface {
	Words() []uint64
}

// Option is a functional option for configuring a Heap.
type Option func(*Heap)

// WithRootSet sets the roots used by collections the allocator triggers.
func WithRootSet(roots RootSet) Option {
	return func(h *Heap) {
		h.roots = roots
	}
}

// WithRegistry sets the off-heap binary registry.
func WithRegistry(reg *offheap.Registry) Option {
	return func(h *Heap) {
		h.registry = reg
	}
}

// WithLiterals sets the literal area literal terms resolve into.
func WithLiterals(area LiteralArea) Option {
	return func(h *Heap) {
		h.literals = area
	}
}

// WithMemoryAcquirer charges every arena of the heap against a shared budget.
func WithMemoryAcquirer(acq arena.MemoryAcquirer) Option {
	return func(h *Heap) {
		if acq != nil {
			h.arenaOpts = append(h.arenaOpts, arena.WithMemoryAcquirer(acq))
		}
	}
}

// WithHeapBacking keeps all arenas in Go memory instead of anonymous mappings.
func WithHeapBacking() Option {
	return func(h *Heap) {
		h.arenaOpts = append(h.arenaOpts, arena.WithHeapBacking())
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Heap) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetricsObserver sets the metrics observer.
func WithMetricsObserver(m MetricsObserver) Option {
	return func(h *Heap) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithRecorder installs an allocation trace recorder.
func WithRecorder(r trace.Recorder) Option {
	return func(h *Heap) {
		h.recorder = r
	}
}

// WithTerminationHandler sets the callback fired once when the heap dies,
// either exhausted or corrupted. The owning process must terminate.
func WithTerminationHandler(fn func(pid uint64, reason error)) Option {
	return func(h *Heap) {
		h.onTerminate = fn
	}
}
