package trace

import (
	"sync"
)

// Recorder receives events. Implementations shared by several heaps must be
// safe for concurrent use.
type Recorder interface {
	Record(Event)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Event)

// Record implements Recorder.
func (f RecorderFunc) Record(e Event) { f(e) }

// Tee returns a Recorder forwarding every event to each of rs.
func Tee(rs ...Recorder) Recorder {
	return RecorderFunc(func(e Event) {
		for _, r := range rs {
			r.Record(e)
		}
	})
}

// RingSink keeps the most recent events in memory.
type RingSink struct {
	mu      sync.Mutex
	buf     []Event
	next    int
	full    bool
	dropped uint64
}

// NewRingSink creates a ring holding up to capacity events.
func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RingSink{buf: make([]Event, capacity)}
}

// Record implements Recorder. The oldest event is overwritten when full.
func (r *RingSink) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		r.dropped++
	}
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Events returns the retained events, oldest first.
func (r *RingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]Event(nil), r.buf[:r.next]...)
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Dropped returns the number of overwritten events.
func (r *RingSink) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Count returns the retained events of the given kind.
func (r *RingSink) Count(kind Kind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
