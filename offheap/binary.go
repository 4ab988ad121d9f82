package offheap

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrRefcountUnderflow is the panic value raised when a binary is released
	// more often than it was retained.
	ErrRefcountUnderflow = errors.New("offheap: reference count underflow")
	// ErrUnknownHandle is returned when a handle does not name a live binary.
	ErrUnknownHandle = errors.New("offheap: unknown handle")
	// ErrLiveBinaries is returned by Close when unpinned binaries are still referenced.
	ErrLiveBinaries = errors.New("offheap: live binaries at close")
)

// Handle identifies a binary within its registry. Zero is never issued.
type Handle uint64

// Binary is an immutable byte string with an atomic reference count.
type Binary struct {
	handle Handle
	data   []byte
	refs   atomic.Int64
	pinned bool
	reg    *Registry
}

// Handle returns the registry handle.
func (b *Binary) Handle() Handle {
	return b.handle
}

// Bytes returns the contents. Callers must not modify the slice.
func (b *Binary) Bytes() []byte {
	return b.data
}

// Len returns the length in bytes.
func (b *Binary) Len() int {
	return len(b.data)
}

// Refs returns the current reference count.
func (b *Binary) Refs() int64 {
	return b.refs.Load()
}

// Pinned reports whether the binary is exempt from release at zero.
func (b *Binary) Pinned() bool {
	return b.pinned
}

// Retain adds a reference.
func (b *Binary) Retain() {
	b.refs.Add(1)
}

// Release drops a reference and frees the binary when none remain.
// Releasing below zero is a programming error and panics.
func (b *Binary) Release() {
	n := b.refs.Add(-1)
	if n < 0 {
		panic(fmt.Errorf("%w: handle %d", ErrRefcountUnderflow, b.handle))
	}
	if n == 0 && !b.pinned {
		b.reg.remove(b)
	}
}

// Stats is a snapshot of registry usage.
type Stats struct {
	Live      int
	LiveBytes int64
	Created   uint64
	Freed     uint64
}

// Registry owns every off-heap binary of one runtime.
type Registry struct {
	mu     sync.RWMutex
	next   Handle
	bins   map[Handle]*Binary
	closed bool

	liveBytes atomic.Int64
	created   atomic.Uint64
	freed     atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bins: make(map[Handle]*Binary)}
}

// New stores a copy of data and returns it with one reference owned by the caller.
func (r *Registry) New(data []byte) *Binary {
	return r.add(data, false)
}

// NewPinned stores a copy of data as a pinned binary.
func (r *Registry) NewPinned(data []byte) *Binary {
	return r.add(data, true)
}

func (r *Registry) add(data []byte, pinned bool) *Binary {
	b := &Binary{
		data:   append([]byte(nil), data...),
		pinned: pinned,
		reg:    r,
	}
	b.refs.Store(1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		panic("offheap: registry closed")
	}
	r.next++
	b.handle = r.next
	r.bins[b.handle] = b
	r.mu.Unlock()

	r.liveBytes.Add(int64(len(b.data)))
	r.created.Add(1)
	return b
}

func (r *Registry) remove(b *Binary) {
	r.mu.Lock()
	_, ok := r.bins[b.handle]
	delete(r.bins, b.handle)
	r.mu.Unlock()

	if ok {
		r.liveBytes.Add(-int64(len(b.data)))
		r.freed.Add(1)
	}
}

// Lookup returns the binary for h.
func (r *Registry) Lookup(h Handle) (*Binary, error) {
	r.mu.RLock()
	b, ok := r.bins[h]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return b, nil
}

// MustLookup is Lookup for handles held by live heap objects; a miss is an
// invariant violation.
func (r *Registry) MustLookup(h Handle) *Binary {
	b, err := r.Lookup(h)
	if err != nil {
		panic(err)
	}
	return b
}

// Stats returns a snapshot of registry usage.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	live := len(r.bins)
	r.mu.RUnlock()
	return Stats{
		Live:      live,
		LiveBytes: r.liveBytes.Load(),
		Created:   r.created.Load(),
		Freed:     r.freed.Load(),
	}
}

// Close drops every binary. It reports ErrLiveBinaries if unpinned binaries
// were still referenced; they are dropped regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	live := 0
	for _, b := range r.bins {
		if !b.pinned && b.refs.Load() > 0 {
			live++
		}
	}
	clear(r.bins)
	r.liveBytes.Store(0)

	if live > 0 {
		return fmt.Errorf("%w: %d", ErrLiveBinaries, live)
	}
	return nil
}
