package mmap

import (
	"sync/atomic"
	"unsafe"
)

// Mapping is an anonymous read-write memory region.
// It owns the underlying memory and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	// unmap is the platform-specific function to release the region.
	unmap func([]byte) error
}

// MapAnon maps size bytes of zeroed anonymous memory.
// size must be a positive multiple of WordSize.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 || size%WordSize != 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Mapping{data: data, unmap: unmapFunc}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		err := m.unmap(m.data)
		m.data = nil
		return err
	}
	return nil
}

// Bytes returns the underlying byte slice, or nil after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Words returns the region viewed as 64-bit words, or nil after Close.
// The slice is valid only until Close is called.
func (m *Mapping) Words() []uint64 {
	if m.closed.Load() || len(m.data) == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&m.data[0])), len(m.data)/WordSize) //nolint:gosec // region is page aligned
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return len(m.data)
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}
