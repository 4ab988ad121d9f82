package mmap

import "errors"

// AccessPattern provides hints to the kernel about how the memory will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects the region to be scanned front to back.
	AccessSequential
	// AccessRandom expects random access.
	AccessRandom
	// AccessDontNeed lets the kernel drop the pages; they read back as zero.
	AccessDontNeed
)

var (
	// ErrClosed is returned when attempting to use a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for non-positive or unaligned sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
)

// WordSize is the size in bytes of one heap word.
const WordSize = 8
