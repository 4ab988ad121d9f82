package trace

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Kind is the type of a recorded event.
type Kind uint8

const (
	// KindAlloc is a young-generation allocation of Words words.
	KindAlloc Kind = iota + 1
	// KindAllocLarge is a large-object allocation of Words words.
	KindAllocLarge
	// KindFree is a large object freed by a major collection.
	KindFree
	// KindMinorGC is a minor collection; Words is survived plus promoted.
	KindMinorGC
	// KindMajorGC is a major collection; Words is the live total.
	KindMajorGC
	// KindGrow is a young-generation resize to Words words per semispace.
	KindGrow
	// KindExhausted is an allocation of Words words that could not be served.
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindAlloc:
		return "alloc"
	case KindAllocLarge:
		return "alloc_large"
	case KindFree:
		return "free"
	case KindMinorGC:
		return "minor_gc"
	case KindMajorGC:
		return "major_gc"
	case KindGrow:
		return "grow"
	case KindExhausted:
		return "exhausted"
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// Event is one allocator or collector event. Words is the allocation size,
// the surviving or live words of a collection, or the new young capacity.
type Event struct {
	Kind      Kind
	PID       uint64
	Words     int64
	Timestamp time.Time
	CallSite  string
}

// ErrMalformedRecord is returned when a record cannot be decoded.
var ErrMalformedRecord = errors.New("trace: malformed record")

const (
	fieldKind      protowire.Number = 1
	fieldPID       protowire.Number = 2
	fieldWords     protowire.Number = 3
	fieldTimestamp protowire.Number = 4
	fieldCallSite  protowire.Number = 5
)

// Encode appends the protobuf-wire encoding of e to b.
func (e Event) Encode(b []byte) []byte {
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Kind))
	b = protowire.AppendTag(b, fieldPID, protowire.VarintType)
	b = protowire.AppendVarint(b, e.PID)
	b = protowire.AppendTag(b, fieldWords, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(e.Words))
	if !e.Timestamp.IsZero() {
		b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Timestamp.UnixNano()))
	}
	if e.CallSite != "" {
		b = protowire.AppendTag(b, fieldCallSite, protowire.BytesType)
		b = protowire.AppendString(b, e.CallSite)
	}
	return b
}

// Decode parses one record produced by Encode. Unknown fields are skipped.
func Decode(b []byte) (Event, error) {
	var e Event
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Event{}, fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldCallSite && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return Event{}, fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(n))
			}
			e.CallSite = s
			b = b[n:]
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Event{}, fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(n))
			}
			switch num {
			case fieldKind:
				e.Kind = Kind(v)
			case fieldPID:
				e.PID = v
			case fieldWords:
				e.Words = protowire.DecodeZigZag(v)
			case fieldTimestamp:
				e.Timestamp = time.Unix(0, int64(v))
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Event{}, fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}

// CallSite returns "file:line" of the caller skip frames above it.
func CallSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
