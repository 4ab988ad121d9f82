package term

import "math"

// Term is a tagged machine word.
type Term uint64

// Tag is the primary tag stored in the low four bits of a word.
type Tag uint8

const (
	// TagNone marks the non-value: an unset slot. Tracing skips it.
	TagNone Tag = 0x0
	// TagSmall is a signed 60-bit integer.
	TagSmall Tag = 0x1
	// TagAtom is an index into the atom table.
	TagAtom Tag = 0x2
	// TagNil is the empty list.
	TagNil Tag = 0x3
	// TagPid is a process identifier.
	TagPid Tag = 0x4
	// TagRef is a local reference.
	TagRef Tag = 0x5
	// TagBool is true or false.
	TagBool Tag = 0x6
	// TagBoxed points to an object in the owning process heap.
	TagBoxed Tag = 0x7
	// TagLiteral points to an object in the shared literal area.
	TagLiteral Tag = 0x8
	// TagHeader is the first word of every heap object.
	TagHeader Tag = 0x9
	// TagForward replaces a header while a collection is relocating the object.
	TagForward Tag = 0xA
)

const (
	tagBits  = 4
	tagMask  = 1<<tagBits - 1
	kindBits = 4
	kindMask = 1<<kindBits - 1
	ptrShift = tagBits + kindBits

	payloadBits = 64 - tagBits
)

const (
	// MaxSmall is the largest integer representable as an immediate.
	MaxSmall = 1<<(payloadBits-1) - 1
	// MinSmall is the smallest integer representable as an immediate.
	MinSmall = -(1 << (payloadBits - 1))
	// MaxImmediatePayload bounds atom indexes, pids and references.
	MaxImmediatePayload = 1<<payloadBits - 1
)

const (
	// None is the non-value.
	None Term = Term(TagNone)
	// Nil is the empty list.
	Nil Term = Term(TagNil)
	// False is the boolean false.
	False Term = Term(TagBool)
	// True is the boolean true.
	True Term = Term(1<<tagBits | uint64(TagBool))
)

// Tag returns the primary tag.
func (t Term) Tag() Tag {
	return Tag(t & tagMask)
}

// IsNone reports whether t is the non-value.
func (t Term) IsNone() bool {
	return t == None
}

// IsImmediate reports whether t carries its whole value in the word.
func (t Term) IsImmediate() bool {
	switch t.Tag() {
	case TagSmall, TagAtom, TagNil, TagPid, TagRef, TagBool:
		return true
	}
	return false
}

// IsBoxed reports whether t points into a process heap.
func (t Term) IsBoxed() bool {
	return t.Tag() == TagBoxed
}

// IsLiteral reports whether t points into the literal area.
func (t Term) IsLiteral() bool {
	return t.Tag() == TagLiteral
}

// IsPointer reports whether t references an object (heap or literal).
func (t Term) IsPointer() bool {
	tag := t.Tag()
	return tag == TagBoxed || tag == TagLiteral
}

func immediate(tag Tag, payload uint64) Term {
	return Term(payload<<tagBits | uint64(tag))
}

func (t Term) payload() uint64 {
	return uint64(t) >> tagBits
}

// SmallInt encodes v as an immediate. ok is false if v needs a bignum.
func SmallInt(v int64) (Term, bool) {
	if v < MinSmall || v > MaxSmall {
		return None, false
	}
	return Term(uint64(v)<<tagBits | uint64(TagSmall)), true
}

// MustSmallInt is SmallInt that panics when v is out of range.
func MustSmallInt(v int64) Term {
	t, ok := SmallInt(v)
	if !ok {
		panic("term: small integer out of range")
	}
	return t
}

// SmallValue returns the value of a small integer.
func (t Term) SmallValue() int64 {
	return int64(t) >> tagBits
}

// IsSmall reports whether t is a small integer.
func (t Term) IsSmall() bool {
	return t.Tag() == TagSmall
}

// Atom returns the atom with the given table index.
func Atom(index uint32) Term {
	return immediate(TagAtom, uint64(index))
}

// AtomIndex returns the atom table index of t.
func (t Term) AtomIndex() uint32 {
	return uint32(t.payload())
}

// Pid returns a process identifier term.
func Pid(id uint64) Term {
	return immediate(TagPid, id&MaxImmediatePayload)
}

// PidValue returns the process id carried by t.
func (t Term) PidValue() uint64 {
	return t.payload()
}

// Ref returns a local reference term.
func Ref(n uint64) Term {
	return immediate(TagRef, n&MaxImmediatePayload)
}

// RefValue returns the reference number carried by t.
func (t Term) RefValue() uint64 {
	return t.payload()
}

// Bool returns True or False.
func Bool(b bool) Term {
	if b {
		return True
	}
	return False
}

// BoolValue returns the boolean carried by t.
func (t Term) BoolValue() bool {
	return t == True
}

// Address locates a word inside a process heap: a space id and a word offset.
type Address uint64

const (
	offsetBits = 32
	spaceBits  = 64 - ptrShift - offsetBits

	// MaxSpace is the largest space id an address can carry.
	MaxSpace = 1<<spaceBits - 1
	// MaxOffset is the largest word offset an address can carry.
	MaxOffset = math.MaxUint32
)

// MakeAddress combines a space id and a word offset.
func MakeAddress(space uint32, offset int) Address {
	if uint64(space) > MaxSpace || offset < 0 || uint64(offset) > MaxOffset {
		panic("term: address out of range")
	}
	return Address(uint64(space)<<offsetBits | uint64(offset))
}

// Space returns the space id.
func (a Address) Space() uint32 {
	return uint32(uint64(a) >> offsetBits)
}

// Offset returns the word offset within the space.
func (a Address) Offset() int {
	return int(uint64(a) & MaxOffset)
}

// Add returns the address n words further into the same space.
func (a Address) Add(n int) Address {
	return MakeAddress(a.Space(), a.Offset()+n)
}

// Boxed returns a pointer term to an object of the given kind.
func Boxed(kind Kind, addr Address) Term {
	return Term(uint64(addr)<<ptrShift | uint64(kind)<<tagBits | uint64(TagBoxed))
}

// Literal returns a pointer term to a literal-area object.
func Literal(kind Kind, offset int) Term {
	return Term(uint64(offset)<<ptrShift | uint64(kind)<<tagBits | uint64(TagLiteral))
}

// Kind returns the object kind of a boxed or literal term.
func (t Term) Kind() Kind {
	if !t.IsPointer() {
		return KindNone
	}
	return Kind(uint64(t) >> tagBits & kindMask)
}

// Address returns the heap address of a boxed term.
func (t Term) Address() Address {
	return Address(uint64(t) >> ptrShift)
}

// LiteralOffset returns the literal-area word offset of a literal term.
func (t Term) LiteralOffset() int {
	return int(uint64(t) >> ptrShift)
}

// Retarget returns t pointing at addr, keeping its kind.
func (t Term) Retarget(addr Address) Term {
	return Boxed(t.Kind(), addr)
}

// Validate checks that t is a well-formed term value. Header and forwarding
// words are not values.
func (t Term) Validate() error {
	switch t.Tag() {
	case TagNone, TagSmall, TagAtom, TagNil, TagPid, TagRef:
		return nil
	case TagBool:
		if t != True && t != False {
			return layoutError(t, "bad boolean")
		}
		return nil
	case TagBoxed, TagLiteral:
		if !t.Kind().Valid() {
			return layoutError(t, "bad object kind")
		}
		return nil
	case TagHeader:
		return layoutError(t, "header used as value")
	case TagForward:
		return layoutError(t, "forwarding word outside collection")
	}
	return layoutError(t, "unknown tag")
}
