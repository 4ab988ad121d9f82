package term

const (
	ageShift  = ptrShift
	ageBits   = 8
	sizeShift = ageShift + ageBits

	// MaxAge is the largest age a header can record.
	MaxAge = 1<<ageBits - 1
	// MaxSize is the largest size field a header can record.
	MaxSize = 1<<(64-sizeShift) - 1

	// bigIntSignBit flags a negative bignum in the size field.
	bigIntSignBit = 1 << (64 - sizeShift - 1)
)

// MakeHeader returns a header word for an object of the given kind and size
// field. The meaning of size depends on the kind (see Layout).
func MakeHeader(kind Kind, size uint64) Term {
	if size > MaxSize {
		panic("term: header size out of range")
	}
	return Term(size<<sizeShift | uint64(kind)<<tagBits | uint64(TagHeader))
}

// IsHeader reports whether t is a header word.
func (t Term) IsHeader() bool {
	return t.Tag() == TagHeader
}

// HeaderKind returns the kind recorded in a header.
func (t Term) HeaderKind() Kind {
	return Kind(uint64(t) >> tagBits & kindMask)
}

// HeaderAge returns the number of minor collections the object survived.
func (t Term) HeaderAge() uint8 {
	return uint8(uint64(t) >> ageShift)
}

// HeaderSize returns the raw size field of a header.
func (t Term) HeaderSize() uint64 {
	return uint64(t) >> sizeShift
}

// WithAge returns the header with its age replaced. Ages saturate at MaxAge.
func (t Term) WithAge(age int) Term {
	if age > MaxAge {
		age = MaxAge
	}
	if age < 0 {
		age = 0
	}
	const ageMask = uint64(MaxAge) << ageShift
	return Term(uint64(t)&^ageMask | uint64(age)<<ageShift)
}

// Forward returns a forwarding word pointing at addr.
func Forward(addr Address) Term {
	return Term(uint64(addr)<<ptrShift | uint64(TagForward))
}

// IsForward reports whether t is a forwarding word.
func (t Term) IsForward() bool {
	return t.Tag() == TagForward
}

// ForwardAddress returns the destination recorded in a forwarding word.
func (t Term) ForwardAddress() Address {
	return Address(uint64(t) >> ptrShift)
}

// BigIntSize encodes a limb count and sign into a bignum size field.
func BigIntSize(limbs int, negative bool) uint64 {
	size := uint64(limbs)
	if negative {
		size |= bigIntSignBit
	}
	return size
}

// BigIntLimbs decodes the limb count of a bignum size field.
func BigIntLimbs(size uint64) int {
	return int(size &^ bigIntSignBit)
}

// BigIntNegative decodes the sign of a bignum size field.
func BigIntNegative(size uint64) bool {
	return size&bigIntSignBit != 0
}
