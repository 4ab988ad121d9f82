package term

// Layout describes the shape of one heap object.
type Layout struct {
	Kind Kind
	// Size is the raw header size field.
	Size uint64
	// Words is the total object size including the header.
	Words int
	// FirstChild is the word index of the first child term slot.
	FirstChild int
	// Children is the number of consecutive child term slots.
	Children int
}

// ChildSlots returns the half-open range of word indexes holding child terms.
func (l Layout) ChildSlots() (from, to int) {
	return l.FirstChild, l.FirstChild + l.Children
}

// WordSize is the number of bytes in one word.
const WordSize = 8

// WordsForBytes rounds a byte length up to whole words.
func WordsForBytes(n int) int {
	return (n + 7) / 8
}

// ObjectWords returns the size in words, header included, of an object of
// the given kind with the given size field.
func ObjectWords(kind Kind, size uint64) int {
	switch kind {
	case KindCons:
		return 3
	case KindTuple:
		return 1 + int(size)
	case KindMap:
		return 1 + 2*int(size)
	case KindFloat:
		return 2
	case KindBigInt:
		return 1 + BigIntLimbs(size)
	case KindBinary:
		return 1 + WordsForBytes(int(size))
	case KindSubBinary:
		return 3
	case KindRefcBinary:
		return 2
	case KindClosure:
		return 2 + int(size)
	}
	return 0
}

// LayoutOf decodes the layout of the object starting with header.
func LayoutOf(header Term) (Layout, error) {
	if !header.IsHeader() {
		return Layout{}, layoutError(header, "expected object header")
	}

	kind := header.HeaderKind()
	size := header.HeaderSize()
	l := Layout{Kind: kind, Size: size, Words: ObjectWords(kind, size)}

	switch kind {
	case KindCons:
		if size != 2 {
			return Layout{}, layoutError(header, "cons cell size must be 2")
		}
		l.FirstChild, l.Children = 1, 2
	case KindTuple:
		l.FirstChild, l.Children = 1, int(size)
	case KindMap:
		l.FirstChild, l.Children = 1, 2*int(size)
	case KindFloat:
		if size != 1 {
			return Layout{}, layoutError(header, "float size must be 1")
		}
	case KindBigInt, KindBinary:
		// Raw data only.
	case KindSubBinary:
		l.FirstChild, l.Children = 1, 1
	case KindRefcBinary:
		if size != 1 {
			return Layout{}, layoutError(header, "refc binary size must be 1")
		}
	case KindClosure:
		l.FirstChild, l.Children = 2, int(size)
	default:
		return Layout{}, layoutError(header, "unknown object kind")
	}
	return l, nil
}

// MustLayout is LayoutOf for callers that treat a malformed header as an
// invariant violation. It panics with a *LayoutError.
func MustLayout(header Term) Layout {
	l, err := LayoutOf(header)
	if err != nil {
		panic(err)
	}
	return l
}
