package term

// Kind identifies the layout of a boxed object.
type Kind uint8

const (
	KindNone Kind = iota
	KindCons
	KindTuple
	KindMap
	KindFloat
	KindBigInt
	KindBinary
	KindSubBinary
	KindRefcBinary
	KindClosure

	kindCount
)

var kindNames = [...]string{
	KindNone:       "none",
	KindCons:       "cons",
	KindTuple:      "tuple",
	KindMap:        "map",
	KindFloat:      "float",
	KindBigInt:     "bigint",
	KindBinary:     "binary",
	KindSubBinary:  "sub_binary",
	KindRefcBinary: "refc_binary",
	KindClosure:    "closure",
}

// Valid reports whether k names an object layout.
func (k Kind) Valid() bool {
	return k > KindNone && k < kindCount
}

// IsBinary reports whether k is one of the binary kinds.
func (k Kind) IsBinary() bool {
	return k == KindBinary || k == KindSubBinary || k == KindRefcBinary
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}
