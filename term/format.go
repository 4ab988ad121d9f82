package term

import (
	"fmt"
	"strconv"
)

// String renders a word for debugging. Pointer terms show their target, not
// the object contents.
func (t Term) String() string {
	switch t.Tag() {
	case TagNone:
		return "#none"
	case TagSmall:
		return strconv.FormatInt(t.SmallValue(), 10)
	case TagAtom:
		return fmt.Sprintf("#atom<%d>", t.AtomIndex())
	case TagNil:
		return "[]"
	case TagPid:
		return fmt.Sprintf("<0.%d.0>", t.PidValue())
	case TagRef:
		return fmt.Sprintf("#Ref<%d>", t.RefValue())
	case TagBool:
		return strconv.FormatBool(t.BoolValue())
	case TagBoxed:
		a := t.Address()
		return fmt.Sprintf("#%s@%d:%d", t.Kind(), a.Space(), a.Offset())
	case TagLiteral:
		return fmt.Sprintf("#%s@literal:%d", t.Kind(), t.LiteralOffset())
	case TagHeader:
		return fmt.Sprintf("#header<%s size=%d age=%d>", t.HeaderKind(), t.HeaderSize(), t.HeaderAge())
	case TagForward:
		a := t.ForwardAddress()
		return fmt.Sprintf("#forward->%d:%d", a.Space(), a.Offset())
	}
	return fmt.Sprintf("#invalid<%#x>", uint64(t))
}
