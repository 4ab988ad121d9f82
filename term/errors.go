package term

import (
	"errors"
	"fmt"
)

// ErrInvalidTermLayout is returned (or wrapped) when a malformed tag or header
// is found where a well-formed term was required.
var ErrInvalidTermLayout = errors.New("invalid term layout")

// LayoutError describes a malformed word.
//
// The sentinel can be matched with errors.Is(err, ErrInvalidTermLayout).
type LayoutError struct {
	Word   Term
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("invalid term layout: %s (word %#016x)", e.Reason, uint64(e.Word))
}

func (e *LayoutError) Unwrap() error { return ErrInvalidTermLayout }

func layoutError(w Term, reason string) *LayoutError {
	return &LayoutError{Word: w, Reason: reason}
}
