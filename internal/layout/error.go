package layout

import (
	"fmt"
	"strings"

	"quill/internal/types"
)

// ErrorKind enumerates types of layout calculation errors.
type ErrorKind uint8

const (
	// ErrRecursiveUnsized indicates a recursive type with no fixed size.
	ErrRecursiveUnsized ErrorKind = iota + 1
	// ErrUnresolvedSize indicates a type whose size depends on a generic
	// parameter that was never substituted. The resolver's precondition
	// rules this out; it surfaces only when that precondition is violated.
	ErrUnresolvedSize
)

// Error represents an error during memory layout calculation.
type Error struct {
	Kind  ErrorKind
	Type  types.TypeID
	Cycle []types.TypeID // for ErrRecursiveUnsized
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (type#%d)", e.Type)
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case ErrUnresolvedSize:
		return fmt.Sprintf("size of type#%d depends on an unsubstituted generic parameter", e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
