package api

import (
	"errors"
	"fmt"
)

// ErrOverload matches every OverloadError via errors.Is.
var ErrOverload = errors.New("attempted to overload function module")

// OverloadError is returned when composition would bind or merge into a
// name already holding a Func, or bind a Func over an occupied name.
type OverloadError struct {
	// Path is the location of the entry that triggered the overload.
	Path string
	// Existing is set when a Func was about to replace an existing binding.
	Existing bool
}

func (e *OverloadError) Error() string {
	if e.Existing {
		return fmt.Sprintf("%s %q with an existing module", ErrOverload, e.Path)
	}
	return fmt.Sprintf("%s %q", ErrOverload, e.Path)
}

// Is reports whether target is ErrOverload.
func (e *OverloadError) Is(target error) bool {
	return target == ErrOverload
}
