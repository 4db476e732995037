package registry

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrEmptyID        = errors.New("action id is empty")
	ErrTargetRequired = errors.New("action requires a target")
)

// UnknownActionError is returned when dispatching an id that was never registered.
type UnknownActionError struct {
	ID string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.ID)
}

func (e *UnknownActionError) Is(target error) bool {
	return target == ErrUnknownAction
}

// DuplicateActionError is returned by New when two entries share an id.
type DuplicateActionError struct {
	ID string
}

func (e *DuplicateActionError) Error() string {
	return fmt.Sprintf("duplicate action %q", e.ID)
}
