package negotiation

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a method is called out of order. The
// session is left untouched.
var ErrInvalidState = errors.New("invalid negotiation state")

// Error records which operation failed and in which state.
type Error struct {
	Op    string
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (state %s): %v", e.Op, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidState(op string, st State) *Error {
	return &Error{Op: op, State: st, Err: ErrInvalidState}
}
