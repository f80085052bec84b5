// Package ice distinguishes internal compiler errors from user diagnostics.
// A user-facing problem goes through diag.Reporter; an Error from this
// package means an analysis invariant was broken and the compilation unit
// must be aborted, since continuing would generate unsound code.
package ice

import (
	"errors"
	"fmt"
)

type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return "internal compiler error: " + e.Msg
}

func Errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err carries an internal compiler error.
func Is(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
