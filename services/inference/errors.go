package inference

import (
	"errors"
	"fmt"
)

// Error is returned by every gateway operation when the provider is
// unreachable, times out, answers with an error status or returns a payload
// without the expected fields.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *Error
	if errors.As(err, &ie) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsError reports whether err is or wraps an inference Error.
func IsError(err error) bool {
	var ie *Error
	return errors.As(err, &ie)
}
