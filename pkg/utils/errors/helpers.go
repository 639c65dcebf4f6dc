package errors

import (
	"context"
	stderrors "errors"
)

// FromError converts any error to Errno.
// An Errno anywhere in the chain is returned as is. Deadline errors map to
// ErrTimeout and everything else is wrapped as ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}

// Classify returns err unchanged when it already carries an Errno,
// otherwise wraps it as kind. A nil err stays nil.
func Classify(err error, kind *Errno) error {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return err
	}
	return kind.WithCause(err)
}

// IsCode checks if the error chain has an Errno with the given code.
func IsCode(err error, code int) bool {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the error code from an error.
// Returns -1 if the error is not an Errno.
func GetCode(err error) int {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code
	}
	return -1
}
