package manager

import "errors"

var (
	ErrPrecondition      = errors.New("precondition failed")
	ErrRemoteWrite       = errors.New("remote write rejected")
	ErrParse             = errors.New("parse error")
	ErrRollback          = errors.New("rollback failed")
	ErrNothingToRollback = errors.New("nothing to rollback")
)

// OpError wraps a sentinel error with a specific code and message for
// the console to present.
type OpError struct {
	Err     error
	Code    string
	Message string
}

func (e *OpError) Error() string { return e.Message }
func (e *OpError) Unwrap() error { return e.Err }

// NewError creates an OpError wrapping the given sentinel.
func NewError(sentinel error, code, message string) *OpError {
	return &OpError{Err: sentinel, Code: code, Message: message}
}

// Convenience constructors for common error types.

func Precondition(code, message string) *OpError {
	return NewError(ErrPrecondition, code, message)
}

func ParseFailure(code, message string) *OpError {
	return NewError(ErrParse, code, message)
}

func RollbackFailure(code, message string) *OpError {
	return NewError(ErrRollback, code, message)
}
