package sqlqueue

import (
	"github.com/pkg/errors"
)

// ExecutionError is returned when the backend fails to run a statement. Its
// message is the backend's own error text.
type ExecutionError struct {
	// Code is a backend specific classification, empty when unknown.
	Code  string
	Msg   string
	cause error
}

// NewExecutionError returns an ExecutionError annotated with a stack trace.
func NewExecutionError(code, msg string) error {
	return errors.WithStack(&ExecutionError{Code: code, Msg: msg})
}

// WrapExecutionError converts a backend error into an ExecutionError that
// keeps err as its cause. A nil err returns nil.
func WrapExecutionError(err error, code string) error {
	if err == nil {
		return nil
	}
	if AsExecutionError(err) != nil {
		return err
	}
	return errors.WithStack(&ExecutionError{Code: code, Msg: err.Error(), cause: err})
}

func (e *ExecutionError) Error() string {
	return e.Msg
}

func (e *ExecutionError) Unwrap() error {
	return e.cause
}

func (e *ExecutionError) Cause() error {
	return e.cause
}

// AsExecutionError returns the ExecutionError in err's chain, or nil.
func AsExecutionError(err error) *ExecutionError {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee
	}
	return nil
}
