package grading

import "errors"

// ErrMissingInput matches every *ValidationError via errors.Is.
var ErrMissingInput = errors.New("missing required input")

// ValidationError is returned before any network call when a required
// input is absent. Field names the missing input; the message is always
// "missing required input" so it can be shown to users verbatim.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return ErrMissingInput.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrMissingInput
}

// ServiceError wraps a failed or unusable generation call. Its message is
// the underlying error's message; Op records which operation failed.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
