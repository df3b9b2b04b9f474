package sample

import (
	"errors"
	"fmt"
)

// Sentinel errors for sample validation. Stages wrap them with the field and
// stage involved, so callers match them with errors.Is.
var (
	// ErrInvalidSampleShape is returned when spatial fields disagree in height or width.
	ErrInvalidSampleShape = errors.New("invalid sample shape")

	// ErrUnsupportedMultiInstance is returned when a single-object operation receives a mask stack.
	ErrUnsupportedMultiInstance = errors.New("multiple object instances per sample are not supported")

	// ErrMissingRequiredField is returned when a stage's input field is absent.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrFieldKind is returned when a field has the wrong kind or layout for an operation.
	ErrFieldKind = errors.New("unexpected field kind")
)

// FieldError records which field caused a failure.
type FieldError struct {
	Field string
	Err   error
}

// Error returns the field name followed by the wrapped error.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

// Unwrap returns the wrapped error.
func (e *FieldError) Unwrap() error { return e.Err }

// Missing returns an ErrMissingRequiredField error for name.
func Missing(name string) error {
	return &FieldError{Field: name, Err: ErrMissingRequiredField}
}

// WrongKind returns an ErrFieldKind error for name describing what was expected.
func WrongKind(name string, f Field, want string) error {
	return &FieldError{Field: name, Err: fmt.Errorf("%w: have %s/%s, want %s", ErrFieldKind, f.Kind, f.Layout, want)}
}
