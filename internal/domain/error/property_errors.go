// Package error defines domain-specific errors for the property ledger.
package error

import "errors"

// Property domain errors.
var (
	// ErrPropertyNotFound is returned when a property is not found.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrNotPropertyOwner is returned when the user does not own the property.
	ErrNotPropertyOwner = errors.New("not authorized to access property")
)

// PropertyErrorCode defines error codes for property errors.
// Format: PRP-XXYYYY where XX is category and YYYY is specific error.
type PropertyErrorCode string

const (
	ErrCodePropertyNotFound PropertyErrorCode = "PRP-010001"
	ErrCodeNotPropertyOwner PropertyErrorCode = "PRP-020001"
)

// PropertyError represents a property error with code and message.
type PropertyError struct {
	Code    PropertyErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PropertyError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PropertyError) Unwrap() error {
	return e.Err
}

// NewPropertyError creates a new PropertyError with the given code and message.
func NewPropertyError(code PropertyErrorCode, message string, err error) *PropertyError {
	return &PropertyError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
