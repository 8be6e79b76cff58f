// Package error defines domain-specific errors for the property ledger.
package error

import "errors"

// Rollup domain errors.
var (
	// ErrInvalidStatisticKind is returned when the statistic kind is unknown.
	ErrInvalidStatisticKind = errors.New("invalid statistic kind")

	// ErrInvalidBucket is returned when a month is given without a year, or a value is out of range.
	ErrInvalidBucket = errors.New("invalid rollup bucket")
)

// RollupErrorCode defines error codes for rollup errors.
// Format: RLP-XXYYYY where XX is category and YYYY is specific error.
type RollupErrorCode string

const (
	// Validation errors (01XXXX)
	ErrCodeInvalidStatisticKind RollupErrorCode = "RLP-010001"
	ErrCodeInvalidBucket        RollupErrorCode = "RLP-010002"

	// Internal errors (99XXXX)
	ErrCodeRollupInternalError RollupErrorCode = "RLP-990001"
)

// RollupError represents a rollup error with code and message.
type RollupError struct {
	Code    RollupErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RollupError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *RollupError) Unwrap() error {
	return e.Err
}

// NewRollupError creates a new RollupError with the given code and message.
func NewRollupError(code RollupErrorCode, message string, err error) *RollupError {
	return &RollupError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
