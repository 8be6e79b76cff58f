// Package error defines domain-specific errors for the property ledger.
package error

import "errors"

// Reconciliation domain errors.
var (
	// ErrReconciliationFailed is returned when a reconciliation run stops partway.
	// The rollups may be incomplete until reconciliation is run again.
	ErrReconciliationFailed = errors.New("reconciliation failed")
)

// ReconciliationErrorCode defines error codes for reconciliation errors.
type ReconciliationErrorCode string

const (
	ErrCodeReconciliationClear  ReconciliationErrorCode = "REC-020001"
	ErrCodeReconciliationSource ReconciliationErrorCode = "REC-020002"
	ErrCodeReconciliationWrite  ReconciliationErrorCode = "REC-020003"
)

// ReconciliationError represents a reconciliation failure with code and message.
type ReconciliationError struct {
	Code    ReconciliationErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ReconciliationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Is reports ErrReconciliationFailed for every reconciliation error.
func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliationFailed
}

// NewReconciliationError creates a new ReconciliationError with the given code and message.
func NewReconciliationError(code ReconciliationErrorCode, message string, err error) *ReconciliationError {
	return &ReconciliationError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
