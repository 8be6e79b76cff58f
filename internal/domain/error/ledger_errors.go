// Package error defines domain-specific errors for the property ledger.
package error

import "errors"

// Ledger domain errors.
var (
	// ErrEntryNotFound is returned when a ledger entry is not found.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrEntryNotAccepted is returned when balance maintenance runs on an entry that is not accepted.
	ErrEntryNotAccepted = errors.New("ledger entry is not accepted")

	// ErrEntryNotPending is returned when accepting an entry that is no longer pending.
	ErrEntryNotPending = errors.New("ledger entry is not pending")

	// ErrInvalidEntryKind is returned when the entry kind is unknown.
	ErrInvalidEntryKind = errors.New("invalid ledger entry kind")

	// ErrInvalidAmount is returned when an entry amount is zero or malformed.
	ErrInvalidAmount = errors.New("invalid ledger entry amount")

	// ErrInvalidEntryDate is returned when a ledger or accounting date is missing.
	ErrInvalidEntryDate = errors.New("invalid ledger entry date")

	// ErrDescriptionTooLong is returned when an entry description exceeds the maximum length.
	ErrDescriptionTooLong = errors.New("ledger entry description too long")

	// ErrParentNotFound is returned when the referenced parent entry does not exist.
	ErrParentNotFound = errors.New("parent ledger entry not found")

	// ErrParentNotAccepted is returned when accepting a split whose parent is still pending.
	ErrParentNotAccepted = errors.New("parent ledger entry is not accepted")

	// ErrBalanceOrdering is returned when neighbouring accepted entries cannot be
	// found consistently in sequence order.
	ErrBalanceOrdering = errors.New("balance ordering violation")

	// ErrBalanceDrift is returned when a stored balance disagrees with its predecessor.
	ErrBalanceDrift = errors.New("stored balance drifted from running sum")

	// ErrLockNotObtained is returned when the per-property lock could not be acquired.
	ErrLockNotObtained = errors.New("could not obtain property lock")
)

// LedgerErrorCode defines error codes for ledger errors.
// Format: LDG-XXYYYY where XX is category and YYYY is specific error.
type LedgerErrorCode string

const (
	// Validation errors (01XXXX)
	ErrCodeInvalidEntryKind LedgerErrorCode = "LDG-010001"
	ErrCodeInvalidAmount    LedgerErrorCode = "LDG-010002"
	ErrCodeInvalidEntryDate LedgerErrorCode = "LDG-010003"
	ErrCodeEntryNotFound    LedgerErrorCode = "LDG-010004"
	ErrCodeParentNotFound   LedgerErrorCode = "LDG-010005"
	ErrCodeDescriptionLong  LedgerErrorCode = "LDG-010006"

	// State errors (02XXXX)
	ErrCodeEntryNotPending   LedgerErrorCode = "LDG-020001"
	ErrCodeEntryNotAccepted  LedgerErrorCode = "LDG-020002"
	ErrCodeParentNotAccepted LedgerErrorCode = "LDG-020003"

	// Consistency errors (03XXXX)
	ErrCodeBalanceOrdering LedgerErrorCode = "LDG-030001"
	ErrCodeBalanceDrift    LedgerErrorCode = "LDG-030002"
	ErrCodeLockNotObtained LedgerErrorCode = "LDG-030003"

	// Internal errors (99XXXX)
	ErrCodeLedgerInternalError LedgerErrorCode = "LDG-990001"
)

// LedgerError represents a ledger error with code and message.
type LedgerError struct {
	Code    LedgerErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError with the given code and message.
func NewLedgerError(code LedgerErrorCode, message string, err error) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
