package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the coordinator and stores.
var (
	// ErrConflict means the ledger changed underneath a read-modify-write and
	// the bounded retries were exhausted. Callers should re-submit.
	ErrConflict = errors.New("ledger modified concurrently, please retry")

	// ErrNotFound means the student, ledger or payment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTransaction means a payment with the same transaction
	// reference was already recorded for this school.
	ErrDuplicateTransaction = errors.New("transaction reference already recorded")

	// ErrAlreadyReversed means the payment was reversed before.
	ErrAlreadyReversed = errors.New("payment already reversed")

	// ErrLedgerArchived means the ledger was archived at term rollover and no
	// longer accepts payments.
	ErrLedgerArchived = errors.New("ledger is archived")
)

// ValidationCode identifies which admissibility check rejected a payment.
type ValidationCode string

const (
	CodeNoOutstandingBalance ValidationCode = "no_outstanding_balance"
	CodeInvalidAmount        ValidationCode = "invalid_amount"
	CodeAmountExceedsBalance ValidationCode = "amount_exceeds_balance"
	CodeInstallmentLocked    ValidationCode = "installment_locked"
)

// ValidationError rejects a proposed payment before any write is attempted.
// Fully recoverable by the caller (e.g. ask for a smaller amount).
type ValidationError struct {
	Code            ValidationCode
	Requested       int64
	Available       int64
	InstallmentName string
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case CodeNoOutstandingBalance:
		return "student has no outstanding balance"
	case CodeInvalidAmount:
		return fmt.Sprintf("payment amount must be positive, got %d", e.Requested)
	case CodeAmountExceedsBalance:
		return fmt.Sprintf("payment of %d exceeds outstanding balance of %d", e.Requested, e.Available)
	case CodeInstallmentLocked:
		return fmt.Sprintf("installment %q is locked, previous installment must be completed first", e.InstallmentName)
	default:
		return "payment rejected"
	}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
