package ledger

import "github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"

// Validate runs the stateless admissibility checks for a proposed payment
// against a ledger snapshot. No side effects; the checks run in a fixed order
// so callers always see the same rejection for the same state.
func Validate(l *models.StudentLedger, amount int64) error {
	if l.Balance <= 0 {
		return &ValidationError{Code: CodeNoOutstandingBalance}
	}

	if amount <= 0 {
		return &ValidationError{Code: CodeInvalidAmount, Requested: amount}
	}

	if amount > l.Balance {
		return &ValidationError{
			Code:      CodeAmountExceedsBalance,
			Requested: amount,
			Available: l.Balance,
		}
	}

	// The first non-completed installment must be unlocked. Unlock propagation
	// keeps this true in normal operation; the check guards against a schedule
	// that was seeded wrong.
	for _, inst := range l.InstallmentsInOrder() {
		if inst.IsCompleted() {
			continue
		}
		if !inst.IsUnlocked {
			return &ValidationError{Code: CodeInstallmentLocked, InstallmentName: inst.Name}
		}
		break
	}

	return nil
}
