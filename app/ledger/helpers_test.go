package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// newInstallmentLedger builds a ledger with installments due the given
// amounts, ordered as passed, first installment unlocked.
func newInstallmentLedger(t *testing.T, amounts ...int64) *models.StudentLedger {
	t.Helper()

	l := &models.StudentLedger{
		ID:            uuid.NewString(),
		StudentID:     uuid.NewString(),
		SchoolID:      uuid.NewString(),
		PaymentStatus: models.LedgerNoPayment,
		Version:       1,
	}

	deadline := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, due := range amounts {
		l.Installments = append(l.Installments, &models.Installment{
			ID:         uuid.NewString(),
			LedgerID:   l.ID,
			Order:      i + 1,
			Name:       []string{"First Installment", "Second Installment", "Third Installment", "Fourth Installment"}[i],
			AmountDue:  due,
			Status:     models.InstallmentNotStarted,
			Deadline:   deadline.AddDate(0, 2*i, 0),
			IsUnlocked: i == 0,
		})
		l.TotalFees += due
	}
	l.Balance = l.TotalFees
	return l
}

// newCategoryLedger builds a ledger with categories outstanding the given
// amounts. Priority follows the order passed; ids are fixed ("cat-1"...) so
// tie-breaks are deterministic in tests.
func newCategoryLedger(t *testing.T, amounts ...int64) *models.StudentLedger {
	t.Helper()

	l := &models.StudentLedger{
		ID:            uuid.NewString(),
		StudentID:     uuid.NewString(),
		SchoolID:      uuid.NewString(),
		PaymentStatus: models.LedgerNoPayment,
		Version:       1,
	}

	names := []string{"Tuition", "Boarding", "Exam Fees", "Uniform"}
	for i, due := range amounts {
		l.Categories = append(l.Categories, &models.FeeCategory{
			ID:        []string{"cat-1", "cat-2", "cat-3", "cat-4"}[i],
			LedgerID:  l.ID,
			Name:      names[i],
			Priority:  i + 1,
			AmountDue: due,
			Status:    models.CategoryUnpaid,
		})
		l.TotalFees += due
	}
	l.Balance = l.TotalFees
	return l
}

// requireInvariants asserts the interlocking numeric invariants that must
// hold after every committed mutation.
func requireInvariants(t *testing.T, l *models.StudentLedger) {
	t.Helper()

	require.Equal(t, l.TotalFees-l.AmountPaid, l.Balance, "balance must equal totalFees - amountPaid")
	require.GreaterOrEqual(t, l.Balance, int64(0), "balance must never go negative")

	if len(l.Installments) > 0 {
		var paid int64
		for _, inst := range l.Installments {
			paid += inst.AmountPaid
		}
		require.Equal(t, l.AmountPaid, paid, "installment paid amounts must sum to ledger amountPaid")
	}

	if len(l.Categories) > 0 {
		var paid int64
		for _, cat := range l.Categories {
			paid += cat.AmountPaid
		}
		require.Equal(t, l.AmountPaid, paid, "category paid amounts must sum to ledger amountPaid")
	}
}

// requireUnlockOrdering asserts an installment is unlocked only when it is
// first or its predecessor completed. Not part of requireInvariants because a
// reversal legitimately leaves a successor unlocked behind an incomplete
// predecessor (unlock is one-way).
func requireUnlockOrdering(t *testing.T, l *models.StudentLedger) {
	t.Helper()

	ordered := l.InstallmentsInOrder()
	for i := 1; i < len(ordered); i++ {
		if ordered[i].IsUnlocked {
			require.True(t, ordered[i-1].IsCompleted(),
				"installment %d unlocked before %d completed", ordered[i].Order, ordered[i-1].Order)
		}
	}
}
