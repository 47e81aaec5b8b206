package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a payment within the balance", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000, 200000)
		require.NoError(t, Validate(l, 600000))
	})

	t.Run("rejects when nothing is outstanding", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000)
		l.AmountPaid = 500000
		l.Balance = 0

		err := Validate(l, 1000)
		var v *ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, CodeNoOutstandingBalance, v.Code)
	})

	t.Run("rejects zero and negative amounts", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000)

		for _, amount := range []int64{0, -1, -500000} {
			err := Validate(l, amount)
			var v *ValidationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, CodeInvalidAmount, v.Code)
		}
	})

	t.Run("rejects amounts above the balance", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000, 200000)

		err := Validate(l, 1000001)
		var v *ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, CodeAmountExceedsBalance, v.Code)
		assert.Equal(t, int64(1000001), v.Requested)
		assert.Equal(t, int64(1000000), v.Available)
	})

	t.Run("rejects when the first open installment is locked", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000)
		l.Installments[0].IsUnlocked = false

		err := Validate(l, 1000)
		var v *ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, CodeInstallmentLocked, v.Code)
		assert.Equal(t, "First Installment", v.InstallmentName)
	})

	t.Run("checks the first open installment, not completed ones", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000)
		l.Installments[0].AmountPaid = 500000
		l.Installments[0].Status = models.InstallmentCompleted
		l.Installments[1].IsUnlocked = true
		l.AmountPaid = 500000
		l.Balance = 300000

		require.NoError(t, Validate(l, 100000))
	})

	t.Run("category-only ledgers skip the lock check", func(t *testing.T) {
		l := newCategoryLedger(t, 700000, 300000)
		require.NoError(t, Validate(l, 100000))
	})
}
