package database

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
)

func TestMapPaymentInsertError(t *testing.T) {
	t.Parallel()

	t.Run("transaction ref collision is a duplicate", func(t *testing.T) {
		err := mapPaymentInsertError(&pq.Error{
			Code:       uniqueViolation,
			Constraint: paymentRefConstraint,
		})
		assert.ErrorIs(t, err, ledger.ErrDuplicateTransaction)
	})

	t.Run("receipt number collision retries instead of blaming the ref", func(t *testing.T) {
		err := mapPaymentInsertError(&pq.Error{
			Code:       uniqueViolation,
			Constraint: "payments_receipt_number_key",
		})
		assert.ErrorIs(t, err, ledger.ErrConflict)
		assert.NotErrorIs(t, err, ledger.ErrDuplicateTransaction)
	})

	t.Run("other failures pass through wrapped", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := mapPaymentInsertError(cause)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ledger.ErrDuplicateTransaction)
		assert.NotErrorIs(t, err, ledger.ErrConflict)
	})
}
