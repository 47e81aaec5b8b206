package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

func storeWithLedger(t *testing.T, deadline time.Time) (*ledger.MemoryStore, *models.StudentLedger) {
	t.Helper()

	l := &models.StudentLedger{
		ID:            uuid.NewString(),
		StudentID:     uuid.NewString(),
		SchoolID:      uuid.NewString(),
		TotalFees:     500000,
		Balance:       500000,
		PaymentStatus: models.LedgerNoPayment,
		Version:       1,
		Installments: []*models.Installment{{
			ID:         uuid.NewString(),
			Order:      1,
			Name:       "First Installment",
			AmountDue:  500000,
			Status:     models.InstallmentNotStarted,
			Deadline:   deadline,
			IsUnlocked: true,
		}},
	}

	store := ledger.NewMemoryStore()
	require.NoError(t, store.CreateLedger(context.Background(), l))
	return store, l
}

func TestRunOverdueSweep(t *testing.T) {
	t.Parallel()

	t.Run("flags ledgers with missed deadlines", func(t *testing.T) {
		store, l := storeWithLedger(t, time.Now().UTC().AddDate(0, 0, -7))

		require.NoError(t, RunOverdueSweep(context.Background(), store, nil))

		updated, err := store.GetLedger(context.Background(), l.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InstallmentOverdue, updated.Installments[0].Status)
		assert.Equal(t, models.LedgerOverdue, updated.PaymentStatus)
	})

	t.Run("leaves future deadlines alone", func(t *testing.T) {
		store, l := storeWithLedger(t, time.Now().UTC().AddDate(0, 0, 7))

		require.NoError(t, RunOverdueSweep(context.Background(), store, nil))

		updated, err := store.GetLedger(context.Background(), l.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InstallmentNotStarted, updated.Installments[0].Status)
		assert.Equal(t, models.LedgerNoPayment, updated.PaymentStatus)
		assert.Equal(t, int64(1), updated.Version, "no write when nothing changed")
	})

	t.Run("is idempotent", func(t *testing.T) {
		store, l := storeWithLedger(t, time.Now().UTC().AddDate(0, 0, -7))

		require.NoError(t, RunOverdueSweep(context.Background(), store, nil))
		first, err := store.GetLedger(context.Background(), l.ID)
		require.NoError(t, err)

		require.NoError(t, RunOverdueSweep(context.Background(), store, nil))
		second, err := store.GetLedger(context.Background(), l.ID)
		require.NoError(t, err)

		assert.Equal(t, first.Version, second.Version, "second sweep must not rewrite the ledger")
	})
}
