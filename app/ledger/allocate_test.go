package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

func TestAllocateInstallments(t *testing.T) {
	t.Parallel()

	t.Run("partial payment saturates earlier installments first", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000, 200000)

		res := AllocateInstallments(l, 600000)

		require.Len(t, res.Entries, 2)
		assert.False(t, res.OverAllocation)

		assert.Equal(t, l.Installments[0].ID, res.Entries[0].TargetID)
		assert.Equal(t, int64(500000), res.Entries[0].Amount)
		assert.True(t, res.Entries[0].Completed)

		assert.Equal(t, l.Installments[1].ID, res.Entries[1].TargetID)
		assert.Equal(t, int64(100000), res.Entries[1].Amount)
		assert.False(t, res.Entries[1].Completed)

		assert.Equal(t, int64(600000), res.Total())
	})

	t.Run("exact payment completes everything", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000, 200000)

		res := AllocateInstallments(l, 1000000)

		require.Len(t, res.Entries, 3)
		for _, e := range res.Entries {
			assert.True(t, e.Completed)
		}
		assert.Equal(t, int64(1000000), res.Total())
	})

	t.Run("skips completed installments", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000, 200000)
		l.Installments[0].AmountPaid = 500000
		l.Installments[0].Status = models.InstallmentCompleted

		res := AllocateInstallments(l, 350000)

		require.Len(t, res.Entries, 2)
		assert.Equal(t, l.Installments[1].ID, res.Entries[0].TargetID)
		assert.Equal(t, int64(300000), res.Entries[0].Amount)
		assert.Equal(t, l.Installments[2].ID, res.Entries[1].TargetID)
		assert.Equal(t, int64(50000), res.Entries[1].Amount)
	})

	t.Run("tops up a partially paid installment before the next", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000)
		l.Installments[0].AmountPaid = 400000
		l.Installments[0].Status = models.InstallmentInProgress

		res := AllocateInstallments(l, 150000)

		require.Len(t, res.Entries, 2)
		assert.Equal(t, int64(100000), res.Entries[0].Amount)
		assert.True(t, res.Entries[0].Completed)
		assert.Equal(t, int64(50000), res.Entries[1].Amount)
	})

	t.Run("flags over-allocation when sub-balances cannot absorb the amount", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000)

		res := AllocateInstallments(l, 600000)

		assert.True(t, res.OverAllocation)
		assert.Equal(t, int64(100000), res.Unapplied)
		assert.Equal(t, int64(500000), res.Total())
	})

	t.Run("walks installments by order, not slice position", func(t *testing.T) {
		l := newInstallmentLedger(t, 500000, 300000)
		l.Installments[0], l.Installments[1] = l.Installments[1], l.Installments[0]

		res := AllocateInstallments(l, 100000)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, "First Installment", res.Entries[0].TargetName)
	})
}

func TestPriorityStrategy(t *testing.T) {
	t.Parallel()

	t.Run("saturates categories in priority order", func(t *testing.T) {
		l := newCategoryLedger(t, 700000, 300000, 200000)

		res := PriorityStrategy{}.Allocate(l.Categories, 800000)

		require.Len(t, res.Entries, 2)
		assert.Equal(t, "Tuition", res.Entries[0].TargetName)
		assert.Equal(t, int64(700000), res.Entries[0].Amount)
		assert.True(t, res.Entries[0].Completed)
		assert.Equal(t, "Boarding", res.Entries[1].TargetName)
		assert.Equal(t, int64(100000), res.Entries[1].Amount)
		assert.Equal(t, int64(800000), res.Total())
	})

	t.Run("breaks priority ties by category id", func(t *testing.T) {
		l := newCategoryLedger(t, 400000, 400000)
		l.Categories[0].Priority = 1
		l.Categories[1].Priority = 1

		res := PriorityStrategy{}.Allocate(l.Categories, 100000)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, "cat-1", res.Entries[0].TargetID)
	})

	t.Run("skips paid categories", func(t *testing.T) {
		l := newCategoryLedger(t, 400000, 300000)
		l.Categories[0].AmountPaid = 400000
		l.Categories[0].Status = models.CategoryPaid

		res := PriorityStrategy{}.Allocate(l.Categories, 100000)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, "cat-2", res.Entries[0].TargetID)
	})
}

func TestStrategyFor(t *testing.T) {
	t.Parallel()

	assert.IsType(t, PriorityStrategy{}, StrategyFor(models.MethodPriority))
	assert.IsType(t, ProportionalStrategy{}, StrategyFor(models.MethodProportional))
	assert.Nil(t, StrategyFor(models.MethodInstallment))
	assert.Nil(t, StrategyFor(""))
}
