package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProportionalStrategy(t *testing.T) {
	t.Parallel()

	t.Run("splits in proportion to outstanding balances", func(t *testing.T) {
		l := newCategoryLedger(t, 700000, 300000)

		res := ProportionalStrategy{}.Allocate(l.Categories, 100000)

		require.Len(t, res.Entries, 2)
		assert.Equal(t, int64(70000), res.Entries[0].Amount)
		assert.Equal(t, int64(30000), res.Entries[1].Amount)
		assert.Equal(t, int64(100000), res.Total())
	})

	t.Run("assigns the rounding remainder deterministically", func(t *testing.T) {
		l := newCategoryLedger(t, 100000, 100000, 100000)

		res := ProportionalStrategy{}.Allocate(l.Categories, 100000)

		require.Len(t, res.Entries, 3)
		// Equal thirds floor to 33333 each leaving one unit; equal remainders
		// and equal outstandings fall through to the id tie-break, so cat-1
		// takes it.
		assert.Equal(t, int64(33334), res.Entries[0].Amount)
		assert.Equal(t, int64(33333), res.Entries[1].Amount)
		assert.Equal(t, int64(33333), res.Entries[2].Amount)
		assert.Equal(t, int64(100000), res.Total())
	})

	t.Run("gives remainder units to the largest fractional shares first", func(t *testing.T) {
		l := newCategoryLedger(t, 500000, 300000, 200000)

		res := ProportionalStrategy{}.Allocate(l.Categories, 99999)

		// Raw shares 49999.5 / 29999.7 / 19999.8 floor to 49999+29999+19999,
		// leaving 2 units for the two largest fractions (cat-3 .8, cat-2 .7).
		require.Len(t, res.Entries, 3)
		assert.Equal(t, int64(49999), res.Entries[0].Amount)
		assert.Equal(t, int64(30000), res.Entries[1].Amount)
		assert.Equal(t, int64(20000), res.Entries[2].Amount)
		assert.Equal(t, int64(99999), res.Total())
	})

	t.Run("exact sum holds across awkward amounts", func(t *testing.T) {
		outstandings := [][]int64{
			{700000, 300000},
			{333333, 333333, 333334},
			{1, 2, 3, 5},
			{999999, 1},
			{123457, 765431, 111111},
		}
		amounts := []int64{1, 7, 99, 1000, 99999, 100001}

		for _, outs := range outstandings {
			l := newCategoryLedger(t, outs...)
			var total int64
			for _, o := range outs {
				total += o
			}

			for _, amount := range amounts {
				if amount > total {
					continue
				}
				res := ProportionalStrategy{}.Allocate(l.Categories, amount)
				require.Equal(t, amount, res.Total(),
					"amount %d over outstandings %v must allocate exactly", amount, outs)
				require.False(t, res.OverAllocation)
			}
		}
	})

	t.Run("skips paid categories", func(t *testing.T) {
		l := newCategoryLedger(t, 400000, 600000)
		l.Categories[0].AmountPaid = 400000

		res := ProportionalStrategy{}.Allocate(l.Categories, 90000)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, "cat-2", res.Entries[0].TargetID)
		assert.Equal(t, int64(90000), res.Entries[0].Amount)
	})

	t.Run("caps at outstanding and reports over-allocation", func(t *testing.T) {
		l := newCategoryLedger(t, 400000, 200000)

		res := ProportionalStrategy{}.Allocate(l.Categories, 700000)

		assert.True(t, res.OverAllocation)
		assert.Equal(t, int64(100000), res.Unapplied)
		assert.Equal(t, int64(600000), res.Total())
		for _, e := range res.Entries {
			assert.True(t, e.Completed)
		}
	})

	t.Run("handles no open categories", func(t *testing.T) {
		l := newCategoryLedger(t, 400000)
		l.Categories[0].AmountPaid = 400000

		res := ProportionalStrategy{}.Allocate(l.Categories, 50000)

		assert.Empty(t, res.Entries)
		assert.True(t, res.OverAllocation)
		assert.Equal(t, int64(50000), res.Unapplied)
	})
}
