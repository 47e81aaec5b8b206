package ledger

import (
	"sort"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// ProportionalStrategy splits a payment across categories in proportion to
// each category's outstanding balance, using the largest-remainder method so
// the entries sum exactly to the payment amount: every share is floored, then
// the leftover units go one at a time to the categories with the largest
// fractional remainder (highest outstanding first on ties, then id).
type ProportionalStrategy struct{}

// Name implements CategoryStrategy.
func (ProportionalStrategy) Name() models.AllocationMethod { return models.MethodProportional }

// Allocate implements CategoryStrategy.
func (ProportionalStrategy) Allocate(categories []*models.FeeCategory, amount int64) Result {
	type share struct {
		cat         *models.FeeCategory
		outstanding int64
		floor       int64
		remainder   int64 // fractional part scaled by totalOutstanding
	}

	var open []*share
	var totalOutstanding int64
	for _, cat := range categories {
		if out := cat.Outstanding(); out > 0 {
			open = append(open, &share{cat: cat, outstanding: out})
			totalOutstanding += out
		}
	}

	if len(open) == 0 {
		return Result{OverAllocation: amount > 0, Unapplied: amount}
	}

	over := amount > totalOutstanding
	toSplit := amount
	if over {
		toSplit = totalOutstanding
	}

	var allocated int64
	for _, s := range open {
		s.floor = toSplit * s.outstanding / totalOutstanding
		s.remainder = toSplit * s.outstanding % totalOutstanding
		allocated += s.floor
	}

	// Leftover is always smaller than the number of open categories, so one
	// unit per category in remainder order is enough.
	leftover := toSplit - allocated
	if leftover > 0 {
		ranked := make([]*share, len(open))
		copy(ranked, open)
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].remainder != ranked[j].remainder {
				return ranked[i].remainder > ranked[j].remainder
			}
			if ranked[i].outstanding != ranked[j].outstanding {
				return ranked[i].outstanding > ranked[j].outstanding
			}
			return ranked[i].cat.ID < ranked[j].cat.ID
		})

		for _, s := range ranked {
			if leftover == 0 {
				break
			}
			if s.floor < s.outstanding {
				s.floor++
				leftover--
			}
		}
	}

	var entries []Entry
	for _, s := range open {
		if s.floor == 0 {
			continue
		}
		entries = append(entries, Entry{
			TargetID:   s.cat.ID,
			TargetName: s.cat.Name,
			Amount:     s.floor,
			Completed:  s.floor >= s.outstanding,
		})
	}

	unapplied := int64(0)
	if over {
		unapplied = amount - totalOutstanding
	}

	return Result{
		Entries:        entries,
		OverAllocation: over,
		Unapplied:      unapplied,
	}
}
