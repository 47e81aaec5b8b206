package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// ApplyToInstallments applies computed allocation entries to the ledger's
// installments: amounts are added, statuses transition per the installment
// lifecycle, and completing an installment unlocks the next one by order.
// Unlock is idempotent and one-way.
func ApplyToInstallments(l *models.StudentLedger, entries []Entry, at time.Time) error {
	byID := make(map[string]*models.Installment, len(l.Installments))
	for _, inst := range l.Installments {
		byID[inst.ID] = inst
	}

	for _, e := range entries {
		inst, ok := byID[e.TargetID]
		if !ok {
			return fmt.Errorf("allocation targets unknown installment %s", e.TargetID)
		}

		inst.AmountPaid += e.Amount
		if inst.AmountPaid >= inst.AmountDue {
			inst.Status = models.InstallmentCompleted
			completed := at
			inst.CompletedAt = &completed
			unlockNext(l, inst.Order)
		} else if inst.Status == models.InstallmentNotStarted {
			inst.Status = models.InstallmentInProgress
		}
		// An overdue installment that receives a partial payment stays
		// overdue until it completes; the deadline has still passed.
	}

	return nil
}

// unlockNext sets IsUnlocked on the installment following the given order.
// No-op when it is already unlocked or there is no next installment.
func unlockNext(l *models.StudentLedger, order int) {
	for _, inst := range l.Installments {
		if inst.Order == order+1 {
			inst.IsUnlocked = true
			return
		}
	}
}

// ApplyToCategories applies computed allocation entries to the ledger's fee
// categories and refreshes their statuses.
func ApplyToCategories(l *models.StudentLedger, entries []Entry) error {
	byID := make(map[string]*models.FeeCategory, len(l.Categories))
	for _, cat := range l.Categories {
		byID[cat.ID] = cat
	}

	for _, e := range entries {
		cat, ok := byID[e.TargetID]
		if !ok {
			return fmt.Errorf("allocation targets unknown category %s", e.TargetID)
		}
		cat.AmountPaid += e.Amount
		cat.RefreshStatus()
	}

	return nil
}

// RevertAllocations undoes a committed payment's allocations on the ledger's
// sub-entries. A completed installment drops back to in_progress (or
// not_started at zero paid); unlock flags are left alone because unlock is
// one-way. Overdue flags are re-derived by the daily sweep, not here.
func RevertAllocations(l *models.StudentLedger, allocations []*models.PaymentAllocation) error {
	instByID := make(map[string]*models.Installment, len(l.Installments))
	for _, inst := range l.Installments {
		instByID[inst.ID] = inst
	}
	catByID := make(map[string]*models.FeeCategory, len(l.Categories))
	for _, cat := range l.Categories {
		catByID[cat.ID] = cat
	}

	for _, a := range allocations {
		if inst, ok := instByID[a.TargetID]; ok {
			if inst.AmountPaid < a.Amount {
				return fmt.Errorf("installment %s paid amount %d below allocation %d", inst.ID, inst.AmountPaid, a.Amount)
			}
			inst.AmountPaid -= a.Amount
			if inst.AmountPaid < inst.AmountDue && inst.Status == models.InstallmentCompleted {
				inst.CompletedAt = nil
				if inst.AmountPaid == 0 {
					inst.Status = models.InstallmentNotStarted
				} else {
					inst.Status = models.InstallmentInProgress
				}
			}
			continue
		}

		if cat, ok := catByID[a.TargetID]; ok {
			if cat.AmountPaid < a.Amount {
				return fmt.Errorf("category %s paid amount %d below allocation %d", cat.ID, cat.AmountPaid, a.Amount)
			}
			cat.AmountPaid -= a.Amount
			cat.RefreshStatus()
			continue
		}

		return fmt.Errorf("allocation targets unknown entry %s", a.TargetID)
	}

	return nil
}

// AdjustScheduleAmounts spreads a change in total fees across the sub-ledger
// so installment and category due amounts keep summing to TotalFees and the
// full balance stays collectable. An increase lands on the final installment
// and the lowest-priority category; a decrease comes off the tail first and
// never cuts below what was already paid. Callers must have checked that the
// new total is at least AmountPaid, which guarantees a decrease is absorbable.
func AdjustScheduleAmounts(l *models.StudentLedger, delta int64, at time.Time) {
	if delta == 0 {
		return
	}

	if len(l.Installments) > 0 {
		ordered := l.InstallmentsInOrder()
		if delta > 0 {
			last := ordered[len(ordered)-1]
			last.AmountDue += delta
			if last.IsCompleted() && last.Outstanding() > 0 {
				last.Status = models.InstallmentInProgress
				last.CompletedAt = nil
			}
		} else {
			remaining := -delta
			for i := len(ordered) - 1; i >= 0 && remaining > 0; i-- {
				inst := ordered[i]
				cut := inst.Outstanding()
				if cut <= 0 {
					continue
				}
				if cut > remaining {
					cut = remaining
				}
				inst.AmountDue -= cut
				remaining -= cut
				if inst.Outstanding() == 0 && !inst.IsCompleted() {
					inst.Status = models.InstallmentCompleted
					completed := at
					inst.CompletedAt = &completed
					unlockNext(l, inst.Order)
				}
			}
		}
	}

	if len(l.Categories) > 0 {
		if delta > 0 {
			last := l.Categories[0]
			for _, cat := range l.Categories[1:] {
				if cat.Priority > last.Priority ||
					(cat.Priority == last.Priority && cat.ID > last.ID) {
					last = cat
				}
			}
			last.AmountDue += delta
			last.RefreshStatus()
		} else {
			sorted := make([]*models.FeeCategory, len(l.Categories))
			copy(sorted, l.Categories)
			sort.Slice(sorted, func(i, j int) bool {
				if sorted[i].Priority != sorted[j].Priority {
					return sorted[i].Priority > sorted[j].Priority
				}
				return sorted[i].ID > sorted[j].ID
			})

			remaining := -delta
			for _, cat := range sorted {
				if remaining == 0 {
					break
				}
				cut := cat.Outstanding()
				if cut <= 0 {
					continue
				}
				if cut > remaining {
					cut = remaining
				}
				cat.AmountDue -= cut
				remaining -= cut
				cat.RefreshStatus()
			}
		}
	}
}

// SweepOverdue flags every non-completed installment whose deadline has
// passed and recomputes the ledger status. Returns true when anything
// changed. Called by the daily scheduler.
func SweepOverdue(l *models.StudentLedger, now time.Time) bool {
	changed := false
	for _, inst := range l.Installments {
		if inst.IsCompleted() || inst.Status == models.InstallmentOverdue {
			continue
		}
		if inst.Deadline.Before(now) {
			inst.Status = models.InstallmentOverdue
			changed = true
		}
	}
	if changed {
		l.Recompute()
	}
	return changed
}
