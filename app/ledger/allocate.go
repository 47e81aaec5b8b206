package ledger

import (
	"sort"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// AllocateInstallments walks the installments ascending by order and
// saturates each before the next receives anything. Completed installments
// are skipped. Single pass, deterministic.
func AllocateInstallments(l *models.StudentLedger, amount int64) Result {
	remaining := amount
	var entries []Entry

	for _, inst := range l.InstallmentsInOrder() {
		if remaining == 0 {
			break
		}
		if inst.IsCompleted() {
			continue
		}

		outstanding := inst.Outstanding()
		if outstanding <= 0 {
			continue
		}

		apply := remaining
		if outstanding < apply {
			apply = outstanding
		}

		entries = append(entries, Entry{
			TargetID:   inst.ID,
			TargetName: inst.Name,
			Amount:     apply,
			Completed:  apply >= outstanding,
		})
		remaining -= apply
	}

	return Result{
		Entries:        entries,
		OverAllocation: remaining > 0,
		Unapplied:      remaining,
	}
}

// PriorityStrategy saturates categories in ascending priority order, ties
// broken by category id so the walk is deterministic.
type PriorityStrategy struct{}

// Name implements CategoryStrategy.
func (PriorityStrategy) Name() models.AllocationMethod { return models.MethodPriority }

// Allocate implements CategoryStrategy.
func (PriorityStrategy) Allocate(categories []*models.FeeCategory, amount int64) Result {
	sorted := make([]*models.FeeCategory, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})

	remaining := amount
	var entries []Entry

	for _, cat := range sorted {
		if remaining == 0 {
			break
		}

		outstanding := cat.Outstanding()
		if outstanding <= 0 {
			continue
		}

		apply := remaining
		if outstanding < apply {
			apply = outstanding
		}

		entries = append(entries, Entry{
			TargetID:   cat.ID,
			TargetName: cat.Name,
			Amount:     apply,
			Completed:  apply >= outstanding,
		})
		remaining -= apply
	}

	return Result{
		Entries:        entries,
		OverAllocation: remaining > 0,
		Unapplied:      remaining,
	}
}
