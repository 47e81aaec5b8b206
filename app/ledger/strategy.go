package ledger

import "github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"

// Entry is one computed split of a payment: how much of it lands on one
// installment or fee category. Entries always sum exactly to the allocated
// amount.
type Entry struct {
	TargetID   string
	TargetName string
	Amount     int64
	Completed  bool
}

// Result is what an allocation strategy hands back to the coordinator.
// OverAllocation is a defensive flag: the validator rejects amounts above the
// outstanding balance before allocation runs, so a capped split here means a
// caller bypassed validation.
type Result struct {
	Entries        []Entry
	OverAllocation bool
	Unapplied      int64
}

// Total returns the sum of all entry amounts.
func (r Result) Total() int64 {
	var sum int64
	for _, e := range r.Entries {
		sum += e.Amount
	}
	return sum
}

// CategoryStrategy computes how a payment splits across fee categories.
// Two concrete implementations exist: PriorityStrategy saturates categories in
// priority order, ProportionalStrategy splits in proportion to outstanding
// balances.
type CategoryStrategy interface {
	Name() models.AllocationMethod
	Allocate(categories []*models.FeeCategory, amount int64) Result
}

// StrategyFor returns the category strategy for a method, or nil when the
// method is installment-based.
func StrategyFor(method models.AllocationMethod) CategoryStrategy {
	switch method {
	case models.MethodPriority:
		return PriorityStrategy{}
	case models.MethodProportional:
		return ProportionalStrategy{}
	default:
		return nil
	}
}
