package ledger

import (
	"time"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// AllocationLine is one allocation of a committed payment as seen by
// downstream consumers.
type AllocationLine struct {
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
	Amount     int64  `json:"amount"`
}

// PaymentRecordedEvent is the fact emitted after a payment commits. It is
// consumed by the notification, receipt and anchoring collaborators; none of
// them can affect the commit outcome.
type PaymentRecordedEvent struct {
	PaymentID        string                  `json:"payment_id"`
	ReceiptNumber    string                  `json:"receipt_number"`
	StudentID        string                  `json:"student_id"`
	SchoolID         string                  `json:"school_id"`
	LedgerID         string                  `json:"ledger_id"`
	Amount           int64                   `json:"amount"`
	NewBalance       int64                   `json:"new_balance"`
	Channel          models.PaymentChannel   `json:"channel"`
	Method           models.AllocationMethod `json:"allocation_method"`
	Allocations      []AllocationLine        `json:"allocations"`
	RecordedBy       string                  `json:"recorded_by"`
	RecordedAt       time.Time               `json:"recorded_at"`
	SendNotification bool                    `json:"send_notification"`
}

// Dispatcher receives post-commit facts. Implementations must not block the
// caller; a slow or failing dispatcher never rolls back a committed payment.
type Dispatcher interface {
	Dispatch(event PaymentRecordedEvent)
}

// NopDispatcher drops every event. Used in tests and when no broker is
// configured.
type NopDispatcher struct{}

// Dispatch implements Dispatcher.
func (NopDispatcher) Dispatch(PaymentRecordedEvent) {}

// CategoryAllocationLine is one line of a category allocation report.
type CategoryAllocationLine struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Amount       int64  `json:"amount"`
}

// PaymentCategoryAllocation is the reporting view of how a payment was split
// across fee categories.
type PaymentCategoryAllocation struct {
	PaymentID        string                   `json:"payment_id"`
	Allocations      []CategoryAllocationLine `json:"allocations"`
	AllocationMethod models.AllocationMethod  `json:"allocation_method"`
	AllocatedAt      time.Time                `json:"allocated_at"`
	AllocatedBy      string                   `json:"allocated_by"`
}
