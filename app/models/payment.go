package models

import "time"

// Payment represents money already received outside the system (mobile money,
// bank, cash) recorded against a student ledger. Immutable once committed;
// erroneous payments are undone by an explicit reversal, never edited.
type Payment struct {
	ID             string           `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ReceiptNumber  string           `json:"receipt_number" gorm:"uniqueIndex;not null"`
	StudentID      string           `json:"student_id" gorm:"not null;index;type:uuid"`
	LedgerID       string           `json:"ledger_id" gorm:"not null;index;type:uuid"`
	SchoolID       string           `json:"school_id" gorm:"not null;index;type:uuid"`
	Amount         int64            `json:"amount" gorm:"not null"`
	Channel        PaymentChannel   `json:"channel" gorm:"not null;type:varchar(20)"`
	TransactionRef string           `json:"transaction_ref" gorm:"not null;index"`
	Notes          *string          `json:"notes,omitempty" gorm:"type:text"`
	Method         AllocationMethod `json:"allocation_method" gorm:"not null;type:varchar(20)"`
	Status         PaymentStatus    `json:"status" gorm:"not null;default:'completed';index;type:varchar(20)"`
	RecordedBy     string           `json:"recorded_by" gorm:"not null;type:uuid"`
	RecordedAt     time.Time        `json:"recorded_at" gorm:"not null;index"`
	ReversedAt     *time.Time       `json:"reversed_at,omitempty"`

	Allocations []*PaymentAllocation `json:"allocations,omitempty" gorm:"foreignKey:PaymentID;references:ID"`
}
