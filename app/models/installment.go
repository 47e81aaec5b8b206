package models

import "time"

// Installment is one scheduled portion of a student's term fees. Order is
// unique and contiguous from 1 within a ledger. IsUnlocked is one-way: once an
// installment unlocks it never re-locks, even if an earlier payment is
// reversed.
type Installment struct {
	ID          string            `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	LedgerID    string            `json:"ledger_id" gorm:"not null;index;type:uuid"`
	Order       int               `json:"order" gorm:"column:install_order;not null"`
	Name        string            `json:"name" gorm:"not null"`
	AmountDue   int64             `json:"amount_due" gorm:"not null"`
	AmountPaid  int64             `json:"amount_paid" gorm:"not null;default:0"`
	Status      InstallmentStatus `json:"status" gorm:"not null;default:'not_started';type:varchar(20)"`
	Deadline    time.Time         `json:"deadline" gorm:"not null;type:date"`
	IsUnlocked  bool              `json:"is_unlocked" gorm:"not null;default:false"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// Outstanding returns the unpaid remainder of this installment.
func (i *Installment) Outstanding() int64 {
	return i.AmountDue - i.AmountPaid
}

// IsCompleted returns true once the installment is fully paid.
func (i *Installment) IsCompleted() bool {
	return i.Status == InstallmentCompleted
}
