package models

import "time"

// FeeCategory is one named component of a student's total fees (tuition,
// boarding, exam, ...) tracked independently of time-ordered installments.
// Priority orders the greedy category allocation; lower runs first.
type FeeCategory struct {
	ID         string                `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	LedgerID   string                `json:"ledger_id" gorm:"not null;index;type:uuid"`
	Name       string                `json:"name" gorm:"not null"`
	Priority   int                   `json:"priority" gorm:"not null;default:0"`
	AmountDue  int64                 `json:"amount_due" gorm:"not null"`
	AmountPaid int64                 `json:"amount_paid" gorm:"not null;default:0"`
	Status     CategoryPaymentStatus `json:"status" gorm:"not null;default:'unpaid';type:varchar(20)"`
	CreatedAt  time.Time             `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time             `json:"updated_at" gorm:"autoUpdateTime"`
}

// Outstanding returns the unpaid remainder of this category.
func (c *FeeCategory) Outstanding() int64 {
	return c.AmountDue - c.AmountPaid
}

// Balance returns the unpaid remainder, kept as a separate name because
// reporting consumers read it as "balance".
func (c *FeeCategory) Balance() int64 {
	return c.AmountDue - c.AmountPaid
}

// RefreshStatus derives Status from the paid amount.
func (c *FeeCategory) RefreshStatus() {
	switch {
	case c.AmountPaid >= c.AmountDue:
		c.Status = CategoryPaid
	case c.AmountPaid > 0:
		c.Status = CategoryPartial
	default:
		c.Status = CategoryUnpaid
	}
}
