package models

import (
	"sort"
	"time"
)

// StudentLedger is the fee state of one student for one term. It is the
// consistency boundary for all balance invariants: every mutation goes through
// the ledger coordinator as one atomic read-modify-write guarded by Version.
// Amounts are whole shillings stored as BIGINT.
type StudentLedger struct {
	ID            string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	StudentID     string       `json:"student_id" gorm:"not null;index;type:uuid"`
	TermID        *string      `json:"term_id,omitempty" gorm:"index;type:uuid"`
	SchoolID      string       `json:"school_id" gorm:"not null;index;type:uuid"`
	TotalFees     int64        `json:"total_fees" gorm:"not null"`
	AmountPaid    int64        `json:"amount_paid" gorm:"not null;default:0"`
	Balance       int64        `json:"balance" gorm:"not null"`
	PaymentStatus LedgerStatus `json:"payment_status" gorm:"not null;default:'no_payment';type:varchar(20)"`
	Version       int64        `json:"version" gorm:"not null;default:1"`
	Archived      bool         `json:"archived" gorm:"default:false;index"`
	CreatedAt     time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"autoUpdateTime"`

	Installments []*Installment `json:"installments,omitempty" gorm:"foreignKey:LedgerID;references:ID"`
	Categories   []*FeeCategory `json:"categories,omitempty" gorm:"foreignKey:LedgerID;references:ID"`
}

// Outstanding returns the unpaid remainder of the ledger.
func (l *StudentLedger) Outstanding() int64 {
	return l.TotalFees - l.AmountPaid
}

// Recompute refreshes Balance and PaymentStatus from the current totals and
// installment states. AmountPaid must already be up to date.
func (l *StudentLedger) Recompute() {
	l.Balance = l.TotalFees - l.AmountPaid

	switch {
	case l.Balance == 0 && l.TotalFees > 0:
		l.PaymentStatus = LedgerFullyPaid
	case l.AmountPaid == 0:
		l.PaymentStatus = LedgerNoPayment
	default:
		l.PaymentStatus = LedgerPartial
	}

	if l.PaymentStatus == LedgerPartial || l.PaymentStatus == LedgerNoPayment {
		for _, inst := range l.Installments {
			if inst.Status == InstallmentOverdue {
				l.PaymentStatus = LedgerOverdue
				break
			}
		}
	}
}

// InstallmentsInOrder returns the installments sorted ascending by Order.
// The slice is shared with the ledger, only the ordering is new.
func (l *StudentLedger) InstallmentsInOrder() []*Installment {
	sorted := make([]*Installment, len(l.Installments))
	copy(sorted, l.Installments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return sorted
}
