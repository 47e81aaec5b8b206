package ledger

import (
	"context"
	"time"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// Store persists ledgers, payments and the audit trail. Reads return
// snapshots; commits are write-if-version-unchanged on the ledger aggregate
// and return ErrConflict when the stored version moved, so the coordinator
// can retry the whole read-validate-allocate-write cycle.
type Store interface {
	// CreateLedger persists a new ledger with its installments/categories.
	CreateLedger(ctx context.Context, l *models.StudentLedger) error

	// GetLedger loads a ledger snapshot by id, installments and categories
	// included. Returns ErrNotFound when missing.
	GetLedger(ctx context.Context, ledgerID string) (*models.StudentLedger, error)

	// GetActiveLedgerForStudent loads the student's non-archived ledger.
	GetActiveLedgerForStudent(ctx context.Context, studentID string) (*models.StudentLedger, error)

	// GetPayment loads a payment with its allocations.
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)

	// ListPaymentsForStudent lists committed payments, newest first.
	ListPaymentsForStudent(ctx context.Context, studentID string) ([]*models.Payment, error)

	// FindPaymentByRef looks a payment up by school and transaction
	// reference. Returns ErrNotFound when there is none.
	FindPaymentByRef(ctx context.Context, schoolID, transactionRef string) (*models.Payment, error)

	// CommitPayment atomically persists the payment with its allocations, the
	// updated ledger aggregate and an audit entry. Returns ErrConflict on a
	// version mismatch and ErrDuplicateTransaction when the transaction
	// reference is already taken for the school. On success the in-memory
	// ledger version is bumped.
	CommitPayment(ctx context.Context, l *models.StudentLedger, p *models.Payment, audit *models.AuditLog) error

	// CommitLedgerUpdate atomically persists a ledger mutation that carries
	// no new payment (reversal, fee adjustment, archive, overdue sweep),
	// optionally updating an existing payment's status, plus an audit entry.
	// Same version semantics as CommitPayment.
	CommitLedgerUpdate(ctx context.Context, l *models.StudentLedger, p *models.Payment, audit *models.AuditLog) error

	// ListLedgersWithDeadlinesBefore returns active ledgers that have
	// non-completed installments with deadlines before the cutoff. Used by
	// the daily sweep.
	ListLedgersWithDeadlinesBefore(ctx context.Context, cutoff time.Time) ([]*models.StudentLedger, error)
}
