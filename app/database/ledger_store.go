package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

const (
	// uniqueViolation is the Postgres error code for a unique constraint breach.
	uniqueViolation = "23505"

	// paymentRefConstraint guards (school_id, transaction_ref) on payments,
	// per 0001_ledger_schema.up.sql.
	paymentRefConstraint = "uq_payment_ref"
)

// LedgerStore is the Postgres implementation of ledger.Store. All commits run
// in one transaction and guard the ledger row with its version column, so two
// concurrent writers to the same student can never both succeed.
type LedgerStore struct {
	DB *sql.DB
}

// NewLedgerStore wraps a database handle.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{DB: db}
}

// CreateLedger implements ledger.Store.
func (s *LedgerStore) CreateLedger(ctx context.Context, l *models.StudentLedger) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO student_ledgers (id, student_id, term_id, school_id, total_fees, amount_paid, balance, payment_status, version, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		l.ID, l.StudentID, l.TermID, l.SchoolID, l.TotalFees, l.AmountPaid, l.Balance, string(l.PaymentStatus), l.Version, l.Archived,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger: %w", err)
	}

	for _, inst := range l.Installments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO installments (id, ledger_id, install_order, name, amount_due, amount_paid, status, deadline, is_unlocked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
			inst.ID, inst.LedgerID, inst.Order, inst.Name, inst.AmountDue, inst.AmountPaid, string(inst.Status), inst.Deadline, inst.IsUnlocked,
		)
		if err != nil {
			return fmt.Errorf("failed to insert installment: %w", err)
		}
	}

	for _, cat := range l.Categories {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fee_categories (id, ledger_id, name, priority, amount_due, amount_paid, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
			cat.ID, cat.LedgerID, cat.Name, cat.Priority, cat.AmountDue, cat.AmountPaid, string(cat.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert fee category: %w", err)
		}
	}

	return tx.Commit()
}

// GetLedger implements ledger.Store.
func (s *LedgerStore) GetLedger(ctx context.Context, ledgerID string) (*models.StudentLedger, error) {
	return s.loadLedger(ctx, `WHERE id = $1`, ledgerID)
}

// GetActiveLedgerForStudent implements ledger.Store.
func (s *LedgerStore) GetActiveLedgerForStudent(ctx context.Context, studentID string) (*models.StudentLedger, error) {
	return s.loadLedger(ctx, `WHERE student_id = $1 AND archived = false`, studentID)
}

func (s *LedgerStore) loadLedger(ctx context.Context, where string, arg interface{}) (*models.StudentLedger, error) {
	l := &models.StudentLedger{}
	var status string

	query := `SELECT id, student_id, term_id, school_id, total_fees, amount_paid, balance, payment_status, version, archived, created_at, updated_at
			  FROM student_ledgers ` + where

	err := s.DB.QueryRowContext(ctx, query, arg).Scan(
		&l.ID, &l.StudentID, &l.TermID, &l.SchoolID, &l.TotalFees, &l.AmountPaid, &l.Balance,
		&status, &l.Version, &l.Archived, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	l.PaymentStatus = models.LedgerStatus(status)

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, ledger_id, install_order, name, amount_due, amount_paid, status, deadline, is_unlocked, completed_at, created_at, updated_at
		FROM installments WHERE ledger_id = $1 ORDER BY install_order`, l.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		inst := &models.Installment{}
		var instStatus string
		err := rows.Scan(
			&inst.ID, &inst.LedgerID, &inst.Order, &inst.Name, &inst.AmountDue, &inst.AmountPaid,
			&instStatus, &inst.Deadline, &inst.IsUnlocked, &inst.CompletedAt, &inst.CreatedAt, &inst.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		inst.Status = models.InstallmentStatus(instStatus)
		l.Installments = append(l.Installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read installments: %w", err)
	}

	catRows, err := s.DB.QueryContext(ctx, `
		SELECT id, ledger_id, name, priority, amount_due, amount_paid, status, created_at, updated_at
		FROM fee_categories WHERE ledger_id = $1 ORDER BY priority, id`, l.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		cat := &models.FeeCategory{}
		var catStatus string
		err := catRows.Scan(
			&cat.ID, &cat.LedgerID, &cat.Name, &cat.Priority, &cat.AmountDue, &cat.AmountPaid,
			&catStatus, &cat.CreatedAt, &cat.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee category: %w", err)
		}
		cat.Status = models.CategoryPaymentStatus(catStatus)
		l.Categories = append(l.Categories, cat)
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fee categories: %w", err)
	}

	return l, nil
}

// GetPayment implements ledger.Store.
func (s *LedgerStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	p, err := s.scanPayment(s.DB.QueryRowContext(ctx, paymentQuery+` WHERE id = $1`, paymentID))
	if err != nil {
		return nil, err
	}
	if err := s.loadAllocations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// FindPaymentByRef implements ledger.Store.
func (s *LedgerStore) FindPaymentByRef(ctx context.Context, schoolID, transactionRef string) (*models.Payment, error) {
	p, err := s.scanPayment(s.DB.QueryRowContext(ctx,
		paymentQuery+` WHERE school_id = $1 AND transaction_ref = $2`, schoolID, transactionRef))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPaymentsForStudent implements ledger.Store.
func (s *LedgerStore) ListPaymentsForStudent(ctx context.Context, studentID string) ([]*models.Payment, error) {
	rows, err := s.DB.QueryContext(ctx, paymentQuery+` WHERE student_id = $1 ORDER BY recorded_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := s.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}

	for _, p := range payments {
		if err := s.loadAllocations(ctx, p); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

const paymentQuery = `SELECT id, receipt_number, student_id, ledger_id, school_id, amount, channel, transaction_ref, notes, allocation_method, status, recorded_by, recorded_at, reversed_at
	FROM payments`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *LedgerStore) scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var channel, method, status string

	err := row.Scan(
		&p.ID, &p.ReceiptNumber, &p.StudentID, &p.LedgerID, &p.SchoolID, &p.Amount,
		&channel, &p.TransactionRef, &p.Notes, &method, &status, &p.RecordedBy, &p.RecordedAt, &p.ReversedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	p.Channel = models.PaymentChannel(channel)
	p.Method = models.AllocationMethod(method)
	p.Status = models.PaymentStatus(status)
	return p, nil
}

func (s *LedgerStore) loadAllocations(ctx context.Context, p *models.Payment) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, payment_id, target_id, target_name, amount, completed, created_at
		FROM payment_allocations WHERE payment_id = $1 ORDER BY created_at, id`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a := &models.PaymentAllocation{}
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.TargetID, &a.TargetName, &a.Amount, &a.Completed, &a.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		p.Allocations = append(p.Allocations, a)
	}
	return rows.Err()
}

// CommitPayment implements ledger.Store.
func (s *LedgerStore) CommitPayment(ctx context.Context, l *models.StudentLedger, p *models.Payment, audit *models.AuditLog) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.updateLedgerGuarded(ctx, tx, l); err != nil {
		return err
	}
	if err := s.updateSubLedger(ctx, tx, l); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, receipt_number, student_id, ledger_id, school_id, amount, channel, transaction_ref, notes, allocation_method, status, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.ReceiptNumber, p.StudentID, p.LedgerID, p.SchoolID, p.Amount, string(p.Channel),
		p.TransactionRef, p.Notes, string(p.Method), string(p.Status), p.RecordedBy, p.RecordedAt,
	)
	if err != nil {
		return mapPaymentInsertError(err)
	}

	for _, a := range p.Allocations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_allocations (id, payment_id, target_id, target_name, amount, completed, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			a.ID, a.PaymentID, a.TargetID, a.TargetName, a.Amount, a.Completed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	l.Version++
	return nil
}

// mapPaymentInsertError classifies a failed payments insert. Only the
// transaction reference constraint means the caller replayed a ref; any other
// unique violation (a receipt number collision from the random fragment) maps
// to ErrConflict so the coordinator retries with freshly generated
// identifiers.
func mapPaymentInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if pqErr.Constraint == paymentRefConstraint {
			return ledger.ErrDuplicateTransaction
		}
		return ledger.ErrConflict
	}
	return fmt.Errorf("failed to insert payment: %w", err)
}

// CommitLedgerUpdate implements ledger.Store.
func (s *LedgerStore) CommitLedgerUpdate(ctx context.Context, l *models.StudentLedger, p *models.Payment, audit *models.AuditLog) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.updateLedgerGuarded(ctx, tx, l); err != nil {
		return err
	}
	if err := s.updateSubLedger(ctx, tx, l); err != nil {
		return err
	}

	if p != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE payments SET status = $1, reversed_at = $2 WHERE id = $3`,
			string(p.Status), p.ReversedAt, p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger update: %w", err)
	}
	l.Version++
	return nil
}

// updateLedgerGuarded writes the aggregate row only if the version is
// unchanged since the read. Zero rows affected means a concurrent writer won.
func (s *LedgerStore) updateLedgerGuarded(ctx context.Context, tx *sql.Tx, l *models.StudentLedger) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE student_ledgers
		SET total_fees = $1, amount_paid = $2, balance = $3, payment_status = $4, archived = $5, version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7`,
		l.TotalFees, l.AmountPaid, l.Balance, string(l.PaymentStatus), l.Archived, l.ID, l.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check ledger update: %w", err)
	}
	if affected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

func (s *LedgerStore) updateSubLedger(ctx context.Context, tx *sql.Tx, l *models.StudentLedger) error {
	for _, inst := range l.Installments {
		_, err := tx.ExecContext(ctx, `
			UPDATE installments
			SET amount_due = $1, amount_paid = $2, status = $3, is_unlocked = $4, completed_at = $5, updated_at = NOW()
			WHERE id = $6`,
			inst.AmountDue, inst.AmountPaid, string(inst.Status), inst.IsUnlocked, inst.CompletedAt, inst.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update installment: %w", err)
		}
	}

	for _, cat := range l.Categories {
		_, err := tx.ExecContext(ctx, `
			UPDATE fee_categories
			SET amount_due = $1, amount_paid = $2, status = $3, updated_at = NOW()
			WHERE id = $4`,
			cat.AmountDue, cat.AmountPaid, string(cat.Status), cat.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update fee category: %w", err)
		}
	}

	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, audit *models.AuditLog) error {
	if audit == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, ledger_id, payment_id, action, detail, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		audit.ID, audit.LedgerID, audit.PaymentID, string(audit.Action), audit.Detail, audit.ActorID, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListLedgersWithDeadlinesBefore implements ledger.Store.
func (s *LedgerStore) ListLedgersWithDeadlinesBefore(ctx context.Context, cutoff time.Time) ([]*models.StudentLedger, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT DISTINCT l.id
		FROM student_ledgers l
		JOIN installments i ON i.ledger_id = l.id
		WHERE l.archived = false
		  AND i.status NOT IN ('completed', 'overdue')
		  AND i.deadline < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers for sweep: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ledger id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sweep candidates: %w", err)
	}

	var ledgers []*models.StudentLedger
	for _, id := range ids {
		l, err := s.GetLedger(ctx, id)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}
