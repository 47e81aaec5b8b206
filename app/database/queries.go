package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// CollectionStats summarizes ledger state for dashboards and reports. Read
// only; the numbers come straight from committed ledger rows.
type CollectionStats struct {
	TotalLedgers     int   `json:"total_ledgers"`
	FullyPaid        int   `json:"fully_paid"`
	Partial          int   `json:"partial"`
	Overdue          int   `json:"overdue"`
	NoPayment        int   `json:"no_payment"`
	TotalFees        int64 `json:"total_fees"`
	TotalCollected   int64 `json:"total_collected"`
	TotalOutstanding int64 `json:"total_outstanding"`
}

// GetCollectionStats aggregates active ledgers for one school.
func GetCollectionStats(ctx context.Context, db *sql.DB, schoolID string) (*CollectionStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_ledgers,
			COUNT(*) FILTER (WHERE payment_status = 'fully_paid') AS fully_paid,
			COUNT(*) FILTER (WHERE payment_status = 'partial') AS partial,
			COUNT(*) FILTER (WHERE payment_status = 'overdue') AS overdue,
			COUNT(*) FILTER (WHERE payment_status = 'no_payment') AS no_payment,
			COALESCE(SUM(total_fees), 0) AS total_fees,
			COALESCE(SUM(amount_paid), 0) AS total_collected,
			COALESCE(SUM(balance), 0) AS total_outstanding
		FROM student_ledgers
		WHERE school_id = $1 AND archived = false
	`

	stats := &CollectionStats{}
	err := db.QueryRowContext(ctx, query, schoolID).Scan(
		&stats.TotalLedgers, &stats.FullyPaid, &stats.Partial, &stats.Overdue, &stats.NoPayment,
		&stats.TotalFees, &stats.TotalCollected, &stats.TotalOutstanding,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection stats: %w", err)
	}
	return stats, nil
}

// GetAuditTrail lists audit entries for a ledger, oldest first.
func GetAuditTrail(ctx context.Context, db *sql.DB, ledgerID string) ([]*models.AuditLog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, ledger_id, payment_id, action, detail, actor_id, created_at
		FROM audit_logs WHERE ledger_id = $1 ORDER BY created_at`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		var action string
		if err := rows.Scan(&entry.ID, &entry.LedgerID, &entry.PaymentID, &action, &entry.Detail, &entry.ActorID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Action = models.AuditAction(action)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
