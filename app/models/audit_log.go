package models

import "time"

// AuditLog is one append-only audit trail entry for a ledger mutation.
type AuditLog struct {
	ID        string      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	LedgerID  string      `json:"ledger_id" gorm:"not null;index;type:uuid"`
	PaymentID *string     `json:"payment_id,omitempty" gorm:"index;type:uuid"`
	Action    AuditAction `json:"action" gorm:"not null;type:varchar(30)"`
	Detail    string      `json:"detail" gorm:"type:text"`
	ActorID   string      `json:"actor_id" gorm:"not null;type:uuid"`
	CreatedAt time.Time   `json:"created_at" gorm:"autoCreateTime"`
}
