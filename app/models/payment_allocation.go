package models

import "time"

// PaymentAllocation is the amount of a single payment assigned to one
// installment or fee category. The sum of a payment's allocations always
// equals the payment amount exactly.
type PaymentAllocation struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PaymentID  string    `json:"payment_id" gorm:"not null;index;type:uuid"`
	TargetID   string    `json:"target_id" gorm:"not null;index;type:uuid"`
	TargetName string    `json:"target_name" gorm:"not null"`
	Amount     int64     `json:"amount" gorm:"not null"`
	Completed  bool      `json:"completed" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
