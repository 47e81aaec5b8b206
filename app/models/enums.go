package models

// LedgerStatus defines the overall payment standing of a student ledger.
type LedgerStatus string

const (
	LedgerFullyPaid LedgerStatus = "fully_paid"
	LedgerPartial   LedgerStatus = "partial"
	LedgerOverdue   LedgerStatus = "overdue"
	LedgerNoPayment LedgerStatus = "no_payment"
)

// InstallmentStatus defines the lifecycle state of a single installment.
type InstallmentStatus string

const (
	InstallmentNotStarted InstallmentStatus = "not_started"
	InstallmentInProgress InstallmentStatus = "in_progress"
	InstallmentCompleted  InstallmentStatus = "completed"
	InstallmentOverdue    InstallmentStatus = "overdue"
)

// CategoryPaymentStatus defines the payment state of a fee category.
type CategoryPaymentStatus string

const (
	CategoryUnpaid  CategoryPaymentStatus = "unpaid"
	CategoryPartial CategoryPaymentStatus = "partial"
	CategoryPaid    CategoryPaymentStatus = "paid"
)

// PaymentStatus defines the status of a recorded payment.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentReversed  PaymentStatus = "reversed"
)

// PaymentChannel defines how the money was received outside the system.
type PaymentChannel string

const (
	ChannelMobileMoney PaymentChannel = "mobile_money"
	ChannelBank        PaymentChannel = "bank"
	ChannelCash        PaymentChannel = "cash"
)

// AllocationMethod defines which allocation strategy produced a split.
type AllocationMethod string

const (
	MethodInstallment  AllocationMethod = "installment"
	MethodPriority     AllocationMethod = "priority"
	MethodProportional AllocationMethod = "proportional"
)

// AuditAction defines the recorded audit trail actions.
type AuditAction string

const (
	AuditPaymentRecorded AuditAction = "payment_recorded"
	AuditPaymentReversed AuditAction = "payment_reversed"
	AuditFeesAdjusted    AuditAction = "fees_adjusted"
	AuditLedgerArchived  AuditAction = "ledger_archived"
)
