package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// maxCommitAttempts bounds the optimistic-concurrency retry loop.
const maxCommitAttempts = 3

// Coordinator is the only component permitted to mutate a student ledger.
// Every mutation is one atomic read-validate-allocate-write cycle, retried on
// version conflict and never partially applied.
type Coordinator struct {
	store      Store
	dispatcher Dispatcher
	log        *zap.Logger
}

// NewCoordinator wires a coordinator with its collaborators. Pass
// NopDispatcher{} when post-commit fan-out is not wanted.
func NewCoordinator(store Store, dispatcher Dispatcher, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{store: store, dispatcher: dispatcher, log: log}
}

// RecordPaymentInput is the input contract for recording a payment. Amount is
// whole shillings. Method selects the allocation strategy; the zero value
// falls back to ordered-installment allocation.
type RecordPaymentInput struct {
	StudentID        string
	Amount           int64
	Channel          models.PaymentChannel
	TransactionRef   string
	Notes            *string
	RecordedBy       string
	SchoolID         string
	Method           models.AllocationMethod
	SendNotification bool
}

// RecordResult is returned for a committed payment.
type RecordResult struct {
	Payment            *models.Payment
	NewBalance         int64
	CategoryAllocation *PaymentCategoryAllocation
}

// RecordPayment validates, allocates and commits one payment. On any
// validation failure the ledger is untouched. Concurrent writes to the same
// ledger are resolved by bounded optimistic retry; ErrConflict surfaces only
// when the retries exhaust.
func (c *Coordinator) RecordPayment(ctx context.Context, input RecordPaymentInput) (*RecordResult, error) {
	if input.TransactionRef == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}

	var lastErr error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		result, err := c.recordOnce(ctx, input)
		if errors.Is(err, ErrConflict) {
			c.log.Warn("ledger version conflict, retrying",
				zap.String("student_id", input.StudentID),
				zap.Int("attempt", attempt+1))
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, lastErr
}

func (c *Coordinator) recordOnce(ctx context.Context, input RecordPaymentInput) (*RecordResult, error) {
	l, err := c.store.GetActiveLedgerForStudent(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}
	if l.Archived {
		return nil, ErrLedgerArchived
	}

	// Dedup guard: replaying the same external transaction reference must not
	// double-record. The store's unique constraint backs this check up under
	// races.
	if _, err := c.store.FindPaymentByRef(ctx, input.SchoolID, input.TransactionRef); err == nil {
		return nil, ErrDuplicateTransaction
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := Validate(l, input.Amount); err != nil {
		return nil, err
	}

	method := input.Method
	if method == "" {
		method = models.MethodInstallment
	}

	var res Result
	if strategy := StrategyFor(method); strategy != nil {
		if len(l.Categories) == 0 {
			return nil, fmt.Errorf("ledger %s has no fee categories for %s allocation", l.ID, method)
		}
		res = strategy.Allocate(l.Categories, input.Amount)
	} else {
		method = models.MethodInstallment
		res = AllocateInstallments(l, input.Amount)
	}

	if res.OverAllocation {
		// The validator caps amounts at the outstanding balance, so reaching
		// this means the sub-ledger disagrees with the aggregate.
		c.log.Error("allocation overflow on validated amount",
			zap.String("ledger_id", l.ID),
			zap.Int64("unapplied", res.Unapplied))
		return nil, fmt.Errorf("ledger %s sub-balances cannot absorb validated amount %d", l.ID, input.Amount)
	}
	if total := res.Total(); total != input.Amount {
		return nil, fmt.Errorf("allocation sum %d does not match payment amount %d", total, input.Amount)
	}

	now := time.Now().UTC()
	if method == models.MethodInstallment {
		if err := ApplyToInstallments(l, res.Entries, now); err != nil {
			return nil, err
		}
	} else {
		if err := ApplyToCategories(l, res.Entries); err != nil {
			return nil, err
		}
	}

	l.AmountPaid += input.Amount
	l.Recompute()

	payment := &models.Payment{
		ID:             uuid.NewString(),
		ReceiptNumber:  newReceiptNumber(now),
		StudentID:      input.StudentID,
		LedgerID:       l.ID,
		SchoolID:       input.SchoolID,
		Amount:         input.Amount,
		Channel:        input.Channel,
		TransactionRef: input.TransactionRef,
		Notes:          input.Notes,
		Method:         method,
		Status:         models.PaymentCompleted,
		RecordedBy:     input.RecordedBy,
		RecordedAt:     now,
	}
	for _, e := range res.Entries {
		payment.Allocations = append(payment.Allocations, &models.PaymentAllocation{
			ID:         uuid.NewString(),
			PaymentID:  payment.ID,
			TargetID:   e.TargetID,
			TargetName: e.TargetName,
			Amount:     e.Amount,
			Completed:  e.Completed,
		})
	}

	audit := &models.AuditLog{
		ID:        uuid.NewString(),
		LedgerID:  l.ID,
		PaymentID: &payment.ID,
		Action:    models.AuditPaymentRecorded,
		Detail:    fmt.Sprintf("payment of %d via %s, receipt %s", payment.Amount, payment.Channel, payment.ReceiptNumber),
		ActorID:   input.RecordedBy,
		CreatedAt: now,
	}

	if err := c.store.CommitPayment(ctx, l, payment, audit); err != nil {
		return nil, err
	}

	c.log.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("receipt", payment.ReceiptNumber),
		zap.String("student_id", payment.StudentID),
		zap.Int64("amount", payment.Amount),
		zap.Int64("new_balance", l.Balance))

	c.emit(payment, l, input.SendNotification)

	result := &RecordResult{Payment: payment, NewBalance: l.Balance}
	if method != models.MethodInstallment {
		result.CategoryAllocation = categoryReport(payment)
	}
	return result, nil
}

// emit hands the committed payment to the dispatcher. Must never block or
// fail the transaction result.
func (c *Coordinator) emit(p *models.Payment, l *models.StudentLedger, notify bool) {
	if c.dispatcher == nil {
		return
	}

	event := PaymentRecordedEvent{
		PaymentID:        p.ID,
		ReceiptNumber:    p.ReceiptNumber,
		StudentID:        p.StudentID,
		SchoolID:         p.SchoolID,
		LedgerID:         l.ID,
		Amount:           p.Amount,
		NewBalance:       l.Balance,
		Channel:          p.Channel,
		Method:           p.Method,
		RecordedBy:       p.RecordedBy,
		RecordedAt:       p.RecordedAt,
		SendNotification: notify,
	}
	for _, a := range p.Allocations {
		event.Allocations = append(event.Allocations, AllocationLine{
			TargetID:   a.TargetID,
			TargetName: a.TargetName,
			Amount:     a.Amount,
		})
	}

	c.dispatcher.Dispatch(event)
}

func categoryReport(p *models.Payment) *PaymentCategoryAllocation {
	report := &PaymentCategoryAllocation{
		PaymentID:        p.ID,
		AllocationMethod: p.Method,
		AllocatedAt:      p.RecordedAt,
		AllocatedBy:      p.RecordedBy,
	}
	for _, a := range p.Allocations {
		report.Allocations = append(report.Allocations, CategoryAllocationLine{
			CategoryID:   a.TargetID,
			CategoryName: a.TargetName,
			Amount:       a.Amount,
		})
	}
	return report
}

// ReversePayment undoes a committed payment with a compensating adjustment:
// sub-ledger paid amounts drop, statuses are re-derived, unlock flags stay
// set (unlock is one-way), and the payment is marked reversed. Runs under the
// same optimistic commit as RecordPayment.
func (c *Coordinator) ReversePayment(ctx context.Context, paymentID, actorID, reason string) (*models.Payment, error) {
	var lastErr error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		p, err := c.reverseOnce(ctx, paymentID, actorID, reason)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, lastErr
}

func (c *Coordinator) reverseOnce(ctx context.Context, paymentID, actorID, reason string) (*models.Payment, error) {
	p, err := c.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentReversed {
		return nil, ErrAlreadyReversed
	}

	l, err := c.store.GetLedger(ctx, p.LedgerID)
	if err != nil {
		return nil, err
	}

	if err := RevertAllocations(l, p.Allocations); err != nil {
		return nil, err
	}

	l.AmountPaid -= p.Amount
	l.Recompute()

	now := time.Now().UTC()
	p.Status = models.PaymentReversed
	p.ReversedAt = &now

	audit := &models.AuditLog{
		ID:        uuid.NewString(),
		LedgerID:  l.ID,
		PaymentID: &p.ID,
		Action:    models.AuditPaymentReversed,
		Detail:    fmt.Sprintf("payment %s of %d reversed: %s", p.ReceiptNumber, p.Amount, reason),
		ActorID:   actorID,
		CreatedAt: now,
	}

	if err := c.store.CommitLedgerUpdate(ctx, l, p, audit); err != nil {
		return nil, err
	}

	c.log.Info("payment reversed",
		zap.String("payment_id", p.ID),
		zap.String("actor_id", actorID),
		zap.Int64("amount", p.Amount))

	return p, nil
}

// InstallmentSpec describes one installment of a fee schedule snapshot.
type InstallmentSpec struct {
	Order     int
	Name      string
	AmountDue int64
	Deadline  time.Time
}

// CategorySpec describes one fee category of a schedule snapshot.
type CategorySpec struct {
	Name      string
	Priority  int
	AmountDue int64
}

// CreateLedgerInput snapshots an assigned fee schedule at enrollment time.
type CreateLedgerInput struct {
	StudentID    string
	SchoolID     string
	TermID       *string
	Installments []InstallmentSpec
	Categories   []CategorySpec
	ActorID      string
}

// CreateLedger builds and persists a new ledger from a fee schedule snapshot.
// Installment orders must be contiguous from 1; the first installment starts
// unlocked. When both installments and categories are given their totals must
// agree.
func (c *Coordinator) CreateLedger(ctx context.Context, input CreateLedgerInput) (*models.StudentLedger, error) {
	if len(input.Installments) == 0 && len(input.Categories) == 0 {
		return nil, fmt.Errorf("fee schedule has neither installments nor categories")
	}

	specs := make([]InstallmentSpec, len(input.Installments))
	copy(specs, input.Installments)
	sort.Slice(specs, func(i, j int) bool { return specs[i].Order < specs[j].Order })

	var installmentTotal int64
	for i, spec := range specs {
		if spec.Order != i+1 {
			return nil, fmt.Errorf("installment orders must be contiguous from 1, got %d at position %d", spec.Order, i+1)
		}
		if spec.AmountDue <= 0 {
			return nil, fmt.Errorf("installment %q amount must be positive", spec.Name)
		}
		installmentTotal += spec.AmountDue
	}

	var categoryTotal int64
	for _, spec := range input.Categories {
		if spec.AmountDue <= 0 {
			return nil, fmt.Errorf("category %q amount must be positive", spec.Name)
		}
		categoryTotal += spec.AmountDue
	}

	if len(specs) > 0 && len(input.Categories) > 0 && installmentTotal != categoryTotal {
		return nil, fmt.Errorf("installment total %d disagrees with category total %d", installmentTotal, categoryTotal)
	}

	total := installmentTotal
	if total == 0 {
		total = categoryTotal
	}

	now := time.Now().UTC()
	l := &models.StudentLedger{
		ID:            uuid.NewString(),
		StudentID:     input.StudentID,
		SchoolID:      input.SchoolID,
		TermID:        input.TermID,
		TotalFees:     total,
		Balance:       total,
		PaymentStatus: models.LedgerNoPayment,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, spec := range specs {
		l.Installments = append(l.Installments, &models.Installment{
			ID:         uuid.NewString(),
			LedgerID:   l.ID,
			Order:      spec.Order,
			Name:       spec.Name,
			AmountDue:  spec.AmountDue,
			Status:     models.InstallmentNotStarted,
			Deadline:   spec.Deadline,
			IsUnlocked: spec.Order == 1,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	for _, spec := range input.Categories {
		l.Categories = append(l.Categories, &models.FeeCategory{
			ID:        uuid.NewString(),
			LedgerID:  l.ID,
			Name:      spec.Name,
			Priority:  spec.Priority,
			AmountDue: spec.AmountDue,
			Status:    models.CategoryUnpaid,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := c.store.CreateLedger(ctx, l); err != nil {
		return nil, err
	}

	c.log.Info("ledger created",
		zap.String("ledger_id", l.ID),
		zap.String("student_id", l.StudentID),
		zap.Int64("total_fees", l.TotalFees))

	return l, nil
}

// AdjustFees applies a scholarship/discount or correction by changing
// TotalFees. AmountPaid never changes here and the new total can not drop
// below what was already paid. The installment and category due amounts are
// rebalanced alongside the total so the full balance stays collectable.
func (c *Coordinator) AdjustFees(ctx context.Context, ledgerID string, newTotal int64, actorID, reason string) (*models.StudentLedger, error) {
	var lastErr error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		l, err := c.store.GetLedger(ctx, ledgerID)
		if err != nil {
			return nil, err
		}
		if newTotal < l.AmountPaid {
			return nil, fmt.Errorf("new total %d is below amount already paid %d", newTotal, l.AmountPaid)
		}

		oldTotal := l.TotalFees
		l.TotalFees = newTotal
		AdjustScheduleAmounts(l, newTotal-oldTotal, time.Now().UTC())
		l.Recompute()

		audit := &models.AuditLog{
			ID:        uuid.NewString(),
			LedgerID:  l.ID,
			Action:    models.AuditFeesAdjusted,
			Detail:    fmt.Sprintf("total fees adjusted from %d to %d: %s", oldTotal, newTotal, reason),
			ActorID:   actorID,
			CreatedAt: time.Now().UTC(),
		}

		err = c.store.CommitLedgerUpdate(ctx, l, nil, audit)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, lastErr
}

// ArchiveLedger marks a ledger archived at term rollover. Archived ledgers
// stop accepting payments but remain readable.
func (c *Coordinator) ArchiveLedger(ctx context.Context, ledgerID, actorID string) error {
	var lastErr error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt)); err != nil {
				return err
			}
		}

		l, err := c.store.GetLedger(ctx, ledgerID)
		if err != nil {
			return err
		}
		if l.Archived {
			return nil
		}

		l.Archived = true
		audit := &models.AuditLog{
			ID:        uuid.NewString(),
			LedgerID:  l.ID,
			Action:    models.AuditLedgerArchived,
			Detail:    "ledger archived at term rollover",
			ActorID:   actorID,
			CreatedAt: time.Now().UTC(),
		}

		err = c.store.CommitLedgerUpdate(ctx, l, nil, audit)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

// newReceiptNumber builds a human-quotable receipt id.
func newReceiptNumber(at time.Time) string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RCP-%d-%s", at.Year(), fragment)
}

// backoffDelay grows exponentially per attempt; small enough that a caller
// facing real contention still answers quickly.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * 20 * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
