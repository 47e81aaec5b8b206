package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
)

// MemoryStore is an in-process Store with the same optimistic-concurrency
// semantics as the Postgres store: reads hand out deep copies, commits check
// the stored version. Used by the engine tests and when no database is
// configured.
type MemoryStore struct {
	mu       sync.Mutex
	ledgers  map[string]*models.StudentLedger
	payments map[string]*models.Payment
	refs     map[string]string // schoolID+"/"+transactionRef -> paymentID
	audits   []*models.AuditLog
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers:  make(map[string]*models.StudentLedger),
		payments: make(map[string]*models.Payment),
		refs:     make(map[string]string),
	}
}

// CreateLedger implements Store.
func (s *MemoryStore) CreateLedger(_ context.Context, l *models.StudentLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.ID] = copyLedger(l)
	return nil
}

// GetLedger implements Store.
func (s *MemoryStore) GetLedger(_ context.Context, ledgerID string) (*models.StudentLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[ledgerID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLedger(l), nil
}

// GetActiveLedgerForStudent implements Store.
func (s *MemoryStore) GetActiveLedgerForStudent(_ context.Context, studentID string) (*models.StudentLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.ledgers {
		if l.StudentID == studentID && !l.Archived {
			return copyLedger(l), nil
		}
	}
	return nil, ErrNotFound
}

// GetPayment implements Store.
func (s *MemoryStore) GetPayment(_ context.Context, paymentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPayment(p), nil
}

// ListPaymentsForStudent implements Store.
func (s *MemoryStore) ListPaymentsForStudent(_ context.Context, studentID string) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Payment
	for _, p := range s.payments {
		if p.StudentID == studentID {
			out = append(out, copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

// FindPaymentByRef implements Store.
func (s *MemoryStore) FindPaymentByRef(_ context.Context, schoolID, transactionRef string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refs[schoolID+"/"+transactionRef]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPayment(s.payments[id]), nil
}

// CommitPayment implements Store.
func (s *MemoryStore) CommitPayment(_ context.Context, l *models.StudentLedger, p *models.Payment, audit *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.ledgers[l.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != l.Version {
		return ErrConflict
	}

	refKey := p.SchoolID + "/" + p.TransactionRef
	if _, taken := s.refs[refKey]; taken {
		return ErrDuplicateTransaction
	}

	l.Version++
	s.ledgers[l.ID] = copyLedger(l)
	s.payments[p.ID] = copyPayment(p)
	s.refs[refKey] = p.ID
	if audit != nil {
		s.audits = append(s.audits, audit)
	}
	return nil
}

// CommitLedgerUpdate implements Store.
func (s *MemoryStore) CommitLedgerUpdate(_ context.Context, l *models.StudentLedger, p *models.Payment, audit *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.ledgers[l.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != l.Version {
		return ErrConflict
	}

	l.Version++
	s.ledgers[l.ID] = copyLedger(l)
	if p != nil {
		s.payments[p.ID] = copyPayment(p)
	}
	if audit != nil {
		s.audits = append(s.audits, audit)
	}
	return nil
}

// ListLedgersWithDeadlinesBefore implements Store.
func (s *MemoryStore) ListLedgersWithDeadlinesBefore(_ context.Context, cutoff time.Time) ([]*models.StudentLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StudentLedger
	for _, l := range s.ledgers {
		if l.Archived {
			continue
		}
		for _, inst := range l.Installments {
			if !inst.IsCompleted() && inst.Deadline.Before(cutoff) {
				out = append(out, copyLedger(l))
				break
			}
		}
	}
	return out, nil
}

// AuditTrail returns the recorded audit entries, oldest first.
func (s *MemoryStore) AuditTrail() []*models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AuditLog, len(s.audits))
	copy(out, s.audits)
	return out
}

func copyLedger(l *models.StudentLedger) *models.StudentLedger {
	dup := *l
	dup.Installments = make([]*models.Installment, len(l.Installments))
	for i, inst := range l.Installments {
		instDup := *inst
		if inst.CompletedAt != nil {
			at := *inst.CompletedAt
			instDup.CompletedAt = &at
		}
		dup.Installments[i] = &instDup
	}
	dup.Categories = make([]*models.FeeCategory, len(l.Categories))
	for i, cat := range l.Categories {
		catDup := *cat
		dup.Categories[i] = &catDup
	}
	return &dup
}

func copyPayment(p *models.Payment) *models.Payment {
	dup := *p
	if p.Notes != nil {
		n := *p.Notes
		dup.Notes = &n
	}
	if p.ReversedAt != nil {
		at := *p.ReversedAt
		dup.ReversedAt = &at
	}
	dup.Allocations = make([]*models.PaymentAllocation, len(p.Allocations))
	for i, a := range p.Allocations {
		aDup := *a
		dup.Allocations[i] = &aDup
	}
	return &dup
}
