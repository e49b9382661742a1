package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

// memoryStore is an in-memory stand-in for the three repositories. Reads and
// writes copy records so callers never share pointers with the store.
type memoryStore struct {
	mu sync.Mutex

	entries      map[uuid.UUID]*domain.LoanEntry
	installments map[uuid.UUID][]*domain.Installment
	payments     map[uuid.UUID][]*domain.Payment

	employees map[uuid.UUID]*domain.Employee
	companies map[uuid.UUID]*domain.Company
	loans     map[uuid.UUID]*domain.Loan
	periods   map[uuid.UUID]*domain.Period
	years     []*domain.PeriodYear

	// conflicts makes the next n ApplyAllocation calls fail as if another writer won
	conflicts    int
	applyCalls   int
	scheduleHits int

	// afterScheduleRead runs once, after the next GetSchedule has read its rows
	afterScheduleRead func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		entries:      make(map[uuid.UUID]*domain.LoanEntry),
		installments: make(map[uuid.UUID][]*domain.Installment),
		payments:     make(map[uuid.UUID][]*domain.Payment),
		employees:    make(map[uuid.UUID]*domain.Employee),
		companies:    make(map[uuid.UUID]*domain.Company),
		loans:        make(map[uuid.UUID]*domain.Loan),
		periods:      make(map[uuid.UUID]*domain.Period),
	}
}

func (m *memoryStore) CreateWithSchedule(_ context.Context, entry *domain.LoanEntry, schedule []*domain.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := *entry
	m.entries[entry.ID] = &e
	rows := make([]*domain.Installment, 0, len(schedule))
	for _, inst := range schedule {
		i := *inst
		rows = append(rows, &i)
	}
	m.installments[entry.ID] = rows
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.LoanEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.IsDeleted {
		return nil, sql.ErrNoRows
	}
	c := *e
	return &c, nil
}

func (m *memoryStore) GetSchedule(_ context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error) {
	m.mu.Lock()
	m.scheduleHits++
	rows := m.copyInstallments(loanEntryID, func(i *domain.Installment) bool { return !i.IsDeleted })
	hook := m.afterScheduleRead
	m.afterScheduleRead = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return rows, nil
}

func (m *memoryStore) GetOpenInstallments(_ context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.copyInstallments(loanEntryID, func(i *domain.Installment) bool { return i.Open() }), nil
}

func (m *memoryStore) copyInstallments(loanEntryID uuid.UUID, keep func(*domain.Installment) bool) []*domain.Installment {
	var out []*domain.Installment
	for _, inst := range m.installments[loanEntryID] {
		if keep(inst) {
			c := *inst
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Month < out[b].Month })
	return out
}

func (m *memoryStore) ApplyAllocation(_ context.Context, balance domain.LoanEntryBalanceUpdate, updates []domain.InstallmentPaymentUpdate, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applyCalls++
	if m.conflicts > 0 {
		m.conflicts--
		return customError.WrapConcurrencyConflict(balance.ID.String())
	}

	entry, ok := m.entries[balance.ID]
	if !ok || entry.IsDeleted || entry.Version != balance.Version {
		return customError.WrapConcurrencyConflict(balance.ID.String())
	}

	byID := make(map[uuid.UUID]*domain.Installment)
	for _, inst := range m.installments[balance.ID] {
		byID[inst.ID] = inst
	}
	for _, u := range updates {
		inst, ok := byID[u.ID]
		if !ok || !inst.Open() {
			return customError.WrapConcurrencyConflict(balance.ID.String())
		}
	}

	// all checks passed, commit
	for _, u := range updates {
		u.Apply(byID[u.ID])
		byID[u.ID].UpdatedAt = time.Now().UTC()
	}
	balance.Apply(entry)
	p := *payment
	m.payments[balance.ID] = append(m.payments[balance.ID], &p)
	return nil
}

func (m *memoryStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok || entry.IsDeleted {
		return sql.ErrNoRows
	}
	entry.IsDeleted = true
	entry.Version++
	for _, inst := range m.installments[id] {
		inst.IsDeleted = true
	}
	for _, p := range m.payments[id] {
		p.IsDeleted = true
	}
	return nil
}

func (m *memoryStore) ListActive(_ context.Context) ([]*domain.LoanEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.LoanEntry
	for _, e := range m.entries {
		if !e.IsDeleted && !e.Closed {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memoryStore) GetByLoanEntryID(_ context.Context, loanEntryID uuid.UUID) ([]*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Payment
	for _, p := range m.payments[loanEntryID] {
		if !p.IsDeleted {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

// paymentStore exposes the payment half of memoryStore; GetByID clashes with the entry lookup
type paymentStore struct{ *memoryStore }

func (p paymentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, payments := range p.payments {
		for _, payment := range payments {
			if payment.ID == id && !payment.IsDeleted {
				c := *payment
				return &c, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) GetEmployee(_ context.Context, id uuid.UUID) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.employees[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) GetCompany(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.companies[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) GetLoan(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.loans[id]; ok {
		return l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) GetPeriod(_ context.Context, id uuid.UUID) (*domain.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.periods[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) CreatePeriodYear(_ context.Context, year *domain.PeriodYear, periods []*domain.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.years = append(m.years, year)
	for _, p := range periods {
		m.periods[p.ID] = p
	}
	return nil
}
