package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/segyhp/loan-engine/internal/domain"
)

// LoanEntryRepository defines the interface for loan entry and schedule data operations.
// Lookups of missing or soft-deleted rows return sql.ErrNoRows.
type LoanEntryRepository interface {
	// CreateWithSchedule inserts the entry and all of its installments in one transaction
	CreateWithSchedule(ctx context.Context, entry *domain.LoanEntry, schedule []*domain.Installment) error

	// GetByID retrieves a non-deleted loan entry
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanEntry, error)

	// GetSchedule retrieves the non-deleted installments of an entry in ascending month order
	GetSchedule(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error)

	// GetOpenInstallments retrieves the unpaid, non-deleted installments in ascending month order
	GetOpenInstallments(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error)

	// ApplyAllocation writes the installment updates, the aggregate update and the
	// payment record in one transaction. It fails with ErrConcurrencyConflict when
	// the entry version or an installment changed since they were read.
	ApplyAllocation(ctx context.Context, balance domain.LoanEntryBalanceUpdate, installments []domain.InstallmentPaymentUpdate, payment *domain.Payment) error

	// SoftDelete marks the entry, its installments and its payments deleted in one transaction
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// ListActive retrieves every non-deleted entry that is not closed
	ListActive(ctx context.Context) ([]*domain.LoanEntry, error)
}

// PaymentRepository defines the interface for payment data operations.
// Payments are written only through LoanEntryRepository.ApplyAllocation.
type PaymentRepository interface {
	// GetByID retrieves a non-deleted payment
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByLoanEntryID retrieves the non-deleted payments of an entry, oldest first
	GetByLoanEntryID(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Payment, error)
}

// ReferenceRepository reads the records owned by the surrounding CRUD layer
type ReferenceRepository interface {
	GetEmployee(ctx context.Context, id uuid.UUID) (*domain.Employee, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	GetPeriod(ctx context.Context, id uuid.UUID) (*domain.Period, error)

	// CreatePeriodYear inserts a period year with its monthly periods in one transaction
	CreatePeriodYear(ctx context.Context, year *domain.PeriodYear, periods []*domain.Period) error
}
