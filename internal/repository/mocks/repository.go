package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-engine/internal/domain"
)

type MockLoanEntryRepository struct {
	mock.Mock
}

func (m *MockLoanEntryRepository) CreateWithSchedule(ctx context.Context, entry *domain.LoanEntry, schedule []*domain.Installment) error {
	args := m.Called(ctx, entry, schedule)
	return args.Error(0)
}

func (m *MockLoanEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanEntry), args.Error(1)
}

func (m *MockLoanEntryRepository) GetSchedule(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanEntryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockLoanEntryRepository) GetOpenInstallments(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanEntryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockLoanEntryRepository) ApplyAllocation(ctx context.Context, balance domain.LoanEntryBalanceUpdate, installments []domain.InstallmentPaymentUpdate, payment *domain.Payment) error {
	args := m.Called(ctx, balance, installments, payment)
	return args.Error(0)
}

func (m *MockLoanEntryRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanEntryRepository) ListActive(ctx context.Context) ([]*domain.LoanEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanEntry), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByLoanEntryID(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanEntryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockReferenceRepository struct {
	mock.Mock
}

func (m *MockReferenceRepository) GetEmployee(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Employee), args.Error(1)
}

func (m *MockReferenceRepository) GetCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

func (m *MockReferenceRepository) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockReferenceRepository) GetPeriod(ctx context.Context, id uuid.UUID) (*domain.Period, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Period), args.Error(1)
}

func (m *MockReferenceRepository) CreatePeriodYear(ctx context.Context, year *domain.PeriodYear, periods []*domain.Period) error {
	args := m.Called(ctx, year, periods)
	return args.Error(0)
}
