package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-engine/internal/domain"
)

type MockLoanEntryService struct {
	mock.Mock
}

func (m *MockLoanEntryService) CreateLoanEntry(ctx context.Context, request *domain.CreateLoanEntryRequest) (*domain.LoanEntry, []*domain.Installment, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.LoanEntry), args.Get(1).([]*domain.Installment), args.Error(2)
}

func (m *MockLoanEntryService) GetLoanEntry(ctx context.Context, id uuid.UUID) (*domain.LoanEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanEntry), args.Error(1)
}

func (m *MockLoanEntryService) SubmitPayment(ctx context.Context, loanEntryID uuid.UUID, request *domain.SubmitPaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, loanEntryID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockLoanEntryService) ListSchedule(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanEntryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockLoanEntryService) ListPayments(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanEntryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockLoanEntryService) DeleteLoanEntry(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanEntryService) GeneratePeriodYear(ctx context.Context, request *domain.CreatePeriodYearRequest) (*domain.PeriodYear, []*domain.Period, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.PeriodYear), args.Get(1).([]*domain.Period), args.Error(2)
}
