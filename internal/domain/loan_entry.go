package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanEntry is one employee's draw against a Loan product. It is the
// aggregate that owns the running payment totals for its schedule.
type LoanEntry struct {
	ID                       uuid.UUID       `json:"id" db:"id"`
	Code                     string          `json:"code" db:"code"`
	LoanID                   uuid.UUID       `json:"loan_id" db:"loan_id"`
	LoanName                 string          `json:"loan_name" db:"loan_name"`
	Description              string          `json:"description" db:"description"`
	Amount                   decimal.Decimal `json:"amount" db:"amount"`
	EmployeeID               uuid.UUID       `json:"employee_id" db:"employee_id"`
	EmployeeCode             string          `json:"employee_code" db:"employee_code"`
	EmployeeFullname         string          `json:"employee_fullname" db:"employee_fullname"`
	NationalID               string          `json:"national_id" db:"national_id"`
	CompanyID                uuid.NullUUID   `json:"company_id" db:"company_id"`
	CompanyName              string          `json:"company_name" db:"company_name"`
	MonthlyRepayment         decimal.Decimal `json:"monthly_repayment" db:"monthly_repayment"`
	Duration                 decimal.Decimal `json:"duration" db:"duration"`
	DeductionStartPeriodID   uuid.UUID       `json:"deduction_start_period_id" db:"deduction_start_period_id"`
	DeductionStartPeriodName string          `json:"deduction_start_period_name" db:"deduction_start_period_name"`
	DeductionStartPeriodCode string          `json:"deduction_start_period_code" db:"deduction_start_period_code"`
	DeductionEndDate         time.Time       `json:"deduction_end_date" db:"deduction_end_date"`
	TotalAmountPaid          decimal.Decimal `json:"total_amount_paid" db:"total_amount_paid"`
	RemainingBalance         decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	Closed                   bool            `json:"closed" db:"closed"`
	Status                   bool            `json:"status" db:"status"`
	Exclude                  bool            `json:"exclude" db:"exclude"`
	IsDeleted                bool            `json:"is_deleted" db:"is_deleted"`
	Version                  int64           `json:"version" db:"version"`
	CreatedAt                time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at" db:"updated_at"`
}

// Active reports whether the entry still accepts deductions.
func (e *LoanEntry) Active() bool {
	return e.Status && !e.Closed && !e.IsDeleted
}

// LoanEntryBalanceUpdate lists the only aggregate fields a payment may change.
// Version is the version the update was computed from.
type LoanEntryBalanceUpdate struct {
	ID               uuid.UUID
	Version          int64
	TotalAmountPaid  decimal.Decimal
	RemainingBalance decimal.Decimal
	Closed           bool
	Status           bool
}

// NewLoanEntryBalanceUpdate computes the aggregate after applied more has been
// paid against entry. Closing is one-way: an already closed entry stays closed.
func NewLoanEntryBalanceUpdate(entry *LoanEntry, applied decimal.Decimal) LoanEntryBalanceUpdate {
	total := entry.TotalAmountPaid.Add(applied)
	remaining := entry.Amount.Sub(total)

	closed := entry.Closed || total.GreaterThanOrEqual(entry.Amount)
	status := entry.Status
	if closed {
		status = false
	}

	return LoanEntryBalanceUpdate{
		ID:               entry.ID,
		Version:          entry.Version,
		TotalAmountPaid:  total,
		RemainingBalance: remaining,
		Closed:           closed,
		Status:           status,
	}
}

// Apply copies the update onto e and bumps its version.
func (u LoanEntryBalanceUpdate) Apply(e *LoanEntry) {
	e.TotalAmountPaid = u.TotalAmountPaid
	e.RemainingBalance = u.RemainingBalance
	e.Closed = u.Closed
	e.Status = u.Status
	e.Version = u.Version + 1
}

// DTOs for requests and responses

type CreateLoanEntryRequest struct {
	LoanID                 uuid.UUID       `json:"loan_id" validate:"required"`
	EmployeeID             uuid.UUID       `json:"employee_id" validate:"required"`
	CompanyID              *uuid.UUID      `json:"company_id,omitempty"`
	DeductionStartPeriodID uuid.UUID       `json:"deduction_start_period_id" validate:"required"`
	Amount                 decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	MonthlyRepayment       decimal.Decimal `json:"monthly_repayment" validate:"decimal_gte=0"`
	Duration               decimal.Decimal `json:"duration" validate:"decimal_gte=0"`
}

type CreateLoanEntryResponse struct {
	LoanEntry *LoanEntry     `json:"loan_entry"`
	Schedule  []*Installment `json:"schedule"`
}

// Drift describes a loan entry whose aggregate disagrees with its installment rows.
type Drift struct {
	LoanEntryID       uuid.UUID       `json:"loan_entry_id"`
	TotalAmountPaid   decimal.Decimal `json:"total_amount_paid"`
	InstallmentsPaid  decimal.Decimal `json:"installments_paid"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance"`
	ExpectedRemaining decimal.Decimal `json:"expected_remaining"`
}
