package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled monthly obligation of a loan entry
type Installment struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanEntryID      uuid.UUID       `json:"loan_entry_id" db:"loan_entry_id"`
	Month            int             `json:"month" db:"month"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment" db:"monthly_payment"`
	AmountPaid       decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	Difference       decimal.Decimal `json:"difference" db:"difference"`
	Paid             bool            `json:"paid" db:"paid"`
	BalanceBF        decimal.Decimal `json:"balance_bf" db:"balance_bf"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	DueDate          time.Time       `json:"due_date" db:"due_date"`
	EmployeeCode     string          `json:"employee_code" db:"employee_code"`
	EmployeeFullname string          `json:"employee_fullname" db:"employee_fullname"`
	IsDeleted        bool            `json:"is_deleted" db:"is_deleted"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Open reports whether the installment can still receive payments.
func (i *Installment) Open() bool {
	return !i.Paid && !i.IsDeleted
}

// Room is what is still owed on the installment; it may be negative after an overpayment.
func (i *Installment) Room() decimal.Decimal {
	return i.MonthlyPayment.Sub(i.AmountPaid)
}

// InstallmentPaymentUpdate lists the only installment fields a payment may change.
type InstallmentPaymentUpdate struct {
	ID         uuid.UUID
	Month      int
	Applied    decimal.Decimal
	AmountPaid decimal.Decimal
	Difference decimal.Decimal
	Paid       bool
}

// Apply copies the update onto i.
func (u InstallmentPaymentUpdate) Apply(i *Installment) {
	i.AmountPaid = u.AmountPaid
	i.Difference = u.Difference
	i.Paid = u.Paid
}

type ScheduleResponse struct {
	LoanEntryID uuid.UUID      `json:"loan_entry_id"`
	Schedule    []*Installment `json:"schedule"`
}
