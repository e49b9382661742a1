package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentPolicy selects how a payment is spread over open installments
type PaymentPolicy string

const (
	// PaymentPolicyDefault applies the payment to the earliest open installment only.
	PaymentPolicyDefault PaymentPolicy = "Default"
	// PaymentPolicyCustom fills open installments in month order until the payment runs out.
	PaymentPolicyCustom PaymentPolicy = "Custom"
)

// Valid reports whether p is a known policy
func (p PaymentPolicy) Valid() bool {
	return p == PaymentPolicyDefault || p == PaymentPolicyCustom
}

// Payment is the append-only record of one payment submission. Only
// IsDeleted may change after creation.
type Payment struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	LoanEntryID            uuid.UUID       `json:"loan_entry_id" db:"loan_entry_id"`
	LoanEntryCode          string          `json:"loan_entry_code" db:"loan_entry_code"`
	LoanEntryDescription   string          `json:"loan_entry_description" db:"loan_entry_description"`
	EmployeeID             uuid.UUID       `json:"employee_id" db:"employee_id"`
	EmployeeCode           string          `json:"employee_code" db:"employee_code"`
	EmployeeFullname       string          `json:"employee_fullname" db:"employee_fullname"`
	CompanyID              uuid.NullUUID   `json:"company_id" db:"company_id"`
	CompanyName            string          `json:"company_name" db:"company_name"`
	AmountPaid             decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	AppliedAmount          decimal.Decimal `json:"applied_amount" db:"applied_amount"`
	UnappliedAmount        decimal.Decimal `json:"unapplied_amount" db:"unapplied_amount"`
	PaymentType            PaymentPolicy   `json:"payment_type" db:"payment_type"`
	ExpectedMonthlyPayment decimal.Decimal `json:"expected_monthly_payment" db:"expected_monthly_payment"`
	LoanAmount             decimal.Decimal `json:"loan_amount" db:"loan_amount"`
	RemainingBalance       decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	Difference             decimal.Decimal `json:"difference" db:"difference"`
	Processed              bool            `json:"processed" db:"processed"`
	IsDeleted              bool            `json:"is_deleted" db:"is_deleted"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
}

type SubmitPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentType PaymentPolicy   `json:"payment_type"`
	CompanyID   *uuid.UUID      `json:"company_id,omitempty"`
}

type PaymentsResponse struct {
	LoanEntryID uuid.UUID  `json:"loan_entry_id"`
	Payments    []*Payment `json:"payments"`
}
