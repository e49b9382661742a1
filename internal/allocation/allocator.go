// Package allocation applies a payment against the open installments of a loan entry.
//
// Allocate is pure: it never mutates its inputs and returns the typed updates
// the caller must persist together with the payment record in one transaction.
package allocation

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// Allocation is the full effect of one payment submission
type Allocation struct {
	Installments []domain.InstallmentPaymentUpdate
	Balance      domain.LoanEntryBalanceUpdate
	Payment      *domain.Payment
	Applied      decimal.Decimal
	Unapplied    decimal.Decimal
}

// Allocate spreads amount over the open installments of entry according to
// policy. Paid or deleted rows in open are ignored and the rest are walked in
// ascending month order.
func Allocate(entry *domain.LoanEntry, open []*domain.Installment, amount decimal.Decimal, policy domain.PaymentPolicy) (*Allocation, error) {
	if amount.IsNegative() {
		return nil, customError.WrapInvalidPaymentAmount(amount.String())
	}
	if !policy.Valid() {
		return nil, customError.WrapInvalidPaymentPolicy(string(policy))
	}
	open = filterOpen(open)
	if len(open) == 0 {
		return nil, customError.WrapNoScheduleFound(entry.ID.String())
	}

	var updates []domain.InstallmentPaymentUpdate
	switch policy {
	case domain.PaymentPolicyDefault:
		updates = allocateDefault(entry, open[0], amount)
	case domain.PaymentPolicyCustom:
		updates = allocateCustom(open, amount)
	}

	applied := decimal.Zero
	for _, u := range updates {
		applied = applied.Add(u.Applied)
	}

	balance := domain.NewLoanEntryBalanceUpdate(entry, applied)
	expected := open[0].MonthlyPayment

	return &Allocation{
		Installments: updates,
		Balance:      balance,
		Applied:      applied,
		Unapplied:    amount.Sub(applied),
		Payment:      newPayment(entry, policy, amount, applied, expected, balance),
	}, nil
}

// allocateDefault targets only the earliest open installment. The applied amount
// is capped at what is left on the loan, and the installment is marked paid
// whether or not the due amount was met.
func allocateDefault(entry *domain.LoanEntry, target *domain.Installment, amount decimal.Decimal) []domain.InstallmentPaymentUpdate {
	outstanding := utils.MaxDecimal(entry.Amount.Sub(entry.TotalAmountPaid), decimal.Zero)
	applied := utils.MinDecimal(amount, outstanding)
	paid := target.AmountPaid.Add(applied)

	return []domain.InstallmentPaymentUpdate{{
		ID:         target.ID,
		Month:      target.Month,
		Applied:    applied,
		AmountPaid: paid,
		Difference: paid.Sub(target.MonthlyPayment),
		Paid:       true,
	}}
}

// allocateCustom fills installments in month order. Whatever is left once every
// open installment is satisfied stays unapplied.
func allocateCustom(open []*domain.Installment, amount decimal.Decimal) []domain.InstallmentPaymentUpdate {
	var updates []domain.InstallmentPaymentUpdate
	remaining := amount

	for _, inst := range open {
		if !remaining.IsPositive() {
			break
		}

		applied := utils.MinDecimal(remaining, inst.Room())
		if !applied.IsPositive() {
			continue
		}

		paid := inst.AmountPaid.Add(applied)
		updates = append(updates, domain.InstallmentPaymentUpdate{
			ID:         inst.ID,
			Month:      inst.Month,
			Applied:    applied,
			AmountPaid: paid,
			Difference: paid.Sub(inst.MonthlyPayment),
			Paid:       paid.GreaterThanOrEqual(inst.MonthlyPayment),
		})
		remaining = remaining.Sub(applied)
	}

	return updates
}

func filterOpen(installments []*domain.Installment) []*domain.Installment {
	open := make([]*domain.Installment, 0, len(installments))
	for _, inst := range installments {
		if inst != nil && inst.Open() {
			open = append(open, inst)
		}
	}
	slices.SortStableFunc(open, func(a, b *domain.Installment) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return open
}

func newPayment(entry *domain.LoanEntry, policy domain.PaymentPolicy, amount, applied, expected decimal.Decimal, balance domain.LoanEntryBalanceUpdate) *domain.Payment {
	return &domain.Payment{
		ID:                     uuid.New(),
		LoanEntryID:            entry.ID,
		LoanEntryCode:          entry.Code,
		LoanEntryDescription:   entry.Description,
		EmployeeID:             entry.EmployeeID,
		EmployeeCode:           entry.EmployeeCode,
		EmployeeFullname:       entry.EmployeeFullname,
		CompanyID:              entry.CompanyID,
		CompanyName:            entry.CompanyName,
		AmountPaid:             amount,
		AppliedAmount:          applied,
		UnappliedAmount:        amount.Sub(applied),
		PaymentType:            policy,
		ExpectedMonthlyPayment: expected,
		LoanAmount:             entry.Amount,
		RemainingBalance:       balance.RemainingBalance,
		Difference:             applied.Sub(expected),
		Processed:              applied.IsPositive(),
		CreatedAt:              time.Now().UTC(),
	}
}
