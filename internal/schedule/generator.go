// Package schedule builds the monthly repayment schedule of a loan entry.
package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// DefaultMaxMonths bounds generated schedules when no limit is configured.
const DefaultMaxMonths = 600

// Terms are the resolved repayment terms of a schedule.
type Terms struct {
	Principal        decimal.Decimal
	MonthlyRepayment decimal.Decimal
	// Duration is the possibly fractional month count, e.g. 1000/300 = 3.33.
	Duration decimal.Decimal
	Months   int
}

// Resolve derives the missing one of duration and monthly repayment.
// A positive repayment takes precedence: the duration is then recomputed from
// it even when one was supplied.
func Resolve(principal, duration, repayment decimal.Decimal, maxMonths int) (Terms, error) {
	if maxMonths <= 0 {
		maxMonths = DefaultMaxMonths
	}
	if !principal.IsPositive() {
		return Terms{}, customError.WrapInsufficientScheduleInput("principal amount must be greater than zero")
	}
	if !principal.Equal(utils.RoundMoney(principal)) {
		return Terms{}, customError.WrapInsufficientScheduleInput("principal amount must have at most two decimal places")
	}
	if duration.IsNegative() || repayment.IsNegative() {
		return Terms{}, customError.WrapInsufficientScheduleInput("duration and monthly repayment must not be negative")
	}

	terms := Terms{Principal: principal}
	switch {
	case repayment.IsPositive():
		terms.MonthlyRepayment = utils.RoundMoney(repayment)
		if !terms.MonthlyRepayment.IsPositive() {
			return Terms{}, customError.WrapInsufficientScheduleInput(
				fmt.Sprintf("monthly repayment %s rounds to zero", repayment))
		}
		terms.Duration = principal.Div(terms.MonthlyRepayment)
	case duration.IsPositive():
		terms.Duration = duration
		terms.MonthlyRepayment = utils.RoundMoney(principal.Div(duration))
		if !terms.MonthlyRepayment.IsPositive() {
			return Terms{}, customError.WrapInsufficientScheduleInput(
				fmt.Sprintf("duration %s is too long for principal %s", duration, principal))
		}
	default:
		return Terms{}, customError.WrapInsufficientScheduleInput("either duration or monthly repayment is required")
	}

	// compared as decimals, the month count may not fit in an int
	if terms.Duration.Ceil().GreaterThan(decimal.NewFromInt(int64(maxMonths))) {
		return Terms{}, customError.WrapInsufficientScheduleInput(
			fmt.Sprintf("schedule of %s months exceeds the maximum of %d", terms.Duration.Ceil(), maxMonths))
	}
	terms.Months = utils.CeilMonths(terms.Duration)

	return terms, nil
}

// Generate walks month 1..Months emitting min(remaining, repayment) each month.
// The final month takes whatever is left so the amounts sum to the principal
// exactly, and the walk stops as soon as nothing remains.
func (t Terms) Generate(loanEntryID uuid.UUID, start time.Time) []*domain.Installment {
	installments := make([]*domain.Installment, 0, t.Months)
	remaining := t.Principal

	for month := 1; month <= t.Months; month++ {
		due := utils.MinDecimal(remaining, t.MonthlyRepayment)
		if month == t.Months {
			due = remaining
		}

		installments = append(installments, &domain.Installment{
			ID:             uuid.New(),
			LoanEntryID:    loanEntryID,
			Month:          month,
			MonthlyPayment: due,
			AmountPaid:     decimal.Zero,
			Difference:     due.Neg(),
			BalanceBF:      remaining,
			Balance:        remaining.Sub(due),
			DueDate:        utils.AddMonths(start, month-1),
		})

		remaining = remaining.Sub(due)
		if !remaining.IsPositive() {
			break
		}
	}

	return installments
}

// Generate resolves the terms and builds the schedule in one step.
func Generate(loanEntryID uuid.UUID, start time.Time, principal, duration, repayment decimal.Decimal, maxMonths int) (Terms, []*domain.Installment, error) {
	terms, err := Resolve(principal, duration, repayment, maxMonths)
	if err != nil {
		return Terms{}, nil, err
	}
	return terms, terms.Generate(loanEntryID, start), nil
}
