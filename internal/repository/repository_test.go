package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/schedule"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

type fixture struct {
	db       *sqlx.DB
	entries  repository.LoanEntryRepository
	payments repository.PaymentRepository
	refs     repository.ReferenceRepository

	employee *domain.Employee
	company  *domain.Company
	loan     *domain.Loan
	period   *domain.Period
}

func setupTestDB(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "loan_engine.db"))
	db, err := repository.Open(repository.Options{Driver: repository.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, repository.Migrate(ctx, db))

	f := &fixture{
		db:       db,
		entries:  repository.NewLoanEntryRepository(db),
		payments: repository.NewPaymentRepository(db),
		refs:     repository.NewReferenceRepository(db),
		employee: &domain.Employee{ID: uuid.New(), Code: "EMP-001", Fullname: "Ada Obi", NationalID: "A123"},
		company:  &domain.Company{ID: uuid.New(), Name: "Acme"},
		loan:     &domain.Loan{ID: uuid.New(), Code: "LN-01", Name: "Staff Loan"},
	}

	db.MustExec(db.Rebind(`INSERT INTO employees (id, code, fullname, national_id) VALUES (?, ?, ?, ?)`),
		f.employee.ID, f.employee.Code, f.employee.Fullname, f.employee.NationalID)
	db.MustExec(db.Rebind(`INSERT INTO companies (id, name) VALUES (?, ?)`), f.company.ID, f.company.Name)
	db.MustExec(db.Rebind(`INSERT INTO loans (id, code, name) VALUES (?, ?, ?)`), f.loan.ID, f.loan.Code, f.loan.Name)

	year := &domain.PeriodYear{ID: uuid.New(), Year: 2024, CompanyID: uuid.NullUUID{UUID: f.company.ID, Valid: true}, CreatedAt: time.Now().UTC()}
	f.period = &domain.Period{
		ID:                uuid.New(),
		PeriodYearID:      uuid.NullUUID{UUID: year.ID, Valid: true},
		Month:             1,
		Year:              2024,
		PeriodCode:        "JAN24",
		PeriodName:        "January 2024",
		StartDate:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		NoOfDays:          31,
		TotalWorkingDays:  23,
		TotalWorkingHours: 184,
	}
	require.NoError(t, f.refs.CreatePeriodYear(ctx, year, []*domain.Period{f.period}))

	return f
}

// seedEntry stores an entry of principal with a schedule built from repayment
func (f *fixture) seedEntry(t *testing.T, principal, repayment string) (*domain.LoanEntry, []*domain.Installment) {
	t.Helper()

	id := uuid.New()
	terms, installments, err := schedule.Generate(id, f.period.StartDate,
		decimal.RequireFromString(principal), decimal.Zero, decimal.RequireFromString(repayment), schedule.DefaultMaxMonths)
	require.NoError(t, err)

	now := time.Now().UTC()
	entry := &domain.LoanEntry{
		ID:                       id,
		Code:                     "LE-0001",
		LoanID:                   f.loan.ID,
		LoanName:                 f.loan.Name,
		Amount:                   terms.Principal,
		EmployeeID:               f.employee.ID,
		EmployeeCode:             f.employee.Code,
		EmployeeFullname:         f.employee.Fullname,
		CompanyID:                uuid.NullUUID{UUID: f.company.ID, Valid: true},
		CompanyName:              f.company.Name,
		MonthlyRepayment:         terms.MonthlyRepayment,
		Duration:                 decimal.NewFromInt(int64(len(installments))),
		DeductionStartPeriodID:   f.period.ID,
		DeductionStartPeriodName: f.period.PeriodName,
		DeductionStartPeriodCode: f.period.PeriodCode,
		DeductionEndDate:         installments[len(installments)-1].DueDate,
		TotalAmountPaid:          decimal.Zero,
		RemainingBalance:         terms.Principal,
		Status:                   true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	for _, installment := range installments {
		installment.CreatedAt = now
		installment.UpdatedAt = now
	}

	require.NoError(t, f.entries.CreateWithSchedule(context.Background(), entry, installments))
	return entry, installments
}

func (f *fixture) payment(entry *domain.LoanEntry, amount string) *domain.Payment {
	return &domain.Payment{
		ID:                     uuid.New(),
		LoanEntryID:            entry.ID,
		EmployeeID:             entry.EmployeeID,
		CompanyID:              entry.CompanyID,
		AmountPaid:             decimal.RequireFromString(amount),
		AppliedAmount:          decimal.RequireFromString(amount),
		UnappliedAmount:        decimal.Zero,
		PaymentType:            domain.PaymentPolicyCustom,
		ExpectedMonthlyPayment: entry.MonthlyRepayment,
		LoanAmount:             entry.Amount,
		RemainingBalance:       entry.Amount.Sub(decimal.RequireFromString(amount)),
		Difference:             decimal.Zero,
		Processed:              true,
		CreatedAt:              time.Now().UTC(),
	}
}

func TestLoanEntryRepository_CreateWithSchedule(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	entry, installments := f.seedEntry(t, "1000", "300")

	got, err := f.entries.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Code, got.Code)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, got.RemainingBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, got.CompanyID.Valid)
	assert.Equal(t, int64(0), got.Version)
	assert.True(t, got.Status)
	assert.False(t, got.Closed)

	rows, err := f.entries.GetSchedule(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, rows, len(installments))

	expected := []string{"300", "300", "300", "100"}
	for i, row := range rows {
		assert.Equal(t, i+1, row.Month)
		assert.True(t, row.MonthlyPayment.Equal(decimal.RequireFromString(expected[i])), "month %d", row.Month)
		assert.True(t, row.Difference.Equal(row.MonthlyPayment.Neg()))
		assert.False(t, row.Paid)
	}
	assert.Equal(t, 2024, rows[3].DueDate.Year())
	assert.Equal(t, time.April, rows[3].DueDate.Month())
}

func TestLoanEntryRepository_GetByID_NotFound(t *testing.T) {
	f := setupTestDB(t)

	_, err := f.entries.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLoanEntryRepository_CreateWithSchedule_DuplicateMonthRollsBack(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	entry, installments := f.seedEntry(t, "1000", "500")
	entry.ID = uuid.New()
	for _, installment := range installments {
		installment.ID = uuid.New()
		installment.LoanEntryID = entry.ID
	}
	installments[1].Month = installments[0].Month

	err := f.entries.CreateWithSchedule(ctx, entry, installments)
	require.Error(t, err)

	_, err = f.entries.GetByID(ctx, entry.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLoanEntryRepository_ApplyAllocation(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	entry, installments := f.seedEntry(t, "1000", "300")

	balance := domain.NewLoanEntryBalanceUpdate(entry, decimal.NewFromInt(400))
	updates := []domain.InstallmentPaymentUpdate{
		{ID: installments[0].ID, Month: 1, Applied: decimal.NewFromInt(300), AmountPaid: decimal.NewFromInt(300), Difference: decimal.Zero, Paid: true},
		{ID: installments[1].ID, Month: 2, Applied: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(100), Difference: decimal.NewFromInt(-200), Paid: false},
	}
	payment := f.payment(entry, "400")

	require.NoError(t, f.entries.ApplyAllocation(ctx, balance, updates, payment))

	got, err := f.entries.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmountPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, got.RemainingBalance.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, int64(1), got.Version)

	open, err := f.entries.GetOpenInstallments(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, 2, open[0].Month)
	assert.True(t, open[0].AmountPaid.Equal(decimal.NewFromInt(100)))

	stored, err := f.payments.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPolicyCustom, stored.PaymentType)
	assert.True(t, stored.AmountPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, stored.Processed)
}

func TestLoanEntryRepository_ApplyAllocation_StaleVersion(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	entry, installments := f.seedEntry(t, "1000", "300")

	first := domain.NewLoanEntryBalanceUpdate(entry, decimal.NewFromInt(300))
	require.NoError(t, f.entries.ApplyAllocation(ctx, first, []domain.InstallmentPaymentUpdate{
		{ID: installments[0].ID, Month: 1, Applied: decimal.NewFromInt(300), AmountPaid: decimal.NewFromInt(300), Difference: decimal.Zero, Paid: true},
	}, f.payment(entry, "300")))

	// entry still carries version 0
	stale := domain.NewLoanEntryBalanceUpdate(entry, decimal.NewFromInt(300))
	loser := f.payment(entry, "300")
	err := f.entries.ApplyAllocation(ctx, stale, []domain.InstallmentPaymentUpdate{
		{ID: installments[1].ID, Month: 2, Applied: decimal.NewFromInt(300), AmountPaid: decimal.NewFromInt(300), Difference: decimal.Zero, Paid: true},
	}, loser)
	require.Error(t, err)
	assert.ErrorIs(t, err, customError.ErrConcurrencyConflict)

	got, err := f.entries.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmountPaid.Equal(decimal.NewFromInt(300)))

	open, err := f.entries.GetOpenInstallments(ctx, entry.ID)
	require.NoError(t, err)
	assert.Len(t, open, 3)

	_, err = f.payments.GetByID(ctx, loser.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLoanEntryRepository_ApplyAllocation_InstallmentAlreadyPaid(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	entry, installments := f.seedEntry(t, "600", "300")
	paidFirst := domain.InstallmentPaymentUpdate{ID: installments[0].ID, Month: 1, Applied: decimal.NewFromInt(300), AmountPaid: decimal.NewFromInt(300), Difference: decimal.Zero, Paid: true}

	balance := domain.NewLoanEntryBalanceUpdate(entry, decimal.NewFromInt(300))
	require.NoError(t, f.entries.ApplyAllocation(ctx, balance, []domain.InstallmentPaymentUpdate{paidFirst}, f.payment(entry, "300")))

	current, err := f.entries.GetByID(ctx, entry.ID)
	require.NoError(t, err)

	// fresh version but a closed installment
	err = f.entries.ApplyAllocation(ctx, domain.NewLoanEntryBalanceUpdate(current, decimal.NewFromInt(300)),
		[]domain.InstallmentPaymentUpdate{paidFirst}, f.payment(entry, "300"))
	assert.ErrorIs(t, err, customError.ErrConcurrencyConflict)

	after, err := f.entries.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, current.Version, after.Version)
}

func TestLoanEntryRepository_SoftDelete(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	entry, installments := f.seedEntry(t, "600", "300")
	payment := f.payment(entry, "300")
	require.NoError(t, f.entries.ApplyAllocation(ctx, domain.NewLoanEntryBalanceUpdate(entry, decimal.NewFromInt(300)),
		[]domain.InstallmentPaymentUpdate{
			{ID: installments[0].ID, Month: 1, Applied: decimal.NewFromInt(300), AmountPaid: decimal.NewFromInt(300), Difference: decimal.Zero, Paid: true},
		}, payment))

	require.NoError(t, f.entries.SoftDelete(ctx, entry.ID))

	_, err := f.entries.GetByID(ctx, entry.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	rows, err := f.entries.GetSchedule(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	payments, err := f.payments.GetByLoanEntryID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	assert.ErrorIs(t, f.entries.SoftDelete(ctx, entry.ID), sql.ErrNoRows)
}

func TestLoanEntryRepository_ListActive(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	open, _ := f.seedEntry(t, "600", "300")
	closed, closedSchedule := f.seedEntry(t, "300", "300")
	deleted, _ := f.seedEntry(t, "900", "300")

	require.NoError(t, f.entries.ApplyAllocation(ctx, domain.NewLoanEntryBalanceUpdate(closed, decimal.NewFromInt(300)),
		[]domain.InstallmentPaymentUpdate{
			{ID: closedSchedule[0].ID, Month: 1, Applied: decimal.NewFromInt(300), AmountPaid: decimal.NewFromInt(300), Difference: decimal.Zero, Paid: true},
		}, f.payment(closed, "300")))
	require.NoError(t, f.entries.SoftDelete(ctx, deleted.ID))

	active, err := f.entries.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)
}

func TestPaymentRepository_GetByLoanEntryID(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	entry, installments := f.seedEntry(t, "900", "300")
	current := entry
	for i := 0; i < 2; i++ {
		update := domain.NewLoanEntryBalanceUpdate(current, decimal.NewFromInt(300))
		require.NoError(t, f.entries.ApplyAllocation(ctx, update, []domain.InstallmentPaymentUpdate{
			{ID: installments[i].ID, Month: i + 1, Applied: decimal.NewFromInt(300), AmountPaid: decimal.NewFromInt(300), Difference: decimal.Zero, Paid: true},
		}, f.payment(entry, "300")))

		var err error
		current, err = f.entries.GetByID(ctx, entry.ID)
		require.NoError(t, err)
	}

	payments, err := f.payments.GetByLoanEntryID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	other, err := f.payments.GetByLoanEntryID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReferenceRepository_Lookups(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	employee, err := f.refs.GetEmployee(ctx, f.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", employee.Fullname)

	company, err := f.refs.GetCompany(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", company.Name)

	loan, err := f.refs.GetLoan(ctx, f.loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "LN-01", loan.Code)

	period, err := f.refs.GetPeriod(ctx, f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, "JAN24", period.PeriodCode)
	assert.Equal(t, 23, period.TotalWorkingDays)
	assert.Equal(t, 1, period.StartDate.Day())

	_, err = f.refs.GetEmployee(ctx, uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
