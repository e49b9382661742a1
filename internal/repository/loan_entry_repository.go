package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

const loanEntryColumns = `id, code, loan_id, loan_name, description, amount, employee_id, employee_code,
	employee_fullname, national_id, company_id, company_name, monthly_repayment, duration,
	deduction_start_period_id, deduction_start_period_name, deduction_start_period_code,
	deduction_end_date, total_amount_paid, remaining_balance, closed, status, exclude,
	is_deleted, version, created_at, updated_at`

const installmentColumns = `id, loan_entry_id, month, monthly_payment, amount_paid, difference, paid,
	balance_bf, balance, due_date, employee_code, employee_fullname, is_deleted, created_at, updated_at`

type loanEntryRepository struct {
	db *sqlx.DB
}

func NewLoanEntryRepository(db *sqlx.DB) LoanEntryRepository {
	return &loanEntryRepository{db: db}
}

func (r *loanEntryRepository) CreateWithSchedule(ctx context.Context, entry *domain.LoanEntry, schedule []*domain.Installment) error {
	entryQuery := `
		INSERT INTO loan_entries (` + loanEntryColumns + `)
		VALUES (:id, :code, :loan_id, :loan_name, :description, :amount, :employee_id, :employee_code,
			:employee_fullname, :national_id, :company_id, :company_name, :monthly_repayment, :duration,
			:deduction_start_period_id, :deduction_start_period_name, :deduction_start_period_code,
			:deduction_end_date, :total_amount_paid, :remaining_balance, :closed, :status, :exclude,
			:is_deleted, :version, :created_at, :updated_at)
	`

	installmentQuery := `
		INSERT INTO payment_schedules (` + installmentColumns + `)
		VALUES (:id, :loan_entry_id, :month, :monthly_payment, :amount_paid, :difference, :paid,
			:balance_bf, :balance, :due_date, :employee_code, :employee_fullname, :is_deleted, :created_at, :updated_at)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, entryQuery, entry); err != nil {
		return err
	}

	for _, installment := range schedule {
		if _, err = tx.NamedExecContext(ctx, installmentQuery, installment); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanEntry, error) {
	query := r.db.Rebind(`
		SELECT ` + loanEntryColumns + `
		FROM loan_entries
		WHERE id = ? AND is_deleted = FALSE
	`)

	var entry domain.LoanEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *loanEntryRepository) GetSchedule(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error) {
	query := r.db.Rebind(`
		SELECT ` + installmentColumns + `
		FROM payment_schedules
		WHERE loan_entry_id = ? AND is_deleted = FALSE
		ORDER BY month
	`)

	var schedule []*domain.Installment
	if err := r.db.SelectContext(ctx, &schedule, query, loanEntryID); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (r *loanEntryRepository) GetOpenInstallments(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error) {
	query := r.db.Rebind(`
		SELECT ` + installmentColumns + `
		FROM payment_schedules
		WHERE loan_entry_id = ? AND paid = FALSE AND is_deleted = FALSE
		ORDER BY month
	`)

	var open []*domain.Installment
	if err := r.db.SelectContext(ctx, &open, query, loanEntryID); err != nil {
		return nil, err
	}

	return open, nil
}

func (r *loanEntryRepository) ApplyAllocation(
	ctx context.Context,
	balance domain.LoanEntryBalanceUpdate,
	installments []domain.InstallmentPaymentUpdate,
	payment *domain.Payment,
) error {
	now := time.Now().UTC()

	entryQuery := r.db.Rebind(`
		UPDATE loan_entries
		SET total_amount_paid = ?, remaining_balance = ?, closed = ?, status = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND is_deleted = FALSE
	`)

	installmentQuery := r.db.Rebind(`
		UPDATE payment_schedules
		SET amount_paid = ?, difference = ?, paid = ?, updated_at = ?
		WHERE id = ? AND loan_entry_id = ? AND paid = FALSE AND is_deleted = FALSE
	`)

	paymentQuery := `
		INSERT INTO payments (id, loan_entry_id, loan_entry_code, loan_entry_description, employee_id,
			employee_code, employee_fullname, company_id, company_name, amount_paid, applied_amount,
			unapplied_amount, payment_type, expected_monthly_payment, loan_amount, remaining_balance,
			difference, processed, is_deleted, created_at)
		VALUES (:id, :loan_entry_id, :loan_entry_code, :loan_entry_description, :employee_id,
			:employee_code, :employee_fullname, :company_id, :company_name, :amount_paid, :applied_amount,
			:unapplied_amount, :payment_type, :expected_monthly_payment, :loan_amount, :remaining_balance,
			:difference, :processed, :is_deleted, :created_at)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The version check runs first so a losing writer stops before touching installments.
	result, err := tx.ExecContext(ctx, entryQuery,
		balance.TotalAmountPaid,
		balance.RemainingBalance,
		balance.Closed,
		balance.Status,
		now,
		balance.ID,
		balance.Version,
	)
	if err != nil {
		return err
	}
	if err = requireRow(result, balance.ID); err != nil {
		return err
	}

	for _, update := range installments {
		result, err = tx.ExecContext(ctx, installmentQuery,
			update.AmountPaid,
			update.Difference,
			update.Paid,
			now,
			update.ID,
			balance.ID,
		)
		if err != nil {
			return err
		}
		if err = requireRow(result, balance.ID); err != nil {
			return err
		}
	}

	if _, err = tx.NamedExecContext(ctx, paymentQuery, payment); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanEntryRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, r.db.Rebind(`
		UPDATE loan_entries SET is_deleted = TRUE, updated_at = ?, version = version + 1
		WHERE id = ? AND is_deleted = FALSE
	`), now, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err = tx.ExecContext(ctx, r.db.Rebind(`
		UPDATE payment_schedules SET is_deleted = TRUE, updated_at = ?
		WHERE loan_entry_id = ? AND is_deleted = FALSE
	`), now, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, r.db.Rebind(`
		UPDATE payments SET is_deleted = TRUE
		WHERE loan_entry_id = ? AND is_deleted = FALSE
	`), id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanEntryRepository) ListActive(ctx context.Context) ([]*domain.LoanEntry, error) {
	query := `
		SELECT ` + loanEntryColumns + `
		FROM loan_entries
		WHERE is_deleted = FALSE AND closed = FALSE
		ORDER BY created_at
	`

	var entries []*domain.LoanEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, err
	}

	return entries, nil
}

// requireRow turns a zero-row update into a concurrency conflict
func requireRow(result sql.Result, loanEntryID uuid.UUID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return customError.WrapConcurrencyConflict(loanEntryID.String())
	}
	return nil
}
