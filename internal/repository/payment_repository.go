package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
)

const paymentColumns = `id, loan_entry_id, loan_entry_code, loan_entry_description, employee_id,
	employee_code, employee_fullname, company_id, company_name, amount_paid, applied_amount,
	unapplied_amount, payment_type, expected_monthly_payment, loan_amount, remaining_balance,
	difference, processed, is_deleted, created_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = ? AND is_deleted = FALSE
	`)

	var payment domain.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetByLoanEntryID(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_entry_id = ? AND is_deleted = FALSE
		ORDER BY created_at, id
	`)

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, loanEntryID); err != nil {
		return nil, err
	}

	return payments, nil
}
