package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
)

type referenceRepository struct {
	db *sqlx.DB
}

func NewReferenceRepository(db *sqlx.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) GetEmployee(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	query := r.db.Rebind(`SELECT id, code, fullname, national_id FROM employees WHERE id = ?`)

	var employee domain.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *referenceRepository) GetCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	query := r.db.Rebind(`SELECT id, name FROM companies WHERE id = ?`)

	var company domain.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *referenceRepository) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := r.db.Rebind(`SELECT id, code, name FROM loans WHERE id = ?`)

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *referenceRepository) GetPeriod(ctx context.Context, id uuid.UUID) (*domain.Period, error) {
	query := r.db.Rebind(`
		SELECT id, period_year_id, month, year, period_code, period_name, start_date, end_date,
			no_of_days, total_working_days, total_working_hours
		FROM periods
		WHERE id = ?
	`)

	var period domain.Period
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *referenceRepository) CreatePeriodYear(ctx context.Context, year *domain.PeriodYear, periods []*domain.Period) error {
	yearQuery := `
		INSERT INTO period_years (id, year, company_id, created_at)
		VALUES (:id, :year, :company_id, :created_at)
	`

	periodQuery := `
		INSERT INTO periods (id, period_year_id, month, year, period_code, period_name, start_date,
			end_date, no_of_days, total_working_days, total_working_hours)
		VALUES (:id, :period_year_id, :month, :year, :period_code, :period_name, :start_date,
			:end_date, :no_of_days, :total_working_days, :total_working_hours)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, yearQuery, year); err != nil {
		return err
	}

	for _, period := range periods {
		if _, err = tx.NamedExecContext(ctx, periodQuery, period); err != nil {
			return err
		}
	}

	return tx.Commit()
}
