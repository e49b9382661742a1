package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reference records are owned by the surrounding CRUD layer. The engine only
// reads them to copy snapshot fields onto entries, installments and payments.

type Employee struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Code       string    `json:"code" db:"code"`
	Fullname   string    `json:"fullname" db:"fullname"`
	NationalID string    `json:"national_id" db:"national_id"`
}

type Company struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

type Loan struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Code string    `json:"code" db:"code"`
	Name string    `json:"name" db:"name"`
}

// PeriodYear groups the twelve monthly periods of a company's payroll year
type PeriodYear struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	Year      int           `json:"year" db:"year"`
	CompanyID uuid.NullUUID `json:"company_id" db:"company_id"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

type Period struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	PeriodYearID      uuid.NullUUID `json:"period_year_id" db:"period_year_id"`
	Month             int           `json:"month" db:"month"`
	Year              int           `json:"year" db:"year"`
	PeriodCode        string        `json:"period_code" db:"period_code"`
	PeriodName        string        `json:"period_name" db:"period_name"`
	StartDate         time.Time     `json:"start_date" db:"start_date"`
	EndDate           time.Time     `json:"end_date" db:"end_date"`
	NoOfDays          int           `json:"no_of_days" db:"no_of_days"`
	TotalWorkingDays  int           `json:"total_working_days" db:"total_working_days"`
	TotalWorkingHours int           `json:"total_working_hours" db:"total_working_hours"`
	MonthCalendar     [][]int       `json:"month_calendar" db:"-"`
}

type CreatePeriodYearRequest struct {
	Year      int        `json:"year" validate:"required,gte=1900,lte=9999"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
}

type PeriodYearResponse struct {
	PeriodYear *PeriodYear `json:"period_year"`
	Periods    []*Period   `json:"periods"`
}
