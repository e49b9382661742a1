package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/segyhp/loan-engine/internal/allocation"
	"github.com/segyhp/loan-engine/internal/cache"
	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/metrics"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/schedule"
	"github.com/segyhp/loan-engine/internal/tracing"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

type LoanEntryService struct {
	LoanEntryRepo repository.LoanEntryRepository
	PaymentRepo   repository.PaymentRepository
	ReferenceRepo repository.ReferenceRepository
	cache         cache.ScheduleCache
	log           *logrus.Logger
	locks         *entryLocks

	maxMonths  int
	maxRetries int
	// retryInterval is the first backoff delay after a version conflict
	retryInterval time.Duration
}

func NewLoanEntryService(
	loanEntryRepo repository.LoanEntryRepository,
	paymentRepo repository.PaymentRepository,
	referenceRepo repository.ReferenceRepository,
	scheduleCache cache.ScheduleCache,
	cfg *config.Config,
	log *logrus.Logger,
) *LoanEntryService {
	if scheduleCache == nil {
		scheduleCache = cache.NoopScheduleCache{}
	}

	return &LoanEntryService{
		LoanEntryRepo: loanEntryRepo,
		PaymentRepo:   paymentRepo,
		ReferenceRepo: referenceRepo,
		cache:         scheduleCache,
		log:           log,
		locks:         newEntryLocks(),
		maxMonths:     cfg.Business.MaxDurationMonths,
		maxRetries:    cfg.Business.AllocationMaxRetries,
		retryInterval: 20 * time.Millisecond,
	}
}

// CreateLoanEntry stores a loan entry together with its generated schedule
func (s *LoanEntryService) CreateLoanEntry(ctx context.Context, request *domain.CreateLoanEntryRequest) (_ *domain.LoanEntry, _ []*domain.Installment, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "LoanEntryService.CreateLoanEntry")
	defer func() { endSpan(span, err) }()

	loan, err := s.ReferenceRepo.GetLoan(ctx, request.LoanID)
	if err != nil {
		return nil, nil, lookupError("loan", request.LoanID, err)
	}

	employee, err := s.ReferenceRepo.GetEmployee(ctx, request.EmployeeID)
	if err != nil {
		return nil, nil, lookupError("employee", request.EmployeeID, err)
	}

	period, err := s.ReferenceRepo.GetPeriod(ctx, request.DeductionStartPeriodID)
	if err != nil {
		return nil, nil, lookupError("period", request.DeductionStartPeriodID, err)
	}

	var company *domain.Company
	if request.CompanyID != nil {
		if company, err = s.ReferenceRepo.GetCompany(ctx, *request.CompanyID); err != nil {
			return nil, nil, lookupError("company", *request.CompanyID, err)
		}
	}

	id := uuid.New()
	terms, installments, err := schedule.Generate(id, period.StartDate, request.Amount, request.Duration, request.MonthlyRepayment, s.maxMonths)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	entry := &domain.LoanEntry{
		ID:                       id,
		Code:                     loan.Code,
		LoanID:                   loan.ID,
		LoanName:                 loan.Name,
		Description:              loan.Name,
		Amount:                   terms.Principal,
		EmployeeID:               employee.ID,
		EmployeeCode:             employee.Code,
		EmployeeFullname:         employee.Fullname,
		NationalID:               employee.NationalID,
		MonthlyRepayment:         terms.MonthlyRepayment,
		Duration:                 decimal.NewFromInt(int64(len(installments))),
		DeductionStartPeriodID:   period.ID,
		DeductionStartPeriodName: period.PeriodName,
		DeductionStartPeriodCode: period.PeriodCode,
		DeductionEndDate:         utils.AddMonths(period.StartDate, len(installments)-1),
		TotalAmountPaid:          decimal.Zero,
		RemainingBalance:         terms.Principal,
		Status:                   true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if company != nil {
		entry.CompanyID = uuid.NullUUID{UUID: company.ID, Valid: true}
		entry.CompanyName = company.Name
	}

	for _, installment := range installments {
		installment.EmployeeCode = employee.Code
		installment.EmployeeFullname = employee.Fullname
		installment.CreatedAt = now
		installment.UpdatedAt = now
	}

	if err = s.LoanEntryRepo.CreateWithSchedule(ctx, entry, installments); err != nil {
		return nil, nil, customError.WrapPersistenceFailure(err)
	}

	metrics.LoanEntriesCreated.Inc()
	s.log.WithFields(logrus.Fields{
		"loan_entry_id": entry.ID,
		"employee_code": entry.EmployeeCode,
		"amount":        entry.Amount.String(),
		"months":        len(installments),
	}).Info("Loan entry created")

	return entry, installments, nil
}

// GetLoanEntry returns the non-deleted loan entry with id
func (s *LoanEntryService) GetLoanEntry(ctx context.Context, id uuid.UUID) (*domain.LoanEntry, error) {
	entry, err := s.LoanEntryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("loan entry", id, err)
	}
	return entry, nil
}

// SubmitPayment allocates amount over the open installments of the entry and
// records the payment. Submissions for the same entry run one at a time; a
// version conflict with another process re-reads state and tries again.
func (s *LoanEntryService) SubmitPayment(ctx context.Context, loanEntryID uuid.UUID, request *domain.SubmitPaymentRequest) (_ *domain.Payment, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "LoanEntryService.SubmitPayment", trace.WithAttributes(
		attribute.String("loan_entry.id", loanEntryID.String()),
		attribute.String("payment.type", string(request.PaymentType)),
	))
	defer func() { endSpan(span, err) }()

	logger := s.log.WithFields(logrus.Fields{
		"loan_entry_id": loanEntryID,
		"payment_type":  request.PaymentType,
		"amount":        request.Amount.String(),
	})

	if request.Amount.IsNegative() {
		return nil, customError.WrapInvalidPaymentAmount(request.Amount.String())
	}
	if !request.PaymentType.Valid() {
		return nil, customError.WrapInvalidPaymentPolicy(string(request.PaymentType))
	}

	var company *domain.Company
	if request.CompanyID != nil {
		if company, err = s.ReferenceRepo.GetCompany(ctx, *request.CompanyID); err != nil {
			return nil, lookupError("company", *request.CompanyID, err)
		}
	}

	unlock := s.locks.Lock(loanEntryID)
	defer unlock()

	var result *allocation.Allocation
	attempt := 0
	operation := func() error {
		attempt++
		allocated, err := s.allocate(ctx, loanEntryID, request, company)
		if err == nil {
			result = allocated
			return nil
		}
		if errors.Is(err, customError.ErrConcurrencyConflict) {
			metrics.AllocationConflicts.Inc()
			logger.WithField("attempt", attempt).Warn("Loan entry changed during allocation, retrying")
			return err
		}
		return backoff.Permanent(err)
	}

	if err = backoff.Retry(operation, s.retryPolicy(ctx)); err != nil {
		metrics.PaymentsProcessed.WithLabelValues(string(request.PaymentType), rejectionStatus(err)).Inc()
		logger.WithError(err).Warn("Payment rejected")
		return nil, err
	}

	s.invalidateSchedule(ctx, loanEntryID)

	metrics.PaymentsProcessed.WithLabelValues(string(request.PaymentType), "processed").Inc()
	if result.Unapplied.IsPositive() {
		metrics.UnappliedAmount.Add(result.Unapplied.InexactFloat64())
	}
	logger.WithFields(logrus.Fields{
		"payment_id":        result.Payment.ID,
		"applied":           result.Applied.String(),
		"unapplied":         result.Unapplied.String(),
		"remaining_balance": result.Balance.RemainingBalance.String(),
		"closed":            result.Balance.Closed,
	}).Info("Payment processed")

	return result.Payment, nil
}

// allocate runs one read-allocate-write unit of work against the current state
func (s *LoanEntryService) allocate(ctx context.Context, loanEntryID uuid.UUID, request *domain.SubmitPaymentRequest, company *domain.Company) (*allocation.Allocation, error) {
	entry, err := s.LoanEntryRepo.GetByID(ctx, loanEntryID)
	if err != nil {
		return nil, lookupError("loan entry", loanEntryID, err)
	}

	open, err := s.LoanEntryRepo.GetOpenInstallments(ctx, loanEntryID)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}

	result, err := allocation.Allocate(entry, open, request.Amount, request.PaymentType)
	if err != nil {
		return nil, err
	}

	if company != nil {
		result.Payment.CompanyID = uuid.NullUUID{UUID: company.ID, Valid: true}
		result.Payment.CompanyName = company.Name
	}

	if err = s.LoanEntryRepo.ApplyAllocation(ctx, result.Balance, result.Installments, result.Payment); err != nil {
		if errors.Is(err, customError.ErrConcurrencyConflict) {
			return nil, err
		}
		return nil, customError.WrapPersistenceFailure(err)
	}

	return result, nil
}

func (s *LoanEntryService) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.retryInterval
	exp.MaxInterval = 10 * s.retryInterval
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.maxRetries)), ctx)
}

// ListSchedule returns the installments of an entry in month order
func (s *LoanEntryService) ListSchedule(ctx context.Context, loanEntryID uuid.UUID) (_ []*domain.Installment, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "LoanEntryService.ListSchedule", trace.WithAttributes(
		attribute.String("loan_entry.id", loanEntryID.String()),
	))
	defer func() { endSpan(span, err) }()

	cached, found, err := s.cache.Get(ctx, loanEntryID)
	switch {
	case err != nil:
		metrics.ScheduleCache.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("loan_entry_id", loanEntryID).Warn("Schedule cache read failed")
	case found:
		metrics.ScheduleCache.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.ScheduleCache.WithLabelValues("miss").Inc()
	}

	// payments in this process cannot commit between the read and the cache write
	unlock := s.locks.Lock(loanEntryID)
	defer unlock()

	entry, err := s.LoanEntryRepo.GetByID(ctx, loanEntryID)
	if err != nil {
		return nil, lookupError("loan entry", loanEntryID, err)
	}

	installments, err := s.LoanEntryRepo.GetSchedule(ctx, loanEntryID)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}

	s.cacheSchedule(ctx, entry, installments)

	return installments, nil
}

// cacheSchedule stores rows read at entry.Version. A writer in another process
// may commit and invalidate before the Set lands, so the version is read again
// afterwards and the cached rows are dropped when it moved.
func (s *LoanEntryService) cacheSchedule(ctx context.Context, entry *domain.LoanEntry, installments []*domain.Installment) {
	logger := s.log.WithField("loan_entry_id", entry.ID)

	if err := s.cache.Set(ctx, entry.ID, installments); err != nil {
		logger.WithError(err).Warn("Schedule cache write failed")
		return
	}

	current, err := s.LoanEntryRepo.GetByID(ctx, entry.ID)
	if err == nil && current.Version == entry.Version {
		return
	}

	logger.Debug("Loan entry changed while caching its schedule, dropping cached rows")
	s.invalidateSchedule(ctx, entry.ID)
}

// ListPayments returns the payments recorded against an entry, oldest first
func (s *LoanEntryService) ListPayments(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.LoanEntryRepo.GetByID(ctx, loanEntryID); err != nil {
		return nil, lookupError("loan entry", loanEntryID, err)
	}

	payments, err := s.PaymentRepo.GetByLoanEntryID(ctx, loanEntryID)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}
	return payments, nil
}

// DeleteLoanEntry soft-deletes the entry with its installments and payments
func (s *LoanEntryService) DeleteLoanEntry(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracing.Tracer.Start(ctx, "LoanEntryService.DeleteLoanEntry", trace.WithAttributes(
		attribute.String("loan_entry.id", id.String()),
	))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	if err = s.LoanEntryRepo.SoftDelete(ctx, id); err != nil {
		return lookupError("loan entry", id, err)
	}

	s.invalidateSchedule(ctx, id)
	s.log.WithField("loan_entry_id", id).Info("Loan entry deleted")
	return nil
}

// Reconcile compares every open entry's totals with the sum of its installment
// payments and returns the entries that disagree.
func (s *LoanEntryService) Reconcile(ctx context.Context) (_ []domain.Drift, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "LoanEntryService.Reconcile")
	defer func() { endSpan(span, err) }()

	entries, err := s.LoanEntryRepo.ListActive(ctx)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}

	var drifts []domain.Drift
	for _, entry := range entries {
		installments, err := s.LoanEntryRepo.GetSchedule(ctx, entry.ID)
		if err != nil {
			return nil, customError.WrapPersistenceFailure(err)
		}

		paid := decimal.Zero
		for _, installment := range installments {
			if !installment.IsDeleted {
				paid = paid.Add(installment.AmountPaid)
			}
		}

		expectedRemaining := entry.Amount.Sub(entry.TotalAmountPaid)
		if paid.Equal(entry.TotalAmountPaid) && expectedRemaining.Equal(entry.RemainingBalance) {
			continue
		}

		drift := domain.Drift{
			LoanEntryID:       entry.ID,
			TotalAmountPaid:   entry.TotalAmountPaid,
			InstallmentsPaid:  paid,
			RemainingBalance:  entry.RemainingBalance,
			ExpectedRemaining: expectedRemaining,
		}
		drifts = append(drifts, drift)

		s.log.WithFields(logrus.Fields{
			"loan_entry_id":      entry.ID,
			"total_amount_paid":  drift.TotalAmountPaid.String(),
			"installments_paid":  drift.InstallmentsPaid.String(),
			"remaining_balance":  drift.RemainingBalance.String(),
			"expected_remaining": drift.ExpectedRemaining.String(),
		}).Warn("Loan entry totals drifted from installments")
	}

	metrics.ReconcileDrift.Set(float64(len(drifts)))
	s.log.WithFields(logrus.Fields{
		"checked": len(entries),
		"drifted": len(drifts),
	}).Info("Reconciliation finished")

	return drifts, nil
}

// GeneratePeriodYear creates the twelve monthly payroll periods of a year
func (s *LoanEntryService) GeneratePeriodYear(ctx context.Context, request *domain.CreatePeriodYearRequest) (*domain.PeriodYear, []*domain.Period, error) {
	year := &domain.PeriodYear{
		ID:        uuid.New(),
		Year:      request.Year,
		CreatedAt: time.Now().UTC(),
	}

	if request.CompanyID != nil {
		company, err := s.ReferenceRepo.GetCompany(ctx, *request.CompanyID)
		if err != nil {
			return nil, nil, lookupError("company", *request.CompanyID, err)
		}
		year.CompanyID = uuid.NullUUID{UUID: company.ID, Valid: true}
	}

	grid := utils.MonthGrid(request.Year)
	periods := make([]*domain.Period, 0, 12)
	for month := time.January; month <= time.December; month++ {
		days := utils.DaysInMonth(request.Year, month)
		start := time.Date(request.Year, month, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(request.Year, month, days, 0, 0, 0, 0, time.UTC)
		workingDays := utils.WorkingDays(start, end)

		periods = append(periods, &domain.Period{
			ID:                uuid.New(),
			PeriodYearID:      uuid.NullUUID{UUID: year.ID, Valid: true},
			Month:             int(month),
			Year:              request.Year,
			PeriodCode:        utils.PeriodCode(request.Year, month),
			PeriodName:        utils.PeriodName(request.Year, month),
			StartDate:         start,
			EndDate:           end,
			NoOfDays:          days,
			TotalWorkingDays:  workingDays,
			TotalWorkingHours: workingDays * utils.HoursPerWorkingDay,
			MonthCalendar:     grid[month],
		})
	}

	if err := s.ReferenceRepo.CreatePeriodYear(ctx, year, periods); err != nil {
		return nil, nil, customError.WrapPersistenceFailure(err)
	}

	s.log.WithFields(logrus.Fields{
		"period_year_id": year.ID,
		"year":           year.Year,
	}).Info("Period year generated")

	return year, periods, nil
}

func (s *LoanEntryService) invalidateSchedule(ctx context.Context, loanEntryID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, loanEntryID); err != nil {
		s.log.WithError(err).WithField("loan_entry_id", loanEntryID).Warn("Schedule cache invalidation failed")
	}
}

// lookupError maps a repository read error onto NotFound or PersistenceFailure
func lookupError(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapNotFound(kind, id.String())
	}
	return customError.WrapPersistenceFailure(err)
}

func rejectionStatus(err error) string {
	if code := customError.Code(err); code != "" {
		return strings.ToLower(code)
	}
	return "error"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
