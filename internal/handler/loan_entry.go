package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/response"
)

// LoanEntryService is the part of service.LoanEntryService the HTTP layer uses
type LoanEntryService interface {
	CreateLoanEntry(ctx context.Context, request *domain.CreateLoanEntryRequest) (*domain.LoanEntry, []*domain.Installment, error)
	GetLoanEntry(ctx context.Context, id uuid.UUID) (*domain.LoanEntry, error)
	SubmitPayment(ctx context.Context, loanEntryID uuid.UUID, request *domain.SubmitPaymentRequest) (*domain.Payment, error)
	ListSchedule(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, error)
	ListPayments(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Payment, error)
	DeleteLoanEntry(ctx context.Context, id uuid.UUID) error
	GeneratePeriodYear(ctx context.Context, request *domain.CreatePeriodYearRequest) (*domain.PeriodYear, []*domain.Period, error)
}

type LoanEntryHandler struct {
	service   LoanEntryService
	validator *validator.Validate
	log       *logrus.Logger
}

func NewLoanEntryHandler(service LoanEntryService, log *logrus.Logger) *LoanEntryHandler {
	return &LoanEntryHandler{
		service:   service,
		validator: newValidator(),
		log:       log,
	}
}

// Register mounts the loan entry routes on r
func (h *LoanEntryHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/loan-entries", h.CreateLoanEntry).Methods(http.MethodPost)
	api.HandleFunc("/loan-entries/{id}", h.GetLoanEntry).Methods(http.MethodGet)
	api.HandleFunc("/loan-entries/{id}", h.DeleteLoanEntry).Methods(http.MethodDelete)
	api.HandleFunc("/loan-entries/{id}/schedule", h.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loan-entries/{id}/payments", h.SubmitPayment).Methods(http.MethodPost)
	api.HandleFunc("/loan-entries/{id}/payments", h.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/period-years", h.CreatePeriodYear).Methods(http.MethodPost)
}

func (h *LoanEntryHandler) CreateLoanEntry(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanEntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, schedule, err := h.service.CreateLoanEntry(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.CreateLoanEntryResponse{LoanEntry: entry, Schedule: schedule})
}

func (h *LoanEntryHandler) GetLoanEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetLoanEntry(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, entry)
}

func (h *LoanEntryHandler) DeleteLoanEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteLoanEntry(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LoanEntryHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.ListSchedule(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{LoanEntryID: id, Schedule: schedule})
}

func (h *LoanEntryHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req domain.SubmitPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	payment, err := h.service.SubmitPayment(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, payment)
}

func (h *LoanEntryHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.PaymentsResponse{LoanEntryID: id, Payments: payments})
}

func (h *LoanEntryHandler) CreatePeriodYear(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePeriodYearRequest
	if !h.decode(w, r, &req) {
		return
	}

	year, periods, err := h.service.GeneratePeriodYear(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.PeriodYearResponse{PeriodYear: year, Periods: periods})
}

// decode reads and validates the JSON body into dst, writing a 400 on failure
func (h *LoanEntryHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid JSON body", err)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		response.Fail(w, http.StatusBadRequest, customError.ErrCodeInvalidInput, err.Error())
		return false
	}

	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Fail(w, http.StatusBadRequest, customError.ErrCodeInvalidInput, "loan entry id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps the error kind onto an HTTP status
func (h *LoanEntryHandler) writeError(w http.ResponseWriter, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		h.log.WithError(err).Error("Unexpected error")
		response.InternalServerError(w, "Internal server error", nil)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, customError.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, customError.ErrConcurrencyConflict):
		status = http.StatusConflict
	case errors.Is(err, customError.ErrInsufficientScheduleInput),
		errors.Is(err, customError.ErrNoScheduleFound),
		errors.Is(err, customError.ErrInvalidPaymentAmount),
		errors.Is(err, customError.ErrInvalidPaymentPolicy),
		errors.Is(err, customError.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
		response.Fail(w, status, be.Code, "Internal server error")
		return
	}

	response.Fail(w, status, be.Code, be.Message)
}
