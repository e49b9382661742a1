package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoanEntriesCreated counts created loan entries
	LoanEntriesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loan_entries_created_total",
			Help: "Number of loan entries created with a schedule",
		},
	)

	// PaymentsProcessed counts payment submissions by policy and outcome
	PaymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_processed_total",
			Help: "Payment submissions by payment type and status",
		},
		[]string{"payment_type", "status"},
	)

	// AllocationConflicts counts optimistic version conflicts seen while applying payments
	AllocationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_conflicts_total",
			Help: "Concurrent modification conflicts during payment allocation",
		},
	)

	// UnappliedAmount sums payment money that did not fit any installment
	UnappliedAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_unapplied_amount_total",
			Help: "Sum of payment amounts left unapplied",
		},
	)

	// ScheduleCache counts schedule cache lookups by result
	ScheduleCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_cache_requests_total",
			Help: "Schedule cache lookups by result",
		},
		[]string{"result"},
	)

	// ReconcileDrift reports how many entries disagreed with their installments on the last run
	ReconcileDrift = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_drift_entries",
			Help: "Loan entries whose totals disagree with their installments",
		},
	)

	// HTTPRequests counts API calls
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
