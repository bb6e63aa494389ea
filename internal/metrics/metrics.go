package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ServicesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homecare_services_created_total",
			Help: "Total number of services created",
		},
	)

	VisitTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homecare_visit_transitions_total",
			Help: "Total number of visit state transitions",
		},
		[]string{"state"},
	)

	IncomeRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homecare_income_recorded_total",
			Help: "Total number of income entries written",
		},
		[]string{"kind"},
	)

	ExpensesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homecare_expenses_recorded_total",
			Help: "Total number of expense entries written",
		},
		[]string{"type"},
	)

	PaymentsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homecare_payments_registered_total",
			Help: "Total number of payment records written",
		},
	)

	PartialWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homecare_partial_writes_total",
			Help: "Total number of multi-record writes interrupted partway",
		},
		[]string{"operation"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "homecare_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route", "status"},
	)
)
