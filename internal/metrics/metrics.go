package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsSubmitted counts payment submissions by outcome code.
	PaymentsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_submitted_total",
			Help: "Payment submissions by outcome",
		},
		[]string{"outcome"},
	)

	// PaymentTransitions counts terminal payment state transitions.
	PaymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Payment state transitions by target state",
		},
		[]string{"state"},
	)

	// PaymentsExpired counts payments moved to expired by the sweep.
	PaymentsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_expired_total",
			Help: "Pending payments expired by the background sweep",
		},
	)

	// SchedulesComputed counts on-demand schedule computations.
	SchedulesComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schedules_computed_total",
			Help: "Amortization schedules computed on demand",
		},
	)
)
