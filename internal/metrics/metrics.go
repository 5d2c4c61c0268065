// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PaymentsCreated     prometheus.Counter
	StatusTransitions   *prometheus.CounterVec
	TransitionConflicts prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PaymentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Payments successfully created.",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_status_transitions_total",
			Help: "Successful payment status transitions by target status.",
		}, []string{"status"}),
		TransitionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_transition_conflicts_total",
			Help: "Status updates that lost a race to a concurrent transition.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
