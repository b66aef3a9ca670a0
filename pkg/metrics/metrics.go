package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор prometheus метрик сервиса
type Metrics struct {
	// HTTP метрики
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Доменные метрики планирования
	BookingsCreatedTotal     *prometheus.CounterVec
	BookingsRescheduledTotal prometheus.Counter
	BookingsCancelledTotal   prometheus.Counter
	DuplicateEventsTotal     prometheus.Counter
	LockFailuresTotal        prometheus.Counter
}

// New регистрирует и возвращает метрики сервиса
func New(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),

		BookingsCreatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "bookings_created_total",
			Help:        "Total number of bookings created by the orchestrator",
			ConstLabels: labels,
		}, []string{"strategy"}),

		BookingsRescheduledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "bookings_rescheduled_total",
			Help:        "Total number of bookings rescheduled",
			ConstLabels: labels,
		}),

		BookingsCancelledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "bookings_cancelled_total",
			Help:        "Total number of bookings cancelled",
			ConstLabels: labels,
		}),

		DuplicateEventsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "webhook_duplicate_events_total",
			Help:        "Webhook deliveries short-circuited by the idempotency ledger",
			ConstLabels: labels,
		}),

		LockFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "counter_lock_failures_total",
			Help:        "Capacity counter lock acquisitions that exhausted the retry budget",
			ConstLabels: labels,
		}),
	}
}
