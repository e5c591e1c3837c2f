// Package metrics объявляет счётчики prometheus для кредитов, платежей,
// планировщика и лимитера запросов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "credit_gate"

// Metrics набор коллекторов приложения.
type Metrics struct {
	CreditDecisions       *prometheus.CounterVec
	PaymentsCreated       prometheus.Counter
	PaymentTransitions    *prometheus.CounterVec
	PremiumActivations    prometheus.Counter
	RateLimited           *prometheus.CounterVec
	RateLimitFallbacks    prometheus.Counter
	SchedulerTicks        *prometheus.CounterVec
	SchedulerTickDuration prometheus.Histogram
	RegistrationsRejected *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CreditDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_decisions_total",
			Help:      "Credit checks by feature and result.",
		}, []string{"feature", "result"}),
		PaymentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Payment requests created.",
		}),
		PaymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Payment status transitions by target status and source.",
		}, []string{"status", "source"}),
		PremiumActivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "premium_activations_total",
			Help:      "Premium activations.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter per route class.",
		}, []string{"class"}),
		RateLimitFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_fallbacks_total",
			Help:      "Rate limit checks served by the in-process limiter after a shared store error.",
		}),
		SchedulerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Auto-confirmation ticks by result.",
		}, []string{"result"}),
		SchedulerTickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_tick_duration_seconds",
			Help:      "Auto-confirmation tick duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		RegistrationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_rejected_total",
			Help:      "Registrations rejected by the anti-fraud guard per reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.CreditDecisions,
			m.PaymentsCreated,
			m.PaymentTransitions,
			m.PremiumActivations,
			m.RateLimited,
			m.RateLimitFallbacks,
			m.SchedulerTicks,
			m.SchedulerTickDuration,
			m.RegistrationsRejected,
		)
	}
	return m
}

// NewNoop возвращает незарегистрированные коллекторы для тестов.
func NewNoop() *Metrics {
	return New(nil)
}
