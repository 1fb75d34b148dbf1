package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the onboarding saga.
type Metrics struct {
	SignalsAccepted  prometheus.Counter
	SignalsDiscarded prometheus.Counter
	SagasActivated   prometheus.Counter
	SagasFailed      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SignalsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_onboarding_signals_accepted_total",
			Help: "Signals that advanced a saga",
		}),
		SignalsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_onboarding_signals_discarded_total",
			Help: "Signals dropped because they did not match the saga state",
		}),
		SagasActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_onboarding_sagas_activated_total",
			Help: "Sagas that reached the terminal ACTIVATED state",
		}),
		SagasFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_onboarding_sagas_failed_total",
			Help: "Sagas that reached the terminal FAILED state",
		}),
	}
}
