package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module. Tracks registration
// volume, idempotent replays, and the registration critical path duration.
type Metrics struct {
	TenantsRegistered    prometheus.Counter
	RegistrationReplays  prometheus.Counter
	RegistrationConflict prometheus.Counter
	RegisterDuration     prometheus.Histogram
}

// New creates a Metrics instance with all tenant module metrics registered.
func New() *Metrics {
	return &Metrics{
		TenantsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_tenants_registered_total",
			Help: "Total number of tenants registered",
		}),
		RegistrationReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_tenant_registration_replays_total",
			Help: "Registrations answered from the idempotency cache",
		}),
		RegistrationConflict: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_tenant_registration_conflicts_total",
			Help: "Registrations rejected because a duplicate was in progress",
		}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "synergy_tenant_register_duration_seconds",
			Help:    "Duration of RegisterTenant operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveRegister records the duration of a RegisterTenant operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
