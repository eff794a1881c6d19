package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	NamesRegistered        prometheus.Counter
	PaymentsVerified       prometheus.Counter
	PaymentReplaysRejected prometheus.Counter
	RegistrationsRejected  *prometheus.CounterVec
	SeasonsActivated       prometheus.Counter
	MigrationsApplied      prometheus.Counter
	MigrationsFailed       prometheus.Counter
	OracleConfirmDuration  prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		NamesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namemint_names_registered_total",
			Help: "Total number of names successfully registered",
		}),
		PaymentsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namemint_payments_verified_total",
			Help: "Total number of ledger transfers verified and consumed",
		}),
		PaymentReplaysRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namemint_payment_replays_rejected_total",
			Help: "Registration attempts rejected because the block index was already consumed",
		}),
		RegistrationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "namemint_registrations_rejected_total",
			Help: "Registration attempts rejected by precondition, labeled by reason",
		}, []string{"reason"}),
		SeasonsActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namemint_seasons_activated_total",
			Help: "Total number of seasons activated",
		}),
		MigrationsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namemint_migrations_applied_total",
			Help: "Total number of migration steps applied successfully",
		}),
		MigrationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namemint_migrations_failed_total",
			Help: "Total number of migration attempts that were rejected",
		}),
		OracleConfirmDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "namemint_oracle_confirm_duration_seconds",
			Help:    "Latency of ledger oracle transfer confirmations",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveOracleConfirm records one oracle confirmation round trip.
func (m *Metrics) ObserveOracleConfirm(d time.Duration) {
	if m == nil {
		return
	}
	m.OracleConfirmDuration.Observe(d.Seconds())
}
