package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ledger decisions. A nil *Metrics records nothing.
type Metrics struct {
	Admissions        *prometheus.CounterVec
	AdmissionDuration prometheus.Histogram
	Retries           *prometheus.CounterVec
	Deletions         *prometheus.CounterVec
	Removals          prometheus.Counter
}

// New registers the ledger metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_admissions_total",
			Help: "Registration attempts by outcome (admitted or rejection kind)",
		}, []string{"outcome"}),
		AdmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "registration_admission_duration_seconds",
			Help:    "Duration of Register calls including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_ledger_retries_total",
			Help: "Ledger units retried after a transient storage failure",
		}, []string{"operation"}),
		Deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_event_deletions_total",
			Help: "Event deletion attempts by outcome",
		}, []string{"outcome"}),
		Removals: factory.NewCounter(prometheus.CounterOpts{
			Name: "registration_removals_total",
			Help: "Registrations removed administratively",
		}),
	}
}

// ObserveAdmission records one Register call. Call with time.Now() at the start.
func (m *Metrics) ObserveAdmission(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(outcome).Inc()
	m.AdmissionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncRetry(operation string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncDeletion(outcome string) {
	if m == nil {
		return
	}
	m.Deletions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRemoval() {
	if m == nil {
		return
	}
	m.Removals.Inc()
}
