// Package metrics exposes prometheus instrumentation of reconciliation rounds.
//
// A nil *Metrics is valid and records nothing, so components can be built without
// a registry in tests and tools.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"syncstore/core/reconcile"
)

const namespace = "syncstore"

// Round results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds the collectors of the sync layer.
// Do not use the collectors directly, use the Report* methods.
type Metrics struct {
	rounds    *prometheus.CounterVec
	coalesced *prometheus.CounterVec
	changes   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	observers *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "rounds_total",
			Help:      "The total number of reconciliation rounds by result.",
		}, []string{"provider", "result"}),
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "coalesced_total",
			Help:      "The number of reconciliation requests absorbed by an in-flight round.",
		}, []string{"provider"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "changes_total",
			Help:      "The number of persisted changes by kind.",
		}, []string{"provider", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "round_duration_seconds",
			Help:      "Bucketed histogram of reconciliation round duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		observers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "observers",
			Help:      "The number of registered observers.",
		}, []string{"provider"}),
	}

	for _, c := range []prometheus.Collector{m.rounds, m.coalesced, m.changes, m.duration, m.observers} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ReportRound records a finished round.
func (m *Metrics) ReportRound(provider string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	m.rounds.WithLabelValues(provider, result).Inc()
	m.duration.WithLabelValues(provider).Observe(took.Seconds())
}

// ReportCoalesced records a request that joined an in-flight round.
func (m *Metrics) ReportCoalesced(provider string) {
	if m == nil {
		return
	}
	m.coalesced.WithLabelValues(provider).Inc()
}

// ReportChanges records the persisted change counts of a round.
func (m *Metrics) ReportChanges(provider string, s reconcile.Summary) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(provider, reconcile.Insert.String()).Add(float64(s.Inserts))
	m.changes.WithLabelValues(provider, reconcile.Update.String()).Add(float64(s.Updates))
	m.changes.WithLabelValues(provider, reconcile.Delete.String()).Add(float64(s.Deletes))
}

// ReportObservers sets the number of registered observers.
func (m *Metrics) ReportObservers(provider string, n int) {
	if m == nil {
		return
	}
	m.observers.WithLabelValues(provider).Set(float64(n))
}
