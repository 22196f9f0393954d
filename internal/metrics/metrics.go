// Package metrics exposes Prometheus counters for the normalization and
// persistence pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/HerbHall/netcollect/internal/rrd"
	"github.com/HerbHall/netcollect/pkg/collection"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	normalized *prometheus.CounterVec
	persisted  *prometheus.CounterVec
	cycles     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		normalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "netcollect",
				Name:      "normalize_total",
				Help:      "Attribute values normalized, by storage class and outcome.",
			},
			[]string{"class", "outcome"},
		),
		persisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "netcollect",
				Name:      "persist_total",
				Help:      "Samples handed to the archive, by result.",
			},
			[]string{"result"},
		),
		cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "netcollect",
				Name:      "cycles_total",
				Help:      "Collection cycles processed.",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.normalized, m.persisted, m.cycles} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveNormalize records one normalization. It satisfies collection.Observer.
func (m *Metrics) ObserveNormalize(class collection.Class, outcome collection.Outcome) {
	m.normalized.WithLabelValues(class.String(), outcome.String()).Inc()
}

// ObservePersist records the result of one archive write.
func (m *Metrics) ObservePersist(res rrd.Result) {
	m.cycles.Inc()
	m.persisted.WithLabelValues("written").Add(float64(res.Written))
	m.persisted.WithLabelValues("unknown").Add(float64(res.Unknown))
	m.persisted.WithLabelValues("skipped").Add(float64(res.Skipped))
	m.persisted.WithLabelValues("rejected").Add(float64(res.Rejected))
}
