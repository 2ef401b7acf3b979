// Package metrics provides Prometheus metrics for flightlog.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Manager owns the flightlog collectors. A nil *Manager is a no-op.
type Manager struct {
	namespace string
	buckets   []float64
	registry  prometheus.Registerer
	enabled   bool

	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	storeFlights   prometheus.Gauge
	exportTotal    *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
}

// NewManager builds and registers the collectors.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		namespace: "flightlog",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "fetch_total",
		Help:      "Flight fetches against the remote source.",
	}, []string{"kind", "outcome"})
	m.fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Latency of flight fetches.",
		Buckets:   m.buckets,
	}, []string{"kind"})
	m.storeFlights = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "store_flights",
		Help:      "Flights currently held by the flight store.",
	})
	m.exportTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "export_total",
		Help:      "Export pipeline runs.",
	}, []string{"format", "environment", "outcome"})
	m.exportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "export_duration_seconds",
		Help:      "Duration of export pipeline runs.",
		Buckets:   m.buckets,
	}, []string{"format"})

	if !m.enabled {
		return m, nil
	}
	var err error
	if m.fetchTotal, err = register(m.registry, m.fetchTotal); err != nil {
		return nil, err
	}
	if m.fetchDuration, err = register(m.registry, m.fetchDuration); err != nil {
		return nil, err
	}
	if m.storeFlights, err = register(m.registry, m.storeFlights); err != nil {
		return nil, err
	}
	if m.exportTotal, err = register(m.registry, m.exportTotal); err != nil {
		return nil, err
	}
	if m.exportDuration, err = register(m.registry, m.exportDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveFetch records one fetch of the given kind (initial, incremental, full).
func (m *Manager) ObserveFetch(kind string, elapsed time.Duration, err error) {
	if m == nil || !m.enabled {
		return
	}
	m.fetchTotal.WithLabelValues(kind, outcome(err)).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// SetStoreSize reports the current flight store length.
func (m *Manager) SetStoreSize(n int) {
	if m == nil || !m.enabled {
		return
	}
	m.storeFlights.Set(float64(n))
}

// ObserveExport records one export run.
func (m *Manager) ObserveExport(format, environment string, elapsed time.Duration, err error) {
	if m == nil || !m.enabled {
		return
	}
	m.exportTotal.WithLabelValues(format, environment, outcome(err)).Inc()
	m.exportDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// register adopts an already registered collector of the same shape so that
// several managers can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
