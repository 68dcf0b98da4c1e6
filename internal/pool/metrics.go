package pool

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the pool's Prometheus instrumentation (SPEC_FULL.md AMBIENT
// STACK), grounded on the teacher's counter/gauge naming style.
type Metrics struct {
	Acquires  *prometheus.CounterVec
	Exhausted *prometheus.CounterVec
	ConnFails *prometheus.CounterVec
	OpenConns *prometheus.GaugeVec
}

// NewMetrics registers the pool's collectors against reg. reg may be nil,
// in which case a private registry absorbs the collectors (tests never
// want to touch the global default registry).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Acquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esa_httpclient",
			Subsystem: "pool",
			Name:      "acquires_total",
			Help:      "Connection acquisitions per endpoint.",
		}, []string{"endpoint"}),
		Exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esa_httpclient",
			Subsystem: "pool",
			Name:      "exhausted_total",
			Help:      "Acquisitions rejected because the wait queue was full.",
		}, []string{"endpoint"}),
		ConnFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esa_httpclient",
			Subsystem: "pool",
			Name:      "connect_failures_total",
			Help:      "Dialer failures per endpoint.",
		}, []string{"endpoint"}),
		OpenConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "esa_httpclient",
			Subsystem: "pool",
			Name:      "open_connections",
			Help:      "Currently open connections per endpoint.",
		}, []string{"endpoint"}),
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(m.Acquires, m.Exhausted, m.ConnFails, m.OpenConns)
	return m
}
