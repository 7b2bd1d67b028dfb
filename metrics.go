package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what sessions do. One value is shared by every session
// opened with it.
type Metrics struct {
	statements     *prometheus.CounterVec
	reconnects     prometheus.Counter
	retries        prometheus.Counter
	lobStagedBytes prometheus.Counter
}

// DefaultMetrics is registered with prometheus.DefaultRegisterer.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics registers the adapter collectors with reg. Collectors that
// are already registered are reused, so calling it twice with the same
// registerer is safe.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_statements_total",
			Help: "Statements executed, by backend and statement kind.",
		}, []string{"driver", "kind"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oracle_reconnects_total",
			Help: "Physical sessions replaced after a reconnect.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oracle_retries_total",
			Help: "Calls re-issued after a lost connection was recovered.",
		}),
		lobStagedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oracle_lob_staged_bytes_total",
			Help: "Bytes written into LOB columns after the row was stored.",
		}),
	}
	if reg == nil {
		return m
	}

	m.statements = register(reg, m.statements).(*prometheus.CounterVec)
	m.reconnects = register(reg, m.reconnects).(prometheus.Counter)
	m.retries = register(reg, m.retries).(prometheus.Counter)
	m.lobStagedBytes = register(reg, m.lobStagedBytes).(prometheus.Counter)
	return m
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return existing.ExistingCollector
		}
		// Same behavior as MustRegister if the error is not for AlreadyRegistered
		panic(err)
	}
	return c
}

func (m *Metrics) statement(driver, kind string) {
	if m != nil {
		m.statements.WithLabelValues(driver, kind).Inc()
	}
}

func (m *Metrics) reconnect() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *Metrics) retry() {
	if m != nil {
		m.retries.Inc()
	}
}

func (m *Metrics) lobStaged(n int) {
	if m != nil {
		m.lobStagedBytes.Add(float64(n))
	}
}
