package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the injected counter service for verification outcomes.
// Counters are registered on a private registry at process start and
// only ever incremented after that; call sites receive this handle, not
// a global.
type Metrics struct {
	registry *prometheus.Registry
	success  prometheus.Counter
	invalid  prometheus.Counter
}

// New creates the counter service with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		success: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "POR_success",
			Help: "Successfully validated proof of reserves",
		}),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "POR_invalid",
			Help: "Invalid proof of reserves",
		}),
	}
	m.registry.MustRegister(m.success, m.invalid)
	return m
}

// IncSuccess records one successfully verified proof.
func (m *Metrics) IncSuccess() {
	m.success.Inc()
}

// IncInvalid records one failed verification.
func (m *Metrics) IncInvalid() {
	m.invalid.Inc()
}

// Registry exposes the registry for the scrape endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
