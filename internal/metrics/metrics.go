// Package metrics exposes Prometheus instrumentation for the button daemon.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/debounced-button/internal/logic"
)

const namespace = "button"

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	polarity    logic.Polarity
	transitions *prometheus.CounterVec
	down        *prometheus.GaugeVec
	readErrors  prometheus.Counter
	polls       prometheus.Counter
}

// New creates and registers all collectors. polarity is used to label
// accepted transitions as presses or releases.
func New(polarity logic.Polarity) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polarity: polarity,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Accepted (debounced) transitions by edge.",
		}, []string{"pin", "edge"}),
		down: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "down",
			Help:      "1 while the button is held down.",
		}, []string{"pin"}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gpio_read_errors_total",
			Help:      "Failed raw GPIO reads.",
		}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Debouncer steps executed.",
		}),
	}
	m.registry.MustRegister(m.transitions, m.down, m.readErrors, m.polls)
	return m
}

// Transition implements logic.Sink.
func (m *Metrics) Transition(t logic.Transition) {
	pin := strconv.Itoa(t.Pin)
	edge := "released"
	down := 0.0
	if t.Level == m.polarity.ActiveLevel() {
		edge = "pressed"
		down = 1
	}
	m.transitions.WithLabelValues(pin, edge).Inc()
	m.down.WithLabelValues(pin).Set(down)
}

// Reset marks pin as released, matching a debouncer reset to its rest state.
func (m *Metrics) Reset(pin int) {
	m.down.WithLabelValues(strconv.Itoa(pin)).Set(0)
}

// ReadError counts a failed GPIO read. Its signature matches gpio.NewSampler's hook.
func (m *Metrics) ReadError(error) {
	m.readErrors.Inc()
}

// Poll counts one debouncer step.
func (m *Metrics) Poll() {
	m.polls.Inc()
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
