// Package metric holds the daemon's Prometheus instrumentation. All metrics
// live on a private registry so the /metrics endpoint never leaks collectors
// registered by dependencies.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the daemon's collectors. A nil *Metrics is a valid,
// disabled instance; every method tolerates it.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec   // by command and payload status
	duration     *prometheus.HistogramVec // by command
	syncs        prometheus.Counter
	entries      prometheus.Gauge
	eventClients prometheus.Gauge
}

// New builds and registers the daemon's collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipd",
			Name:      "requests_total",
			Help:      "Commands executed by the dispatcher, by command and result status.",
		}, []string{"command", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clipd",
			Name:      "request_duration_seconds",
			Help:      "Command execution time in seconds.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"command"}),

		syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clipd",
			Name:      "syncs_total",
			Help:      "Clipboard captures pulled in by the sync watcher.",
		}),

		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clipd",
			Name:      "entries",
			Help:      "Entries currently held in the store.",
		}),

		eventClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clipd",
			Name:      "event_clients",
			Help:      "WebSocket subscribers currently connected to /events.",
		}),
	}

	m.registry.MustRegister(m.requests, m.duration, m.syncs, m.entries, m.eventClients)
	return m
}

// ObserveRequest records one executed command.
func (m *Metrics) ObserveRequest(command, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(command, status).Inc()
	m.duration.WithLabelValues(command).Observe(seconds)
}

// SyncCaptured counts one clipboard capture.
func (m *Metrics) SyncCaptured() {
	if m == nil {
		return
	}
	m.syncs.Inc()
}

// SetEntries tracks the store's current size.
func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}

// ClientConnected counts an event subscriber joining.
func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.eventClients.Inc()
}

// ClientDisconnected counts an event subscriber leaving.
func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.eventClients.Dec()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
