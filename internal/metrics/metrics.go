package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the run counters on a private registry, so tests and the
// textfile export only see this process's series.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	CandidatesTotal  prometheus.Counter
	NewTotal         prometheus.Counter
	PurgedTotal      prometheus.Counter
	DeliveryFailures prometheus.Counter
	StoreToday       prometheus.Gauge
	StoreTotal       prometheus.Gauge
	LastSuccess      prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resumewatch_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"status"}), // success, fetch_failed, store_failed
		CandidatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "resumewatch_candidates_total",
			Help: "Listings extracted from the search page.",
		}),
		NewTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "resumewatch_new_listings_total",
			Help: "Listings seen for the first time.",
		}),
		PurgedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "resumewatch_purged_total",
			Help: "Stored listings removed by the retention window.",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "resumewatch_delivery_failures_total",
			Help: "Telegram messages that failed to send.",
		}),
		StoreToday: factory.NewGauge(prometheus.GaugeOpts{
			Name: "resumewatch_store_today",
			Help: "Listings first seen today.",
		}),
		StoreTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "resumewatch_store_total",
			Help: "Listings currently stored.",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "resumewatch_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
}

func (m *Metrics) IncRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
