package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the small set of Prometheus instruments the engine and its
// visualization harness populate: actors managed, emission attempts, gate
// activations, cut-ins, and tick duration. Built against a private registry
// so multiple engine instances in one process (e.g. the server running
// several scenarios) never collide on metric names.
type Metrics struct {
	reg *prometheus.Registry

	ActorsManaged      prometheus.Gauge
	EmissionsAttempted prometheus.Counter
	EmissionsSucceeded prometheus.Counter
	EmergencyBrakes    prometheus.Counter
	CutIns             prometheus.Counter
	TickDuration       prometheus.Histogram
}

// NewMetrics registers the engine's instruments against a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		ActorsManaged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trafficcore", Name: "actors_managed", Help: "number of currently managed traffic actors",
		}),
		EmissionsAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficcore", Name: "emissions_attempted_total", Help: "flow emission attempts",
		}),
		EmissionsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficcore", Name: "emissions_succeeded_total", Help: "successful flow emissions",
		}),
		EmergencyBrakes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficcore", Name: "emergency_brakes_total", Help: "emergency-brake gate activations",
		}),
		CutIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trafficcore", Name: "cutins_total", Help: "committed cut-in lane changes",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trafficcore", Name: "tick_duration_seconds", Help: "wall-clock duration of Provider.Step",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.ActorsManaged, m.EmissionsAttempted, m.EmissionsSucceeded, m.EmergencyBrakes, m.CutIns, m.TickDuration)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
