package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etiquette_quest"

// Metrics holds the engine counters on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	scenariosStarted   *prometheus.CounterVec
	selections         *prometheus.CounterVec
	staleSelections    prometheus.Counter
	lockedStarts       prometheus.Counter
	scenariosCompleted *prometheus.CounterVec
	playersRegistered  prometheus.Gauge
}

// New creates a registry with the engine metrics and the Go runtime collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		scenariosStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_started_total",
			Help:      "Total number of scenario attempts started.",
		}, []string{"country", "scenario"}),
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Total number of accepted option selections, partitioned by correctness.",
		}, []string{"correct"}),
		staleSelections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_selections_total",
			Help:      "Total number of selections rejected because the interaction was no longer current.",
		}),
		lockedStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locked_starts_total",
			Help:      "Total number of start requests rejected because the scenario was locked.",
		}),
		scenariosCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_completed_total",
			Help:      "Total number of completed attempts, partitioned by scenario and pass state.",
		}, []string{"country", "scenario", "passed"}),
		playersRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_registered",
			Help:      "Number of players with a live session.",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ScenarioStarted counts an accepted scenario start
func (m *Metrics) ScenarioStarted(countryID, scenarioID string) {
	if m == nil {
		return
	}
	m.scenariosStarted.WithLabelValues(countryID, scenarioID).Inc()
}

// OptionSelected counts an accepted answer by correctness
func (m *Metrics) OptionSelected(correct bool) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

// StaleSelection counts a rejected stale answer
func (m *Metrics) StaleSelection() {
	if m == nil {
		return
	}
	m.staleSelections.Inc()
}

// LockedStart counts a start rejected by the progression gate
func (m *Metrics) LockedStart() {
	if m == nil {
		return
	}
	m.lockedStarts.Inc()
}

// ScenarioCompleted counts a finished attempt
func (m *Metrics) ScenarioCompleted(countryID, scenarioID string, passed bool) {
	if m == nil {
		return
	}
	m.scenariosCompleted.WithLabelValues(countryID, scenarioID, strconv.FormatBool(passed)).Inc()
}

// SetPlayers records the number of registered players
func (m *Metrics) SetPlayers(count int) {
	if m == nil {
		return
	}
	m.playersRegistered.Set(float64(count))
}
