// Package metrics provides the Prometheus registry warden exports on
// /metrics and the collectors fed by moderation and the bot dispatcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/flemzord/warden/internal/moderation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegistryService is the service name the shared *prometheus.Registry is
// registered under.
const RegistryService = "metrics.registry"

const namespace = "warden"

// NewRegistry returns a registry carrying the Go runtime and process
// collectors. Each App gets its own so tests never collide on the global
// default registry.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Moderation implements moderation.Observer with Prometheus collectors.
type Moderation struct {
	classified          *prometheus.CounterVec
	classifyLatency     *prometheus.HistogramVec
	actions             *prometheus.CounterVec
	resets              prometheus.Counter
	sideEffectFailures  *prometheus.CounterVec
	persistenceFailures prometheus.Counter
}

var _ moderation.Observer = (*Moderation)(nil)

// NewModeration creates the moderation collectors and registers them on reg.
func NewModeration(reg prometheus.Registerer) *Moderation {
	m := &Moderation{
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "classifications_total",
			Help:      "Messages classified, by deciding step and verdict.",
		}, []string{"reason", "verdict"}),
		classifyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "classification_duration_seconds",
			Help:      "Time spent classifying one message.",
			Buckets:   []float64{.001, .01, .1, .5, 1, 2, 5, 10, 20},
		}, []string{"reason"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "actions_total",
			Help:      "Enforcement actions taken.",
		}, []string{"action"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "counter_resets_total",
			Help:      "Violation counters reset by an admin.",
		}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "side_effect_failures_total",
			Help:      "Failed transport calls, by operation.",
		}, []string{"op"}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "persistence_failures_total",
			Help:      "Failed escalation counter loads and writes.",
		}),
	}
	reg.MustRegister(
		m.classified,
		m.classifyLatency,
		m.actions,
		m.resets,
		m.sideEffectFailures,
		m.persistenceFailures,
	)
	return m
}

func (m *Moderation) Classified(reason moderation.Reason, verdict moderation.Verdict, elapsed time.Duration) {
	m.classified.WithLabelValues(string(reason), verdict.String()).Inc()
	m.classifyLatency.WithLabelValues(string(reason)).Observe(elapsed.Seconds())
}

func (m *Moderation) ActionTaken(_ moderation.Message, action moderation.Action) {
	m.actions.WithLabelValues(action.Kind.String()).Inc()
}

func (m *Moderation) CounterReset(int64, int64, int64) {
	m.resets.Inc()
}

func (m *Moderation) SideEffectFailed(op string, _ error) {
	m.sideEffectFailures.WithLabelValues(op).Inc()
}

func (m *Moderation) PersistenceFailed(error) {
	m.persistenceFailures.Inc()
}

// Bot counts dispatcher traffic.
type Bot struct {
	updates   *prometheus.CounterVec
	assistant *prometheus.CounterVec
	panics    prometheus.Counter
}

// NewBot creates the dispatcher collectors and registers them on reg.
func NewBot(reg prometheus.Registerer) *Bot {
	b := &Bot{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Inbound updates, by how the dispatcher routed them.",
		}, []string{"route"}),
		assistant: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "assistant_replies_total",
			Help:      "Assistant replies, by outcome.",
		}, []string{"outcome"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "handler_panics_total",
			Help:      "Update handlers that panicked and were recovered.",
		}),
	}
	reg.MustRegister(b.updates, b.assistant, b.panics)
	return b
}

// Update records one routed update.
func (b *Bot) Update(route string) { b.updates.WithLabelValues(route).Inc() }

// Assistant records one assistant reply outcome.
func (b *Bot) Assistant(outcome string) { b.assistant.WithLabelValues(outcome).Inc() }

// Panic records a recovered handler panic.
func (b *Bot) Panic() { b.panics.Inc() }
