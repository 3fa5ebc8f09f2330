package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	WSMessages        *prometheus.CounterVec
	TurnOutcomes      *prometheus.CounterVec
	ToolDispatches    *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	FirstDeltaLatency prometheus.Histogram
	DispatchLatency   prometheus.Histogram

	turnStages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		turnStages: newTurnStageWindow(256),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		TurnOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_outcomes_total",
			Help:      "Assistant turn outcomes.",
		}, []string{"outcome"}),
		ToolDispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_dispatches_total",
			Help:      "Tool dispatches by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		FirstDeltaLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_delta_latency_ms",
			Help:      "Latency to first assistant text delta in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 4000},
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_dispatch_latency_ms",
			Help:      "Tool dispatch latency in milliseconds.",
			Buckets:   []float64{100, 300, 700, 1500, 3000, 6000, 12000, 30000},
		}),
	}
}

func (m *Metrics) ObserveFirstDeltaLatency(d time.Duration) {
	m.FirstDeltaLatency.Observe(float64(d.Milliseconds()))
	m.turnStages.Observe(StageFirstDelta, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveDispatchLatency(d time.Duration) {
	m.DispatchLatency.Observe(float64(d.Milliseconds()))
	m.turnStages.Observe(StageToolDispatch, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveTurnTotal(d time.Duration) {
	m.turnStages.Observe(StageTurnTotal, float64(d.Milliseconds()))
}

// MarkTurnIndicator counts a notable per-turn event, e.g. a repaired tool
// payload or a raw-text fallback.
func (m *Metrics) MarkTurnIndicator(name string) {
	m.turnStages.ObserveIndicator(name)
}

func (m *Metrics) TurnStages() TurnStageSnapshot {
	return m.turnStages.Snapshot()
}

func (m *Metrics) ResetTurnStages() {
	m.turnStages.Reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
