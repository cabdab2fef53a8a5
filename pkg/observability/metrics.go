package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one engine.
type Metrics struct {
	registry *prometheus.Registry

	posts         *prometheus.CounterVec
	softFailures  *prometheus.CounterVec
	genFailures   *prometheus.CounterVec
	genDuration   *prometheus.HistogramVec
	chaos         prometheus.Gauge
	rounds        prometheus.Gauge
	running       prometheus.Gauge
	statusChanges *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry, so several engines
// (or tests) never collide on registration.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		posts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rekitter_posts_total",
				Help: "Total number of posts appended to the timeline",
			},
			[]string{"speaker", "manual"},
		),
		softFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rekitter_soft_failures_total",
				Help: "Replies discarded because nothing usable was left after sanitizing",
			},
			[]string{"speaker"},
		),
		genFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rekitter_generation_failures_total",
				Help: "Generation calls that failed and stopped the debate",
			},
			[]string{"speaker"},
		),
		genDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rekitter_generation_duration_seconds",
				Help:    "Duration of generation calls",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"speaker"},
		),
		chaos: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rekitter_chaos_level",
			Help: "Current chaos level (0-100)",
		}),
		rounds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rekitter_rounds_completed",
			Help: "Rounds completed in the current session",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rekitter_session_running",
			Help: "1 while a debate is running",
		}),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rekitter_status_changes_total",
				Help: "Session status transitions by target status",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(
		m.posts, m.softFailures, m.genFailures, m.genDuration,
		m.chaos, m.rounds, m.running, m.statusChanges,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for tests or extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPostAppended: func(ctx context.Context, e *domain.TurnEvent) {
			manual := "false"
			if e.Manual {
				manual = "true"
			}
			m.posts.WithLabelValues(e.SpeakerID, manual).Inc()
			if e.Duration > 0 {
				m.genDuration.WithLabelValues(e.SpeakerID).Observe(e.Duration.Seconds())
			}
		},
		OnSoftFailure: func(ctx context.Context, e *domain.TurnEvent) {
			m.softFailures.WithLabelValues(e.SpeakerID).Inc()
		},
		OnGenerationFailure: func(ctx context.Context, e *domain.TurnEvent) {
			m.genFailures.WithLabelValues(e.SpeakerID).Inc()
		},
		OnStatusChange: func(ctx context.Context, s domain.Snapshot) {
			m.statusChanges.WithLabelValues(string(s.Status)).Inc()
			m.rounds.Set(float64(s.RoundsCompleted))
			m.chaos.Set(float64(s.Chaos))
			if s.Running {
				m.running.Set(1)
			} else {
				m.running.Set(0)
			}
		},
	}
}

// Publish implements ports.EventPublisher, keeping the gauges current on every
// event rather than only on status changes.
func (m *Metrics) Publish(ctx context.Context, ev domain.Event) error {
	m.chaos.Set(float64(ev.Session.Chaos))
	m.rounds.Set(float64(ev.Session.RoundsCompleted))
	return nil
}

// AuditHooks logs every turn with the given logger.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("turn_start",
				"speaker", e.SpeakerID,
				"round", e.Round,
				"attempt", e.Attempt,
				"manual", e.Manual,
			)
		},
		OnPostAppended: func(ctx context.Context, e *domain.TurnEvent) {
			attrs := []any{"speaker", e.SpeakerID, "manual", e.Manual, "duration", e.Duration}
			if e.Post != nil {
				attrs = append(attrs, "sequence", e.Post.Sequence)
			}
			logger.Info("post_appended", attrs...)
		},
		OnSoftFailure: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Warn("soft_failure", "speaker", e.SpeakerID, "attempt", e.Attempt)
		},
		OnGenerationFailure: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Error("generation_failure", "speaker", e.SpeakerID, "err", e.Err)
		},
		OnStatusChange: func(ctx context.Context, s domain.Snapshot) {
			logger.Info("status_change",
				"status", s.Status,
				"rounds_completed", s.RoundsCompleted,
				"round_budget", s.RoundBudget,
				"chaos", s.Chaos,
			)
		},
	}
}
