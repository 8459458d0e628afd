package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/internal/resilience"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

const namespace = "staging_autoscaler"

// Metrics collects the outcome of a single run. A run is a short lived
// process, so the registry is pushed to a Pushgateway instead of scraped.
type Metrics struct {
	registry *prometheus.Registry

	steps          *prometheus.CounterVec
	runDuration    prometheus.Gauge
	runSuccess     prometheus.Gauge
	lastRun        prometheus.Gauge
	circuitBreaker *prometheus.GaugeVec
	notifications  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Scaling steps evaluated, by dimension, action and status.",
		}, []string{"dimension", "action", "status"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "1 if the last run finished without a phase failure.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		circuitBreaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Operator notifications sent, by category and severity.",
		}, []string{"category", "severity"}),
	}

	m.registry.MustRegister(m.steps, m.runDuration, m.runSuccess, m.lastRun, m.circuitBreaker, m.notifications)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveStep(step models.StepResult) {
	m.steps.WithLabelValues(string(step.Dimension), string(step.Action), string(step.Status)).Inc()
}

func (m *Metrics) ObserveRun(d time.Duration, success bool, at time.Time) {
	m.runDuration.Set(d.Seconds())
	if success {
		m.runSuccess.Set(1)
	} else {
		m.runSuccess.Set(0)
	}
	m.lastRun.Set(float64(at.Unix()))
}

func (m *Metrics) SetCircuitBreakerState(name string, state resilience.State) {
	m.circuitBreaker.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) IncNotification(category, severity string) {
	m.notifications.WithLabelValues(category, severity).Inc()
}

// Handle records step outcomes and run completion from the event stream.
func (m *Metrics) Handle(_ context.Context, event *models.Event) {
	switch event.Type {
	case models.EventTypeScalingComplete, models.EventTypeScalingSkipped, models.EventTypeScalingFailed:
		if event.Step != nil {
			m.ObserveStep(*event.Step)
		}
	case models.EventTypeRunFinished:
		m.ObserveRun(event.Duration, event.Success, event.Timestamp)
	}
}

type PushConfig struct {
	URL      string
	Job      string
	Instance string
	Timeout  time.Duration
}

// Push replaces the metrics of this job on the Pushgateway.
func (m *Metrics) Push(ctx context.Context, cfg PushConfig) error {
	if cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pusher := push.New(cfg.URL, cfg.Job).Gatherer(m.registry)
	if cfg.Instance != "" {
		pusher = pusher.Grouping("instance", cfg.Instance)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", cfg.URL, err)
	}

	logger.Debugf("Pushed metrics to %s", cfg.URL)
	return nil
}
