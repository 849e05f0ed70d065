// Package metrics exposes Prometheus collectors for painting runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commit_painter"

// Metrics holds the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	commitsCreated   prometheus.Counter
	throttleWaits    *prometheus.CounterVec
	throttleSeconds  *prometheus.CounterVec
	jobsFinished     *prometheus.CounterVec
	jobsRunning      prometheus.Gauge
	checkpointWrites *prometheus.CounterVec
}

// New creates collectors on a fresh registry, together with the Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		commitsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_created_total",
			Help:      "Commit objects appended to branch history.",
		}),
		throttleWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_waits_total",
			Help:      "Times a run was suspended by a throttle window.",
		}, []string{"window"}),
		throttleSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_wait_seconds_total",
			Help:      "Time spent suspended by throttle windows.",
		}, []string{"window"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Runs that reached a terminal state, by state and error type.",
		}, []string{"state", "error_type"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Runs currently in progress.",
		}),
		checkpointWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_writes_total",
			Help:      "Checkpoint writes, by operation.",
		}, []string{"op"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commitsCreated,
		m.throttleWaits,
		m.throttleSeconds,
		m.jobsFinished,
		m.jobsRunning,
		m.checkpointWrites,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CommitCreated() {
	if m == nil {
		return
	}
	m.commitsCreated.Inc()
}

func (m *Metrics) ThrottleWait(window string, wait time.Duration) {
	if m == nil {
		return
	}
	m.throttleWaits.WithLabelValues(window).Inc()
	m.throttleSeconds.WithLabelValues(window).Add(wait.Seconds())
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsRunning.Inc()
}

// JobFinished records a terminal state; errorType is empty on success.
func (m *Metrics) JobFinished(state, errorType string) {
	if m == nil {
		return
	}
	m.jobsRunning.Dec()
	m.jobsFinished.WithLabelValues(state, errorType).Inc()
}

// CheckpointWritten records a checkpoint "save" or "clear".
func (m *Metrics) CheckpointWritten(op string) {
	if m == nil {
		return
	}
	m.checkpointWrites.WithLabelValues(op).Inc()
}
