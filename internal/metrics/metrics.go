// Package metrics provides Prometheus metrics for the agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent. It implements the
// observer interfaces of the conversation, workflow, tasks and cleanup
// packages.
type Metrics struct {
	MessagesTotal       *prometheus.CounterVec
	ConversationsGauge  prometheus.Gauge
	WorkflowsTotal      *prometheus.CounterVec
	WorkflowsInflight   prometheus.Gauge
	TasksTotal          *prometheus.CounterVec
	TasksInflight       prometheus.Gauge
	TaskDurationSeconds *prometheus.HistogramVec
	SweptTotal          *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pm_agent_messages_total",
				Help: "Chat messages handled, by conversation step.",
			},
			[]string{"step"},
		),
		ConversationsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pm_agent_conversations_active",
				Help: "Conversations currently holding state.",
			},
		),
		WorkflowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pm_agent_workflows_total",
				Help: "Finished workflows by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
		WorkflowsInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pm_agent_workflows_inflight",
				Help: "Workflows currently executing.",
			},
		),
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pm_agent_tasks_total",
				Help: "Finished background tasks by status.",
			},
			[]string{"status"},
		),
		TasksInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pm_agent_tasks_inflight",
				Help: "Background tasks queued or running.",
			},
		),
		TaskDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pm_agent_task_duration_seconds",
				Help:    "Background task duration by kind.",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		SweptTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pm_agent_cleanup_swept_total",
				Help: "Items removed by the cleanup sweeper, by kind.",
			},
			[]string{"kind"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.MessagesTotal,
		m.ConversationsGauge,
		m.WorkflowsTotal,
		m.WorkflowsInflight,
		m.TasksTotal,
		m.TasksInflight,
		m.TaskDurationSeconds,
		m.SweptTotal,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MessageHandled counts a handled chat message.
func (m *Metrics) MessageHandled(step string) {
	m.MessagesTotal.WithLabelValues(step).Inc()
}

// ConversationsActive sets the active conversation count.
func (m *Metrics) ConversationsActive(n int) {
	m.ConversationsGauge.Set(float64(n))
}

// WorkflowStarted marks a workflow as in flight.
func (m *Metrics) WorkflowStarted(kind string) {
	m.WorkflowsInflight.Inc()
}

// WorkflowFinished counts a finished workflow.
func (m *Metrics) WorkflowFinished(kind string, success bool) {
	m.WorkflowsInflight.Dec()
	status := "success"
	if !success {
		status = "failure"
	}
	m.WorkflowsTotal.WithLabelValues(kind, status).Inc()
}

// TaskSubmitted marks a background task as in flight.
func (m *Metrics) TaskSubmitted() {
	m.TasksInflight.Inc()
}

// TaskFinished counts a finished background task and its duration.
func (m *Metrics) TaskFinished(kind, status string, seconds float64) {
	m.TasksInflight.Dec()
	m.TasksTotal.WithLabelValues(status).Inc()
	m.TaskDurationSeconds.WithLabelValues(kind).Observe(seconds)
}

// Swept counts items removed by the cleanup sweeper.
func (m *Metrics) Swept(kind string, count int) {
	m.SweptTotal.WithLabelValues(kind).Add(float64(count))
}
