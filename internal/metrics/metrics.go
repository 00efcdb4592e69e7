// Package metrics exposes Prometheus collectors for scoring and reporting
// activity on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "aismm"

// Outcome label values.
const (
	OutcomeScored     = "scored"
	OutcomeUnscored   = "unscored"
	OutcomeRejected   = "rejected"
	StatusSuccess     = "success"
	StatusFailure     = "failure"
	StatusPrecondFail = "precondition_failed"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	responsesScored     *prometheus.CounterVec
	assessmentsComplete prometheus.Counter
	reportsGenerated    *prometheus.CounterVec
	reportDuration      prometheus.Histogram
	toolCalls           *prometheus.CounterVec
}

// New creates the collectors on a fresh registry. Go runtime and process
// collectors are registered alongside when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	m := &Metrics{
		registry: reg,
		responsesScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "responses_total",
			Help:      "Responses processed, by question type and outcome.",
		}, []string{"question_type", "outcome"}),
		assessmentsComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "assessments_completed_total",
			Help:      "Assessments moved to completed.",
		}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reports_total",
			Help:      "Organization report generations, by status.",
		}, []string{"status"}),
		reportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "report_duration_seconds",
			Help:      "Time spent generating an organization report, analyses included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 180, 600},
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool invocations, by tool and status.",
		}, []string{"tool", "status"}),
	}
	reg.MustRegister(m.responsesScored, m.assessmentsComplete, m.reportsGenerated, m.reportDuration, m.toolCalls)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ResponseScored counts one processed response.
func (m *Metrics) ResponseScored(questionType, outcome string) {
	if m == nil {
		return
	}
	m.responsesScored.WithLabelValues(questionType, outcome).Inc()
}

// AssessmentCompleted counts one completion.
func (m *Metrics) AssessmentCompleted() {
	if m == nil {
		return
	}
	m.assessmentsComplete.Inc()
}

// ReportGenerated records one report attempt and its duration.
func (m *Metrics) ReportGenerated(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(status).Inc()
	m.reportDuration.Observe(d.Seconds())
}

// ToolCall counts one MCP tool invocation.
func (m *Metrics) ToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}
