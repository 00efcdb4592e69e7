package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/HendryAvila/aismm/internal/metrics"
)

func TestCounters(t *testing.T) {
	m := metrics.New(false)

	m.ResponseScored("scale", metrics.OutcomeScored)
	m.ResponseScored("scale", metrics.OutcomeScored)
	m.ResponseScored("free_text", metrics.OutcomeUnscored)
	m.AssessmentCompleted()
	m.ReportGenerated(metrics.StatusSuccess, 250*time.Millisecond)
	m.ToolCall("aismm_answer", metrics.StatusSuccess)

	want := `
# HELP aismm_responses_total Responses processed, by question type and outcome.
# TYPE aismm_responses_total counter
aismm_responses_total{outcome="scored",question_type="scale"} 2
aismm_responses_total{outcome="unscored",question_type="free_text"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "aismm_responses_total"); err != nil {
		t.Error(err)
	}

	n, err := testutil.GatherAndCount(m.Registry(), "aismm_report_duration_seconds")
	if err != nil || n != 1 {
		t.Errorf("report duration series = %d (%v), want 1", n, err)
	}
	n, err = testutil.GatherAndCount(m.Registry(), "aismm_assessments_completed_total", "aismm_tool_calls_total")
	if err != nil || n != 2 {
		t.Errorf("series = %d (%v), want 2", n, err)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ResponseScored("scale", metrics.OutcomeScored)
	m.AssessmentCompleted()
	m.ReportGenerated(metrics.StatusFailure, time.Second)
	m.ToolCall("x", metrics.StatusFailure)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := metrics.New(true)
	m.AssessmentCompleted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"aismm_assessments_completed_total 1", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
