package analyst_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/HendryAvila/aismm/internal/analyst"
	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/scoring"
)

// pillarContext builds a context for security_from_ai from the default
// model with one critical, one medium and one mature domain.
func pillarContext(t *testing.T) report.PillarContext {
	t.Helper()
	m, err := model.Default()
	if err != nil {
		t.Fatal(err)
	}
	scores := []scoring.DomainScore{
		{DomainID: "prompt_injection_protection", PillarID: "security_from_ai", RawScore: 1, WeightedScore: 1.5, MaturityLevel: 1, QuestionsScored: 3},
		{DomainID: "deepfake_defense", PillarID: "security_from_ai", RawScore: 3, WeightedScore: 3.6, MaturityLevel: 3, QuestionsScored: 3},
		{DomainID: "ai_content_detection", PillarID: "security_from_ai", RawScore: 4.5, WeightedScore: 4.5, MaturityLevel: 5, QuestionsScored: 3},
	}
	snap := scoring.Snapshot{AssessmentID: "a1", Status: scoring.StatusCompleted, DomainScores: scores}
	pcs, err := report.BuildPillarContexts(m, "Acme", []scoring.Snapshot{snap}, scoring.DefaultTrendConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, pc := range pcs {
		if pc.Pillar.ID == "security_from_ai" {
			return pc
		}
	}
	t.Fatal("pillar security_from_ai not found")
	return report.PillarContext{}
}

// ─── Heuristic ──────────────────────────────────────────────────────────────

func TestHeuristic_BuildsStructuredReport(t *testing.T) {
	pc := pillarContext(t)
	fr, err := analyst.NewHeuristic().AnalyzePillar(context.Background(), pc)
	if err != nil {
		t.Fatal(err)
	}

	if fr.PillarID != "security_from_ai" || fr.PillarName != "Security from AI" {
		t.Errorf("pillar identity = %q/%q", fr.PillarID, fr.PillarName)
	}
	if fr.MaturityLevel != pc.Score.MaturityLevel {
		t.Errorf("maturity = %d, want %d", fr.MaturityLevel, pc.Score.MaturityLevel)
	}
	if !strings.Contains(fr.ExecutiveSummary, "across 3 of 6 domains") {
		t.Errorf("summary = %q", fr.ExecutiveSummary)
	}
	if len(fr.Achievements) != 1 || !strings.Contains(fr.Achievements[0], "AI-Generated Content Detection operates at level 5") {
		t.Errorf("achievements = %v", fr.Achievements)
	}
	if len(fr.AreasForImprovement) != 1 {
		t.Errorf("only the critical domain is an improvement area: %v", fr.AreasForImprovement)
	}

	if len(fr.PrioritizedRecommendations) == 0 {
		t.Fatal("expected recommendations")
	}
	first := fr.PrioritizedRecommendations[0]
	if first.Priority != report.PriorityCritical || first.Domain != "prompt_injection_protection" {
		t.Errorf("first recommendation = %+v", first)
	}
	var low int
	for _, r := range fr.PrioritizedRecommendations {
		if _, ok := r.Priority.Rank(); !ok {
			t.Errorf("invalid priority %q", r.Priority)
		}
		if r.Priority == report.PriorityLow {
			low++
		}
	}
	if low != 3 {
		t.Errorf("want one low recommendation per unassessed domain (3), got %d", low)
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	pc := pillarContext(t)
	h := analyst.NewHeuristic()
	a, err := h.AnalyzePillar(context.Background(), pc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.AnalyzePillar(context.Background(), pc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("heuristic analyst must be deterministic")
	}
}

func TestHeuristic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := analyst.NewHeuristic().AnalyzePillar(ctx, pillarContext(t)); err == nil {
		t.Error("expected context error")
	}
}

func TestHeuristic_FeedsConsolidator(t *testing.T) {
	m, err := model.Default()
	if err != nil {
		t.Fatal(err)
	}
	snap := scoring.Snapshot{
		AssessmentID: "a1",
		Status:       scoring.StatusCompleted,
		Totals:       scoring.Totals{MaturityLevel: 2, ScorePercent: 35},
		DomainScores: []scoring.DomainScore{
			{DomainID: "ai_security_standards", PillarID: "security_for_ai", RawScore: 1, WeightedScore: 1.5, MaturityLevel: 1},
			{DomainID: "security_operations", PillarID: "ai_for_security", RawScore: 2, WeightedScore: 2.4, MaturityLevel: 2},
		},
	}
	history := []scoring.Snapshot{snap}
	pcs, err := report.BuildPillarContexts(m, "Acme", history, scoring.DefaultTrendConfig())
	if err != nil {
		t.Fatal(err)
	}
	frs, err := report.RunAnalyses(context.Background(), analyst.NewHeuristic(), pcs, true)
	if err != nil {
		t.Fatal(err)
	}
	r, err := report.Consolidate(report.Input{Model: m, OrganizationID: "org", OrganizationName: "Acme", Assessments: history, Fragments: frs}, report.DefaultConfig())
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(r.StrategicRecommendations) == 0 || r.StrategicRecommendations[0].Priority != report.PriorityCritical {
		t.Errorf("recommendations = %+v", r.StrategicRecommendations)
	}
}

// ─── Ollama ─────────────────────────────────────────────────────────────────

func TestOllama_DecodesStructuredResponse(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fragment := `{"executive_summary":"Defenses are at level 2.","maturity_level":2,` +
			`"key_milestones":["Deploy an LLM firewall"],"achievements":[],"areas_for_improvement":["prompt monitoring"],` +
			`"prioritized_recommendations":[{"priority":"critical","domain":"prompt_injection_protection",` +
			`"recommendation":"Add input filtering","expected_impact":"high","effort_estimate":"weeks"}]}`
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "test", "response": fragment, "done": true})
	}))
	defer srv.Close()

	o := analyst.NewOllama(analyst.OllamaConfig{URL: srv.URL + "/", Model: "test-model", Temperature: 0.2})
	fr, err := o.AnalyzePillar(context.Background(), pillarContext(t))
	if err != nil {
		t.Fatalf("AnalyzePillar: %v", err)
	}

	if got["model"] != "test-model" || got["format"] != "json" || got["stream"] != false {
		t.Errorf("request = %v", got)
	}
	if opts, _ := got["options"].(map[string]any); opts["temperature"] != 0.2 {
		t.Errorf("temperature not forwarded: %v", got["options"])
	}
	if prompt, _ := got["prompt"].(string); !strings.Contains(prompt, "Pillar: Security from AI") {
		t.Errorf("prompt missing pillar: %q", prompt)
	}

	if fr.PillarID != "security_from_ai" || fr.MaturityLevel != 2 {
		t.Errorf("fragment = %+v", fr)
	}
	if len(fr.PrioritizedRecommendations) != 1 || fr.PrioritizedRecommendations[0].Priority != report.PriorityCritical {
		t.Errorf("recommendations = %+v", fr.PrioritizedRecommendations)
	}
}

func TestOllama_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusBadRequest)
			},
			want: "400",
		},
		{
			name: "prose instead of json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"response": "## Key Milestones\n- do things", "done": true})
			},
			want: "decoding pillar report",
		},
		{
			name: "model error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "out of memory"})
			},
			want: "out of memory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			o := analyst.NewOllama(analyst.OllamaConfig{URL: srv.URL, RetryMax: 0})
			_, err := o.AnalyzePillar(context.Background(), pillarContext(t))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestBuildPrompt_ListsDomains(t *testing.T) {
	prompt := analyst.BuildPrompt(pillarContext(t))
	for _, want := range []string{
		"Organization: Acme",
		"Prompt Injection",
		"not assessed",
		"Ranked gaps",
		"prompt_injection_protection: critical tier, priority 6.0",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
