package config

import (
	"strings"
	"testing"
	"time"
)

// --- DefaultConfig ---

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Analyzer != AnalyzerHeuristic {
		t.Errorf("Analyzer = %s, want heuristic", cfg.Analyzer)
	}
	if cfg.Report.MaxRecommendations != 10 {
		t.Errorf("MaxRecommendations = %d, want 10", cfg.Report.MaxRecommendations)
	}
	if cfg.TrendConfig().ScoreThreshold != 10 {
		t.Errorf("ScoreThreshold = %g, want 10", cfg.TrendConfig().ScoreThreshold)
	}
	if !strings.HasSuffix(cfg.DataDir, ".aismm") {
		t.Errorf("DataDir = %s, want ~/.aismm", cfg.DataDir)
	}
	if !cfg.ParallelAnalysis {
		t.Error("parallel analysis should default to on")
	}
}

// --- FromEnv ---

func TestFromEnv_Overlay(t *testing.T) {
	t.Setenv("AISMM_DATA_DIR", "/var/lib/aismm")
	t.Setenv("AISMM_MODEL_PATH", "/etc/aismm/model.yaml")
	t.Setenv("AISMM_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("AISMM_ANALYZER", "Ollama")
	t.Setenv("OLLAMA_URL", "http://gpu:11434")
	t.Setenv("OLLAMA_MODEL", "qwen2.5")
	t.Setenv("OLLAMA_TEMPERATURE", "0.3")
	t.Setenv("AISMM_ANALYSIS_TIMEOUT", "90s")
	t.Setenv("AISMM_PARALLEL_ANALYSIS", "false")
	t.Setenv("AISMM_MAX_RECOMMENDATIONS", "5")
	t.Setenv("AISMM_TREND_SCORE_THRESHOLD", "7.5")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.DataDir != "/var/lib/aismm" || cfg.ModelPath != "/etc/aismm/model.yaml" || cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("paths = %s %s %s", cfg.DataDir, cfg.ModelPath, cfg.HTTPAddr)
	}
	if cfg.Analyzer != AnalyzerOllama {
		t.Errorf("Analyzer = %s, want ollama", cfg.Analyzer)
	}
	if cfg.Ollama.URL != "http://gpu:11434" || cfg.Ollama.Model != "qwen2.5" || cfg.Ollama.Temperature != 0.3 {
		t.Errorf("Ollama = %+v", cfg.Ollama)
	}
	if cfg.AnalysisTimeout != 90*time.Second || cfg.ParallelAnalysis {
		t.Errorf("analysis = %s parallel=%v", cfg.AnalysisTimeout, cfg.ParallelAnalysis)
	}
	if cfg.Report.MaxRecommendations != 5 || cfg.Report.Trend.ScoreThreshold != 7.5 {
		t.Errorf("Report = %+v", cfg.Report)
	}
}

func TestFromEnv_Malformed(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"AISMM_ANALYZER", "gpt", "unknown analyzer"},
		{"AISMM_MAX_RECOMMENDATIONS", "ten", "AISMM_MAX_RECOMMENDATIONS"},
		{"AISMM_MAX_RECOMMENDATIONS", "0", "must be positive"},
		{"AISMM_TREND_SCORE_THRESHOLD", "-1", "must not be negative"},
		{"AISMM_ANALYSIS_TIMEOUT", "soon", "AISMM_ANALYSIS_TIMEOUT"},
		{"AISMM_PARALLEL_ANALYSIS", "maybe", "AISMM_PARALLEL_ANALYSIS"},
		{"OLLAMA_TEMPERATURE", "warm", "OLLAMA_TEMPERATURE"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
