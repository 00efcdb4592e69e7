// Package config holds the process configuration. It is built once in cmd/
// from defaults plus environment variables and then passed explicitly to
// the components that need it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/aismm/internal/analyst"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/scoring"
)

// Analyzer kinds.
const (
	AnalyzerHeuristic = "heuristic"
	AnalyzerOllama    = "ollama"
)

// DefaultHTTPAddr is the listen address of the reporting API.
const DefaultHTTPAddr = ":8089"

// Config is the full process configuration.
type Config struct {
	DataDir string
	// ModelPath overrides the embedded maturity model when set.
	ModelPath string
	HTTPAddr  string

	Analyzer         string
	Ollama           analyst.OllamaConfig
	AnalysisTimeout  time.Duration
	ParallelAnalysis bool

	Report report.Config
}

// DefaultConfig returns the configuration used when no environment
// variables are set.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:  filepath.Join(home, ".aismm"),
		HTTPAddr: DefaultHTTPAddr,
		Analyzer: AnalyzerHeuristic,
		Ollama: analyst.OllamaConfig{
			URL:      analyst.DefaultOllamaURL,
			Model:    analyst.DefaultOllamaModel,
			Timeout:  analyst.DefaultTimeout,
			RetryMax: analyst.DefaultRetryMax,
		},
		AnalysisTimeout:  10 * time.Minute,
		ParallelAnalysis: true,
		Report:           report.DefaultConfig(),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// FromEnv overlays environment variables on DefaultConfig. Malformed
// values are reported rather than silently ignored.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = getenv("AISMM_DATA_DIR", cfg.DataDir)
	cfg.ModelPath = getenv("AISMM_MODEL_PATH", cfg.ModelPath)
	cfg.HTTPAddr = getenv("AISMM_HTTP_ADDR", cfg.HTTPAddr)
	cfg.Analyzer = strings.ToLower(getenv("AISMM_ANALYZER", cfg.Analyzer))
	cfg.Ollama.URL = getenv("OLLAMA_URL", cfg.Ollama.URL)
	cfg.Ollama.Model = getenv("OLLAMA_MODEL", cfg.Ollama.Model)

	var err error
	if cfg.Ollama.Temperature, err = getenvFloat("OLLAMA_TEMPERATURE", cfg.Ollama.Temperature); err != nil {
		return cfg, err
	}
	if cfg.AnalysisTimeout, err = getenvDuration("AISMM_ANALYSIS_TIMEOUT", cfg.AnalysisTimeout); err != nil {
		return cfg, err
	}
	if cfg.ParallelAnalysis, err = getenvBool("AISMM_PARALLEL_ANALYSIS", cfg.ParallelAnalysis); err != nil {
		return cfg, err
	}
	if cfg.Report.MaxRecommendations, err = getenvInt("AISMM_MAX_RECOMMENDATIONS", cfg.Report.MaxRecommendations); err != nil {
		return cfg, err
	}
	if cfg.Report.Trend.ScoreThreshold, err = getenvFloat("AISMM_TREND_SCORE_THRESHOLD", cfg.Report.Trend.ScoreThreshold); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Analyzer {
	case AnalyzerHeuristic, AnalyzerOllama:
	default:
		return fmt.Errorf("config: unknown analyzer %q (want %s or %s)", c.Analyzer, AnalyzerHeuristic, AnalyzerOllama)
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data dir is empty")
	}
	if c.Report.MaxRecommendations <= 0 {
		return fmt.Errorf("config: max recommendations must be positive, got %d", c.Report.MaxRecommendations)
	}
	if c.Report.Trend.ScoreThreshold < 0 {
		return fmt.Errorf("config: trend score threshold must not be negative, got %g", c.Report.Trend.ScoreThreshold)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("config: analysis timeout must be positive, got %s", c.AnalysisTimeout)
	}
	return nil
}

// TrendConfig returns the trend settings shared by reports and the trend
// endpoints.
func (c Config) TrendConfig() scoring.TrendConfig {
	return c.Report.Trend
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
