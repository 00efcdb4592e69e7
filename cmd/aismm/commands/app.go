package commands

import (
	"fmt"
	"log"

	"github.com/HendryAvila/aismm/internal/analyst"
	"github.com/HendryAvila/aismm/internal/config"
	"github.com/HendryAvila/aismm/internal/metrics"
	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/service"
	"github.com/HendryAvila/aismm/internal/store"
)

// app is the wired application shared by serve and report.
type app struct {
	svc     *service.Service
	metrics *metrics.Metrics
	close   func()
}

// loadConfig is replaced in tests.
var loadConfig = config.FromEnv

func newApp(cfg config.Config) (*app, error) {
	m, err := loadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	met := metrics.New(true)
	svc := service.New(m, st, newAnalyzer(cfg), met, service.Options{
		Report:           cfg.Report,
		ParallelAnalysis: cfg.ParallelAnalysis,
		AnalysisTimeout:  cfg.AnalysisTimeout,
	})

	return &app{
		svc:     svc,
		metrics: met,
		close: func() {
			if err := st.Close(); err != nil {
				log.Printf("WARNING: closing store: %v", err)
			}
		},
	}, nil
}

func loadModel(path string) (*model.Model, error) {
	if path == "" {
		return model.Default()
	}
	return model.Load(path)
}

func newAnalyzer(cfg config.Config) report.Analyzer {
	if cfg.Analyzer == config.AnalyzerOllama {
		log.Printf("pillar analyses use ollama model %s at %s", cfg.Ollama.Model, cfg.Ollama.URL)
		return analyst.NewOllama(cfg.Ollama)
	}
	return analyst.NewHeuristic()
}
