package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/report"
)

const (
	// DefaultOllamaURL is the local Ollama endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is used when no model is configured.
	DefaultOllamaModel = "llama3.1"

	// DefaultTimeout bounds one generate call, retries excluded.
	DefaultTimeout = 5 * time.Minute

	// DefaultRetryMax is the number of retries after the first attempt.
	DefaultRetryMax = 2

	// maxResponseBytes caps the body read from Ollama.
	maxResponseBytes = 4 << 20
)

// OllamaConfig configures the Ollama analyst.
type OllamaConfig struct {
	URL         string
	Model       string
	Temperature float64
	Timeout     time.Duration
	RetryMax    int
}

// Ollama asks a local model for a pillar report in JSON mode and decodes
// the structured answer. Prose is never scraped; an answer that does not
// decode into a pillar report is an error.
type Ollama struct {
	cfg    OllamaConfig
	client *retryablehttp.Client
}

// NewOllama returns an Ollama analyst, filling unset fields with defaults.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.URL == "" {
		cfg.URL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil

	return &Ollama{cfg: cfg, client: client}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

const systemPrompt = `You are an AI security maturity analyst. Answer ONLY with a JSON object with these fields:
executive_summary (string, 2-4 sentences, state the pillar maturity as "level N"),
maturity_level (integer 1-5),
key_milestones (array of strings),
achievements (array of strings),
areas_for_improvement (array of strings),
prioritized_recommendations (array of objects with priority one of critical|high|medium|low, domain (a domain id), recommendation, expected_impact, effort_estimate).`

// AnalyzePillar implements report.Analyzer.
func (o *Ollama) AnalyzePillar(ctx context.Context, pc report.PillarContext) (report.PillarReport, error) {
	body, err := json.Marshal(generateRequest{
		Model:   o.cfg.Model,
		Prompt:  BuildPrompt(pc),
		System:  systemPrompt,
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"temperature": o.cfg.Temperature},
	})
	if err != nil {
		return report.PillarReport{}, fmt.Errorf("encoding ollama request: %w", err)
	}

	url := strings.TrimRight(o.cfg.URL, "/") + "/api/generate"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return report.PillarReport{}, fmt.Errorf("building ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return report.PillarReport{}, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return report.PillarReport{}, fmt.Errorf("reading ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return report.PillarReport{}, fmt.Errorf("ollama returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var gen generateResponse
	if err := json.Unmarshal(raw, &gen); err != nil {
		return report.PillarReport{}, fmt.Errorf("decoding ollama envelope: %w", err)
	}
	if gen.Error != "" {
		return report.PillarReport{}, fmt.Errorf("ollama: %s", gen.Error)
	}

	var fr report.PillarReport
	dec := json.NewDecoder(strings.NewReader(gen.Response))
	if err := dec.Decode(&fr); err != nil {
		return report.PillarReport{}, fmt.Errorf("decoding pillar report from model output: %w", err)
	}
	fr.PillarID = pc.Pillar.ID
	fr.PillarName = pc.Pillar.Name
	return fr, nil
}

// BuildPrompt renders the pillar context as the user prompt.
func BuildPrompt(pc report.PillarContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Organization: %s\n", pc.OrganizationName)
	fmt.Fprintf(&b, "Pillar: %s (%s)\n", pc.Pillar.Name, pc.Pillar.ID)
	if pc.Pillar.Description != "" {
		fmt.Fprintf(&b, "Pillar scope: %s\n", pc.Pillar.Description)
	}
	fmt.Fprintf(&b, "Completed assessments analyzed: %d\n", pc.AssessmentsAnalyzed)
	if pc.Score.Assessed() {
		fmt.Fprintf(&b, "Pillar maturity: level %d (%s), mean raw score %.2f\n",
			pc.Score.MaturityLevel, model.LevelName(pc.Score.MaturityLevel), pc.Score.RawScore)
	} else {
		b.WriteString("Pillar maturity: not assessed\n")
	}

	b.WriteString("\nDomain scores:\n")
	scores := make(map[string]int, len(pc.DomainScores))
	for _, ds := range pc.DomainScores {
		if ds.Assessed() {
			scores[ds.DomainID] = ds.MaturityLevel
		}
	}
	for _, d := range pc.Domains {
		lvl, ok := scores[d.ID]
		if !ok {
			fmt.Fprintf(&b, "- %s (%s): not assessed\n", d.Name, d.ID)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s): level %d (%s), weight %.1f\n", d.Name, d.ID, lvl, model.LevelName(lvl), d.Weight)
		if len(d.KeyControls) > 0 {
			fmt.Fprintf(&b, "  key controls: %s\n", strings.Join(d.KeyControls, "; "))
		}
	}

	if len(pc.Gaps.Gaps) > 0 {
		b.WriteString("\nRanked gaps (highest priority first):\n")
		for _, g := range pc.Gaps.Gaps {
			fmt.Fprintf(&b, "- %s: %s tier, priority %.1f\n", g.DomainID, g.Tier, g.Priority)
		}
	}

	if pc.Trend != nil {
		fmt.Fprintf(&b, "\nOverall trend since first assessment: %s (%+.1f points)\n", pc.Trend.Direction, pc.Trend.ScoreChange)
	}
	return b.String()
}
