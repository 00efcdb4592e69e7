package model

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/aismm/internal/errs"
)

// Issues is the list of problems found while validating a model document.
// It is returned (wrapped) by Parse when the YAML is well-formed but the
// model is not.
type Issues []string

func (is Issues) Error() string {
	if len(is) == 1 {
		return is[0]
	}
	return fmt.Sprintf("%d issues: %s", len(is), strings.Join(is, "; "))
}

// TabError reports tab characters in a model document. YAML indentation
// must use spaces.
type TabError struct {
	Lines []int
}

func (e *TabError) Error() string {
	return fmt.Sprintf("model contains tab characters on line(s) %v; use spaces for indentation", e.Lines)
}

// --- Raw document shapes ---
//
// Pointers mark fields whose absence must be distinguishable from a zero
// value so defaults can be applied.

type rawModel struct {
	Version     string               `yaml:"version"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Scoring     rawScoring           `yaml:"scoring_config"`
	Pillars     map[string]rawPillar `yaml:"pillars"`
	Domains     map[string]rawDomain `yaml:"domains"`
}

type rawScoring struct {
	LevelScores        map[int]float64 `yaml:"level_scores"`
	MaturityThresholds Thresholds      `yaml:"maturity_thresholds"`
}

type rawPillar struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Weight      *float64 `yaml:"weight"`
}

type rawDomain struct {
	ID                 string              `yaml:"id"`
	Name               string              `yaml:"name"`
	Description        string              `yaml:"description"`
	Pillar             string              `yaml:"pillar"`
	Weight             *float64            `yaml:"weight"`
	KeyControls        []string            `yaml:"key_controls"`
	FrameworkAlignment map[string][]string `yaml:"framework_alignment"`
	Levels             map[string]rawLevel `yaml:"levels"`
	Questions          []rawQuestion       `yaml:"questions"`
}

type rawLevel struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	ScoreValue  *float64 `yaml:"score_value"`
}

type rawQuestion struct {
	ID       string   `yaml:"id"`
	Text     string   `yaml:"text"`
	HelpText string   `yaml:"help_text"`
	Type     string   `yaml:"question_type"`
	Options  []string `yaml:"options"`
	Weight   *float64 `yaml:"weight"`
	Required bool     `yaml:"required"`
}

// Load reads and parses a model file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a model document.
//
// Malformed input (tabs, invalid YAML) is returned as a *TabError or a YAML
// error. A well-formed document that breaks the model rules yields a
// validation error wrapping Issues.
func Parse(data []byte) (*Model, error) {
	const op = "model.Parse"

	if lines := tabLines(data); len(lines) > 0 {
		return nil, &TabError{Lines: lines}
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	if doc == nil {
		return nil, errs.Wrap(errs.KindValidation, op, errs.ReasonInvalidModel,
			Issues{"document is empty"}, "invalid model")
	}
	if _, ok := doc["aismm"]; ok {
		return nil, errs.Wrap(errs.KindValidation, op, errs.ReasonInvalidModel,
			Issues{"v2.x structure (top-level 'aismm' key) is not supported; use the flat v1 layout"}, "invalid model")
	}

	if issues := checkStructure(doc); len(issues) > 0 {
		return nil, errs.Wrap(errs.KindValidation, op, errs.ReasonInvalidModel, issues, "invalid model")
	}

	var raw rawModel
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	m := build(&raw)
	if issues := checkModel(m); len(issues) > 0 {
		return nil, errs.Wrap(errs.KindValidation, op, errs.ReasonInvalidModel, issues, "invalid model")
	}
	return m, nil
}

func tabLines(data []byte) []int {
	if !bytes.ContainsRune(data, '\t') {
		return nil
	}
	var lines []int
	for i, ln := range bytes.Split(data, []byte("\n")) {
		if bytes.ContainsRune(ln, '\t') {
			lines = append(lines, i+1)
		}
	}
	return lines
}

// build converts the raw document into a Model, applying defaults:
// weights default to 1.0 and level score values fall back to
// scoring_config.level_scores, then to the level number.
func build(raw *rawModel) *Model {
	m := &Model{
		Version:     raw.Version,
		Name:        raw.Name,
		Description: raw.Description,
		Scoring: ScoringConfig{
			LevelScores:        raw.Scoring.LevelScores,
			MaturityThresholds: raw.Scoring.MaturityThresholds,
		},
		Pillars: make(map[string]Pillar, len(raw.Pillars)),
		Domains: make(map[string]Domain, len(raw.Domains)),
	}

	for key, rp := range raw.Pillars {
		m.Pillars[key] = Pillar{
			ID:          rp.ID,
			Name:        rp.Name,
			Description: rp.Description,
			Weight:      weightOrDefault(rp.Weight),
		}
	}

	for key, rd := range raw.Domains {
		d := Domain{
			ID:                 rd.ID,
			Name:               rd.Name,
			Description:        rd.Description,
			Pillar:             rd.Pillar,
			Weight:             weightOrDefault(rd.Weight),
			KeyControls:        rd.KeyControls,
			FrameworkAlignment: rd.FrameworkAlignment,
		}
		for n := MinLevel; n <= MaxLevel; n++ {
			rl, ok := rd.Levels[levelKey(n)]
			if !ok {
				continue
			}
			lvl := Level{Level: n, Name: rl.Name, Description: rl.Description}
			switch {
			case rl.ScoreValue != nil:
				lvl.ScoreValue = *rl.ScoreValue
			case raw.Scoring.LevelScores[n] != 0:
				lvl.ScoreValue = raw.Scoring.LevelScores[n]
			default:
				lvl.ScoreValue = float64(n)
			}
			if lvl.Name == "" {
				lvl.Name = LevelName(n)
			}
			d.Levels = append(d.Levels, lvl)
		}
		for _, rq := range rd.Questions {
			d.Questions = append(d.Questions, Question{
				ID:       rq.ID,
				Text:     rq.Text,
				HelpText: rq.HelpText,
				Type:     QuestionType(rq.Type).Normalize(),
				Options:  rq.Options,
				Weight:   weightOrDefault(rq.Weight),
				Required: rq.Required,
			})
		}
		m.Domains[key] = d
	}
	return m
}

func weightOrDefault(w *float64) float64 {
	if w == nil {
		return 1.0
	}
	return *w
}

func levelKey(n int) string {
	return fmt.Sprintf("level_%d", n)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
