// Package model defines the AI Security Maturity Model (AISMM): pillars,
// domains, maturity levels and questionnaire questions.
//
// A Model is loaded once per process (see Parse, Load and Default) and
// treated as immutable afterwards. Scoring and reporting packages receive
// it explicitly; nothing in this package holds mutable global state.
package model

import (
	"sort"
	"strings"
)

// --- Question types ---

// QuestionType identifies how a response payload is scored.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionScale          QuestionType = "scale"
	QuestionMultipleChoice QuestionType = "multiple_choice" // multi-select set of labels
	QuestionBoolean        QuestionType = "boolean"
	QuestionNumeric        QuestionType = "numeric"
	QuestionFreeText       QuestionType = "free_text"
)

// typeAliases maps the legacy questionnaire vocabulary onto the canonical types.
var typeAliases = map[string]QuestionType{
	"scoring":    QuestionScale,
	"true_false": QuestionBoolean,
}

var knownTypes = map[QuestionType]bool{
	QuestionSingleChoice:   true,
	QuestionScale:          true,
	QuestionMultipleChoice: true,
	QuestionBoolean:        true,
	QuestionNumeric:        true,
	QuestionFreeText:       true,
}

// Normalize resolves aliases and case. Unknown types are returned lowercased
// and fail Valid.
func (t QuestionType) Normalize() QuestionType {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	if alias, ok := typeAliases[s]; ok {
		return alias
	}
	return QuestionType(s)
}

// Valid reports whether the (normalized) type is scoreable by this package.
func (t QuestionType) Valid() bool {
	return knownTypes[t.Normalize()]
}

// HasOptions reports whether the type is answered by picking from Options.
func (t QuestionType) HasOptions() bool {
	switch t.Normalize() {
	case QuestionSingleChoice, QuestionScale, QuestionMultipleChoice:
		return true
	}
	return false
}

// --- Core data structures ---

// Question is one questionnaire item belonging to a domain.
type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	HelpText string       `json:"help_text,omitempty"`
	Type     QuestionType `json:"question_type"`
	Options  []string     `json:"options,omitempty"`
	Weight   float64      `json:"weight"`
	Required bool         `json:"required"`
}

// Level is one of the five ordered maturity level definitions of a domain.
type Level struct {
	Level       int     `json:"level"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ScoreValue  float64 `json:"score_value"`
}

// Pillar groups related domains.
type Pillar struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Domain is a scored capability area within a pillar.
type Domain struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Pillar             string              `json:"pillar"`
	Weight             float64             `json:"weight"`
	KeyControls        []string            `json:"key_controls,omitempty"`
	FrameworkAlignment map[string][]string `json:"framework_alignment,omitempty"`
	Levels             []Level             `json:"levels"` // exactly 5, ordered 1..5
	Questions          []Question          `json:"questions,omitempty"`
}

// Question looks up a question of this domain by id.
func (d Domain) Question(id string) (Question, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// LevelDefinition returns the definition for level n (1..5).
func (d Domain) LevelDefinition(n int) (Level, bool) {
	if n < MinLevel || n > MaxLevel || len(d.Levels) < n {
		return Level{}, false
	}
	return d.Levels[n-1], true
}

// ScoringConfig carries the model-level scoring parameters.
type ScoringConfig struct {
	LevelScores        map[int]float64 `json:"level_scores"`
	MaturityThresholds Thresholds      `json:"maturity_thresholds"`
}

// Model is the complete maturity model.
type Model struct {
	Version     string            `json:"version"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Scoring     ScoringConfig     `json:"scoring_config"`
	Pillars     map[string]Pillar `json:"pillars"`
	Domains     map[string]Domain `json:"domains"`
}

// PillarIDs returns pillar ids in ascending order.
func (m *Model) PillarIDs() []string {
	ids := make([]string, 0, len(m.Pillars))
	for id := range m.Pillars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DomainIDs returns domain ids in ascending order.
func (m *Model) DomainIDs() []string {
	ids := make([]string, 0, len(m.Domains))
	for id := range m.Domains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DomainsForPillar returns the domains of a pillar ordered by id.
func (m *Model) DomainsForPillar(pillarID string) []Domain {
	var out []Domain
	for _, id := range m.DomainIDs() {
		if d := m.Domains[id]; d.Pillar == pillarID {
			out = append(out, d)
		}
	}
	return out
}

// Domain looks up a domain by id.
func (m *Model) Domain(id string) (Domain, bool) {
	d, ok := m.Domains[id]
	return d, ok
}

// Pillar looks up a pillar by id.
func (m *Model) Pillar(id string) (Pillar, bool) {
	p, ok := m.Pillars[id]
	return p, ok
}

// FindQuestion locates a question anywhere in the model and returns it
// together with its owning domain.
func (m *Model) FindQuestion(questionID string) (Domain, Question, bool) {
	for _, id := range m.DomainIDs() {
		d := m.Domains[id]
		if q, ok := d.Question(questionID); ok {
			return d, q, true
		}
	}
	return Domain{}, Question{}, false
}

// Thresholds returns the percentage thresholds to derive levels from,
// falling back to DefaultThresholds when the model does not define them.
func (m *Model) Thresholds() Thresholds {
	if m.Scoring.MaturityThresholds.IsZero() {
		return DefaultThresholds
	}
	return m.Scoring.MaturityThresholds
}

// Summary reports model statistics.
type Summary struct {
	Pillars     int  `json:"pillars"`
	Domains     int  `json:"domains"`
	Questions   int  `json:"questions"`
	KeyControls int  `json:"key_controls"`
	MITREAtlas  bool `json:"mitre_atlas"`
	OWASPGenAI  bool `json:"owasp_genai"`
}

// Summarize counts pillars, domains, questions and key controls, and
// reports which framework mappings are present.
func (m *Model) Summarize() Summary {
	s := Summary{Pillars: len(m.Pillars), Domains: len(m.Domains)}
	for _, d := range m.Domains {
		s.Questions += len(d.Questions)
		s.KeyControls += len(d.KeyControls)
		if len(d.FrameworkAlignment["mitre_atlas"]) > 0 {
			s.MITREAtlas = true
		}
		if len(d.FrameworkAlignment["owasp_genai"]) > 0 {
			s.OWASPGenAI = true
		}
	}
	return s
}
