package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/aismm/internal/errs"
)

const minimalModel = `
version: "0.1.0"
name: "Test Model"
description: "fixture"
scoring_config:
  level_scores: {1: 1, 2: 2, 3: 3, 4: 4, 5: 5}
  maturity_thresholds: {optimizing: 90, managed: 70, defined: 50, developing: 30}
pillars:
  p1:
    id: p1
    name: "Pillar One"
    description: "first"
    weight: 1.0
domains:
  d1:
    id: d1
    name: "Domain One"
    description: "first domain"
    pillar: p1
    levels:
      level_1: {name: Initial, description: "ad hoc"}
      level_2: {name: Developing, description: "some"}
      level_3: {name: Defined, description: "documented"}
      level_4: {name: Managed, description: "measured"}
      level_5: {name: Optimizing, description: "improving"}
    questions:
      - id: d1_q1
        text: "How mature?"
        question_type: scoring
        options: ["a", "b", "c", "d"]
      - id: d1_q2
        text: "Owner?"
        question_type: true_false
`

func issuesOf(t *testing.T, err error) Issues {
	t.Helper()
	var issues Issues
	require.True(t, errors.As(err, &issues), "expected Issues in chain, got %v", err)
	return issues
}

func containsIssue(issues Issues, substr string) bool {
	for _, is := range issues {
		if strings.Contains(is, substr) {
			return true
		}
	}
	return false
}

func TestDefault_EmbeddedModel(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"ai_for_security", "security_for_ai", "security_from_ai"}, m.PillarIDs())
	assert.Len(t, m.Domains, 19)

	for _, id := range m.DomainIDs() {
		d := m.Domains[id]
		require.Len(t, d.Levels, 5, "domain %s", id)
		for i, lvl := range d.Levels {
			assert.Equal(t, i+1, lvl.Level)
			assert.Equal(t, float64(i+1), lvl.ScoreValue)
		}
		_, ok := m.Pillars[d.Pillar]
		assert.True(t, ok, "domain %s references unknown pillar %s", id, d.Pillar)
	}

	s := m.Summarize()
	assert.Equal(t, Summary{Pillars: 3, Domains: 19, Questions: 79, KeyControls: 95, MITREAtlas: true, OWASPGenAI: true}, s)

	d, ok := m.Domain("prompt_injection_protection")
	require.True(t, ok)
	assert.Equal(t, 1.5, d.Weight)
	assert.Equal(t, "security_from_ai", d.Pillar)
	assert.Len(t, m.DomainsForPillar("security_from_ai"), 6)

	// Default is shared.
	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestParse_AppliesDefaultsAndAliases(t *testing.T) {
	m, err := Parse([]byte(minimalModel))
	require.NoError(t, err)

	d := m.Domains["d1"]
	assert.Equal(t, 1.0, d.Weight, "domain weight defaults to 1.0")
	assert.Equal(t, 3.0, d.Levels[2].ScoreValue, "score_value falls back to level_scores")

	q, ok := d.Question("d1_q1")
	require.True(t, ok)
	assert.Equal(t, QuestionScale, q.Type)
	assert.Equal(t, 1.0, q.Weight)

	owner, q2, ok := m.FindQuestion("d1_q2")
	require.True(t, ok)
	assert.Equal(t, "d1", owner.ID)
	assert.Equal(t, QuestionBoolean, q2.Type)

	_, _, ok = m.FindQuestion("nope")
	assert.False(t, ok)
}

func TestParse_RejectsTabs(t *testing.T) {
	doc := "version: \"1\"\nname: x\n\tdescription: y\n"
	_, err := Parse([]byte(doc))
	var tabErr *TabError
	require.ErrorAs(t, err, &tabErr)
	assert.Equal(t, []int{3}, tabErr.Lines)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("version: [unclosed"))
	require.Error(t, err)
	var issues Issues
	assert.False(t, errors.As(err, &issues), "syntax errors are not validation issues")
}

func TestParse_StructuralIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(string) string
		want   string
	}{
		{
			name:   "missing top-level key",
			mutate: func(s string) string { return strings.Replace(s, `version: "0.1.0"`, "", 1) },
			want:   `missing required top-level key "version"`,
		},
		{
			name:   "unknown pillar reference",
			mutate: func(s string) string { return strings.Replace(s, "pillar: p1", "pillar: p9", 1) },
			want:   `domains.d1.pillar "p9" not found in pillars`,
		},
		{
			name:   "missing level",
			mutate: func(s string) string { return strings.Replace(s, `level_3: {name: Defined, description: "documented"}`, "", 1) },
			want:   `domains.d1.levels missing "level_3"`,
		},
		{
			name: "unexpected level",
			mutate: func(s string) string {
				return strings.Replace(s, `level_5: {name: Optimizing, description: "improving"}`,
					"level_5: {name: Optimizing, description: \"improving\"}\n      level_6: {name: Beyond}", 1)
			},
			want: `unexpected key "level_6"`,
		},
		{
			name:   "pillar missing weight",
			mutate: func(s string) string { return strings.Replace(s, "    weight: 1.0\n", "", 1) },
			want:   `pillars.p1 missing "weight"`,
		},
		{
			name:   "question missing type",
			mutate: func(s string) string { return strings.Replace(s, "question_type: true_false", "", 1) },
			want:   `domains.d1.questions[2] missing "question_type"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mutate(minimalModel)))
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
			issues := issuesOf(t, err)
			assert.True(t, containsIssue(issues, tt.want), "issues %v should mention %q", issues, tt.want)
		})
	}
}

func TestParse_SemanticIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(string) string
		want   string
	}{
		{
			name:   "unknown question type",
			mutate: func(s string) string { return strings.Replace(s, "question_type: true_false", "question_type: ranking", 1) },
			want:   `unknown question_type "ranking"`,
		},
		{
			name: "decreasing score values",
			mutate: func(s string) string {
				return strings.Replace(s, `level_4: {name: Managed, description: "measured"}`,
					`level_4: {name: Managed, description: "measured", score_value: 2}`, 1)
			},
			want: "level_4 score_value 2 is lower than level_3",
		},
		{
			name:   "thresholds not descending",
			mutate: func(s string) string { return strings.Replace(s, "managed: 70", "managed: 95", 1) },
			want:   "maturity_thresholds must be strictly descending",
		},
		{
			name:   "choice question without options",
			mutate: func(s string) string { return strings.Replace(s, `options: ["a", "b", "c", "d"]`, "", 1) },
			want:   "defines no options",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mutate(minimalModel)))
			issues := issuesOf(t, err)
			assert.True(t, containsIssue(issues, tt.want), "issues %v should mention %q", issues, tt.want)
		})
	}
}

func TestParse_RejectsV2Layout(t *testing.T) {
	_, err := Parse([]byte("aismm:\n  components: {}\n"))
	issues := issuesOf(t, err)
	assert.True(t, containsIssue(issues, "v2.x"))
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalModel), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Model", m.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLevelName(t *testing.T) {
	tests := map[int]string{
		0: "Unknown", 1: "Initial", 2: "Developing", 3: "Defined",
		4: "Managed", 5: "Optimizing", 6: "Unknown", -1: "Unknown",
	}
	for level, want := range tests {
		assert.Equal(t, want, LevelName(level), "level %d", level)
	}
}

func TestLevelFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, LevelUnassessed},
		{-2, LevelUnassessed},
		{math.NaN(), LevelUnassessed},
		{0.4, 1},
		{1, 1},
		{2.49, 2},
		{2.5, 3},
		{3.33, 3},
		{4.6, 5},
		{7.5, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromScore(tt.score), "score %v", tt.score)
	}
}

func TestThresholds_Level(t *testing.T) {
	tests := []struct {
		pct  float64
		want int
	}{
		{100, 5}, {90, 5}, {89.9, 4}, {70, 4}, {50, 3}, {30, 2}, {29.99, 1}, {0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromPercentage(tt.pct), "pct %v", tt.pct)
	}

	custom := Thresholds{Optimizing: 80, Managed: 60, Defined: 40, Developing: 20}
	assert.Equal(t, 5, custom.Level(85))
	assert.Equal(t, 2, custom.Level(25))
	assert.True(t, custom.Descending())
	assert.False(t, Thresholds{}.Descending())
}

func TestQuestionType_Normalize(t *testing.T) {
	assert.Equal(t, QuestionScale, QuestionType("Scoring").Normalize())
	assert.Equal(t, QuestionBoolean, QuestionType(" true_false ").Normalize())
	assert.True(t, QuestionType("FREE_TEXT").Valid())
	assert.False(t, QuestionType("matrix").Valid())
	assert.True(t, QuestionMultipleChoice.HasOptions())
	assert.False(t, QuestionNumeric.HasOptions())
}
