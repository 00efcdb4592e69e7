package scoring

import (
	"fmt"
	"time"

	"github.com/HendryAvila/aismm/internal/model"
)

// Status is the assessment lifecycle state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Completion is one-way and archival is only allowed from completed.
func (s Status) CanTransition(next Status) bool {
	switch {
	case s == StatusInProgress && next == StatusCompleted:
		return true
	case s == StatusCompleted && next == StatusArchived:
		return true
	}
	return false
}

// Totals are the assessment-level figures fixed on completion.
type Totals struct {
	// TotalScore is the mean weighted score over assessed domains.
	TotalScore float64 `json:"total_score"`
	// MaturityLevel is LevelFromScore of the mean raw score over assessed domains.
	MaturityLevel int `json:"maturity_level"`
	// ScorePercent is Σ(raw×weight) / Σ(5×weight) × 100 over assessed domains.
	ScorePercent    float64 `json:"score_percent"`
	DomainsAssessed int     `json:"domains_assessed"`
	DomainsTotal    int     `json:"domains_total"`
}

// ComputeTotals derives the assessment totals from its domain scores.
// Domain weights come from the model; scores for domains the model does
// not define are ignored.
func ComputeTotals(m *model.Model, scores []DomainScore) Totals {
	t := Totals{DomainsTotal: len(m.Domains)}

	var raw, weighted, attained, possible float64
	for _, ds := range scores {
		d, ok := m.Domains[ds.DomainID]
		if !ok || !ds.Assessed() {
			continue
		}
		t.DomainsAssessed++
		raw += ds.RawScore
		weighted += ds.WeightedScore
		attained += ds.RawScore * d.Weight
		possible += float64(model.MaxLevel) * d.Weight
	}
	if t.DomainsAssessed == 0 {
		return t
	}

	n := float64(t.DomainsAssessed)
	t.TotalScore = weighted / n
	t.MaturityLevel = model.LevelFromScore(raw / n)
	if possible > 0 {
		t.ScorePercent = attained / possible * 100
	}
	return t
}

// Snapshot is one assessment with its domain scores, as consumed by the
// trend analyzer and the report builder.
type Snapshot struct {
	AssessmentID string        `json:"assessment_id"`
	Status       Status        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Totals       Totals        `json:"totals"`
	DomainScores []DomainScore `json:"domain_scores"`
}

// Finalized reports whether the snapshot went through completion. Archived
// assessments keep the totals fixed when they were completed.
func (s Snapshot) Finalized() bool {
	return s.Status == StatusCompleted || s.Status == StatusArchived
}

// --- Partial data warnings ---

// WarningPartialData flags a domain or pillar with no scored responses.
const WarningPartialData = "partial_data"

// Warning is a non-fatal observation about the inputs of an aggregate.
type Warning struct {
	Code     string `json:"code"`
	DomainID string `json:"domain_id,omitempty"`
	PillarID string `json:"pillar_id,omitempty"`
	Message  string `json:"message"`
}

// PartialDataWarnings lists every model domain and pillar that has no
// scored responses, in id order (pillars first).
func PartialDataWarnings(m *model.Model, scores []DomainScore) []Warning {
	assessed := make(map[string]bool, len(scores))
	for _, ds := range scores {
		if ds.Assessed() {
			assessed[ds.DomainID] = true
		}
	}

	var out []Warning
	for _, pid := range m.PillarIDs() {
		found := false
		for _, d := range m.DomainsForPillar(pid) {
			if assessed[d.ID] {
				found = true
				break
			}
		}
		if !found {
			out = append(out, Warning{
				Code:     WarningPartialData,
				PillarID: pid,
				Message:  fmt.Sprintf("pillar %s has no assessed domains", pid),
			})
		}
	}
	for _, id := range m.DomainIDs() {
		if !assessed[id] {
			out = append(out, Warning{
				Code:     WarningPartialData,
				DomainID: id,
				PillarID: m.Domains[id].Pillar,
				Message:  fmt.Sprintf("domain %s has no scored responses and is excluded from averages", id),
			})
		}
	}
	return out
}
