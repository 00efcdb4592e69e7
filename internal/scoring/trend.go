package scoring

import (
	"fmt"
	"sort"

	"github.com/HendryAvila/aismm/internal/model"
)

// Direction classifies a change between two assessments.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

// DefaultScoreThreshold is the overall score change, in percentage points,
// above which a trend counts as improving or declining on its own.
const DefaultScoreThreshold = 10.0

// TrendConfig parameterizes the trend analyzer.
type TrendConfig struct {
	ScoreThreshold float64
}

// DefaultTrendConfig returns the standard trend settings.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{ScoreThreshold: DefaultScoreThreshold}
}

// DomainTrend compares one domain between the previous and latest assessment.
type DomainTrend struct {
	DomainID      string    `json:"domain_id"`
	PillarID      string    `json:"pillar_id"`
	PreviousLevel int       `json:"previous_level"`
	LatestLevel   int       `json:"latest_level"`
	Change        int       `json:"change"`
	Direction     Direction `json:"direction"`
}

// PillarTrend compares one pillar between the previous and latest assessment.
type PillarTrend struct {
	PillarID      string    `json:"pillar_id"`
	PreviousLevel int       `json:"previous_level"`
	LatestLevel   int       `json:"latest_level"`
	Change        int       `json:"change"`
	Direction     Direction `json:"direction"`
}

// RadarPoint is one assessment in the multi-period view.
type RadarPoint struct {
	Label        string         `json:"label"` // oldest, previous or latest
	AssessmentID string         `json:"assessment_id"`
	Levels       map[string]int `json:"levels"` // domain id → maturity level
}

// MaturityTrend is the result of AnalyzeTrend. When Available is false
// only Reason and AssessmentsConsidered are set.
type MaturityTrend struct {
	Available             bool          `json:"available"`
	Reason                string        `json:"reason,omitempty"`
	AssessmentsConsidered int           `json:"assessments_considered"`
	FirstAssessmentID     string        `json:"first_assessment_id,omitempty"`
	LatestAssessmentID    string        `json:"latest_assessment_id,omitempty"`
	ScoreChange           float64       `json:"score_change"`
	MaturityChange        int           `json:"maturity_change"`
	Direction             Direction     `json:"direction,omitempty"`
	Domains               []DomainTrend `json:"domains,omitempty"`
	Pillars               []PillarTrend `json:"pillars,omitempty"`
	Radar                 []RadarPoint  `json:"radar,omitempty"`
}

// OrderSnapshots sorts snapshots by StartedAt ascending, then CompletedAt
// (missing first), then assessment id. The input is not modified.
func OrderSnapshots(snapshots []Snapshot) []Snapshot {
	out := append([]Snapshot(nil), snapshots...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
		switch {
		case a.CompletedAt == nil && b.CompletedAt != nil:
			return true
		case a.CompletedAt != nil && b.CompletedAt == nil:
			return false
		case a.CompletedAt != nil && b.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt):
			return a.CompletedAt.Before(*b.CompletedAt)
		}
		return a.AssessmentID < b.AssessmentID
	})
	return out
}

// ClassifyChange maps a level delta to a direction.
func ClassifyChange(change int) Direction {
	switch {
	case change > 0:
		return Improving
	case change < 0:
		return Declining
	}
	return Stable
}

// ClassifyOverall applies the first-vs-last rule. Improving is checked
// before declining.
func ClassifyOverall(scoreChange float64, maturityChange int, threshold float64) Direction {
	switch {
	case scoreChange > threshold || maturityChange > 0:
		return Improving
	case scoreChange < -threshold || maturityChange < 0:
		return Declining
	}
	return Stable
}

// AnalyzeTrend compares finalized assessments over time. Fewer than two
// finalized snapshots yield an unavailable trend rather than a guess.
//
// Domain and pillar trends compare the latest with the previous assessment
// and only cover entries assessed in both. The overall direction compares
// the first with the latest.
func AnalyzeTrend(m *model.Model, snapshots []Snapshot, cfg TrendConfig) MaturityTrend {
	var finalized []Snapshot
	for _, s := range OrderSnapshots(snapshots) {
		if s.Finalized() {
			finalized = append(finalized, s)
		}
	}

	trend := MaturityTrend{AssessmentsConsidered: len(finalized)}
	if len(finalized) < 2 {
		trend.Reason = fmt.Sprintf("trend requires at least 2 completed assessments, found %d", len(finalized))
		return trend
	}

	first := finalized[0]
	previous := finalized[len(finalized)-2]
	latest := finalized[len(finalized)-1]

	trend.Available = true
	trend.FirstAssessmentID = first.AssessmentID
	trend.LatestAssessmentID = latest.AssessmentID
	trend.ScoreChange = latest.Totals.ScorePercent - first.Totals.ScorePercent
	trend.MaturityChange = latest.Totals.MaturityLevel - first.Totals.MaturityLevel
	trend.Direction = ClassifyOverall(trend.ScoreChange, trend.MaturityChange, cfg.ScoreThreshold)

	prevByDomain := indexAssessed(previous.DomainScores)
	for _, ds := range latest.DomainScores {
		prev, ok := prevByDomain[ds.DomainID]
		if !ok || !ds.Assessed() {
			continue
		}
		change := ds.MaturityLevel - prev.MaturityLevel
		trend.Domains = append(trend.Domains, DomainTrend{
			DomainID:      ds.DomainID,
			PillarID:      ds.PillarID,
			PreviousLevel: prev.MaturityLevel,
			LatestLevel:   ds.MaturityLevel,
			Change:        change,
			Direction:     ClassifyChange(change),
		})
	}
	sort.Slice(trend.Domains, func(i, j int) bool {
		return trend.Domains[i].DomainID < trend.Domains[j].DomainID
	})

	for _, pid := range m.PillarIDs() {
		p := m.Pillars[pid]
		prev := AggregatePillar(p, previous.DomainScores)
		last := AggregatePillar(p, latest.DomainScores)
		if !prev.Assessed() || !last.Assessed() {
			continue
		}
		change := last.MaturityLevel - prev.MaturityLevel
		trend.Pillars = append(trend.Pillars, PillarTrend{
			PillarID:      pid,
			PreviousLevel: prev.MaturityLevel,
			LatestLevel:   last.MaturityLevel,
			Change:        change,
			Direction:     ClassifyChange(change),
		})
	}

	trend.Radar = radar(finalized)
	return trend
}

func indexAssessed(scores []DomainScore) map[string]DomainScore {
	out := make(map[string]DomainScore, len(scores))
	for _, ds := range scores {
		if ds.Assessed() {
			out[ds.DomainID] = ds
		}
	}
	return out
}

// radar keeps up to three points: oldest, previous and latest.
func radar(ordered []Snapshot) []RadarPoint {
	n := len(ordered)
	type pick struct {
		label string
		idx   int
	}
	picks := []pick{{"oldest", 0}}
	if n >= 3 {
		picks = append(picks, pick{"previous", n - 2})
	}
	picks = append(picks, pick{"latest", n - 1})

	out := make([]RadarPoint, 0, len(picks))
	for _, p := range picks {
		s := ordered[p.idx]
		levels := make(map[string]int, len(s.DomainScores))
		for _, ds := range s.DomainScores {
			levels[ds.DomainID] = ds.MaturityLevel
		}
		out = append(out, RadarPoint{Label: p.label, AssessmentID: s.AssessmentID, Levels: levels})
	}
	return out
}
