// Package report merges per-pillar analyses with the numeric aggregates of
// an organization's assessment history into one OrganizationSecurityReport.
//
// Pillar analyses are produced by an Analyzer (see RunAnalyses) and arrive
// as structured PillarReport fragments. The consolidator never parses
// prose headings out of free text.
package report

import (
	"strings"
	"time"

	"github.com/HendryAvila/aismm/internal/scoring"
)

// Priority is the urgency of a recommendation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRanks = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Rank returns the sort rank (critical=0 .. low=3). ok is false for a
// priority outside the known set.
func (p Priority) Rank() (rank int, ok bool) {
	rank, ok = priorityRanks[Priority(strings.ToLower(strings.TrimSpace(string(p))))]
	return rank, ok
}

// Recommendation is one prioritized action item.
type Recommendation struct {
	Priority       Priority `json:"priority"`
	Domain         string   `json:"domain"`
	Recommendation string   `json:"recommendation"`
	ExpectedImpact string   `json:"expected_impact"`
	EffortEstimate string   `json:"effort_estimate"`
	PillarID       string   `json:"pillar_id,omitempty"`
}

// PillarReport is the structured output of one pillar analysis.
//
// MaturityLevel is optional (0 = not stated). When absent, the consolidator
// falls back to a "level N" mention in ExecutiveSummary.
type PillarReport struct {
	PillarID                   string           `json:"pillar_id"`
	PillarName                 string           `json:"pillar_name"`
	ExecutiveSummary           string           `json:"executive_summary"`
	MaturityLevel              int              `json:"maturity_level,omitempty"`
	KeyMilestones              []string         `json:"key_milestones"`
	Achievements               []string         `json:"achievements"`
	AreasForImprovement        []string         `json:"areas_for_improvement"`
	PrioritizedRecommendations []Recommendation `json:"prioritized_recommendations"`
}

// OrganizationSecurityReport is the consolidated, ephemeral report for one
// organization. It is never persisted.
type OrganizationSecurityReport struct {
	OrganizationID           string                 `json:"organization_id"`
	OrganizationName         string                 `json:"organization_name"`
	ReportGeneratedAt        time.Time              `json:"report_generated_at"`
	AssessmentsAnalyzed      int                    `json:"assessments_analyzed"`
	ExecutiveSummary         string                 `json:"executive_summary"`
	OverallMaturityLevel     int                    `json:"overall_maturity_level"`
	OverallScore             float64                `json:"overall_score"`
	PillarScores             []scoring.PillarScore  `json:"pillar_scores"`
	PillarReports            []PillarReport         `json:"pillar_reports"`
	CrossPillarInsights      []string               `json:"cross_pillar_insights"`
	StrategicRecommendations []Recommendation       `json:"strategic_recommendations"`
	MaturityTrend            *scoring.MaturityTrend `json:"maturity_trend,omitempty"`
}
