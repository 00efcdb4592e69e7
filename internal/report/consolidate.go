package report

import (
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/scoring"
)

// Config parameterizes consolidation. It is passed explicitly; nothing is
// read from the environment here.
type Config struct {
	MaxRecommendations int
	Trend              scoring.TrendConfig
}

// DefaultConfig returns the standard consolidation settings.
func DefaultConfig() Config {
	return Config{
		MaxRecommendations: DefaultMaxRecommendations,
		Trend:              scoring.DefaultTrendConfig(),
	}
}

// Input is everything the consolidator needs for one organization.
type Input struct {
	Model            *model.Model
	OrganizationID   string
	OrganizationName string
	// Assessments is the organization's full history; only finalized
	// assessments are considered.
	Assessments []scoring.Snapshot
	// Fragments must contain exactly one PillarReport per model pillar.
	Fragments   []PillarReport
	GeneratedAt time.Time
}

// Consolidate merges pillar fragments and assessment aggregates into one
// report. It fails atomically: any missing, duplicate or malformed input
// yields an error and no report.
func Consolidate(in Input, cfg Config) (*OrganizationSecurityReport, error) {
	const op = "report.Consolidate"

	if in.Model == nil {
		return nil, errs.Validation(op, errs.ReasonInvalidModel, "no maturity model supplied")
	}

	ordered := scoring.OrderSnapshots(in.Assessments)
	var finalized []scoring.Snapshot
	for _, s := range ordered {
		if s.Finalized() {
			finalized = append(finalized, s)
		}
	}
	if len(finalized) == 0 {
		return nil, errs.Precondition(op, errs.ReasonNoCompletedAssessment,
			"organization %s has no completed assessments", in.OrganizationID)
	}

	fragments, err := CheckFragments(in.Model, in.Fragments)
	if err != nil {
		return nil, err
	}

	limit := cfg.MaxRecommendations
	if limit <= 0 {
		limit = DefaultMaxRecommendations
	}
	recs, err := ConsolidateRecommendations(fragments, limit)
	if err != nil {
		return nil, err
	}

	latest := finalized[len(finalized)-1]
	level := latest.Totals.MaturityLevel

	r := &OrganizationSecurityReport{
		OrganizationID:           in.OrganizationID,
		OrganizationName:         in.OrganizationName,
		ReportGeneratedAt:        in.GeneratedAt,
		AssessmentsAnalyzed:      len(finalized),
		OverallMaturityLevel:     level,
		OverallScore:             latest.Totals.ScorePercent,
		PillarScores:             scoring.AggregatePillars(in.Model, latest.DomainScores),
		PillarReports:            fragments,
		CrossPillarInsights:      CrossPillarInsights(fragments),
		StrategicRecommendations: recs,
	}
	if trend := scoring.AnalyzeTrend(in.Model, finalized, cfg.Trend); trend.Available {
		r.MaturityTrend = &trend
	}
	r.ExecutiveSummary = composeExecutiveSummary(r)
	return r, nil
}

// CheckFragments validates that fragments cover every model pillar exactly
// once and returns them ordered by pillar id.
//
// A missing pillar is a precondition failure. Unknown or duplicate pillars,
// invalid stated levels and recommendations without text are validation
// failures.
func CheckFragments(m *model.Model, fragments []PillarReport) ([]PillarReport, error) {
	const op = "report.CheckFragments"

	byPillar := make(map[string]PillarReport, len(fragments))
	for _, f := range fragments {
		id := strings.TrimSpace(f.PillarID)
		if id == "" {
			return nil, errs.Validation(op, errs.ReasonMalformedReport, "pillar report without pillar_id")
		}
		p, ok := m.Pillars[id]
		if !ok {
			return nil, errs.Validation(op, errs.ReasonUnknownPillar, "pillar report for unknown pillar %q", id)
		}
		if _, dup := byPillar[id]; dup {
			return nil, errs.Validation(op, errs.ReasonDuplicatePillar, "more than one report for pillar %q", id)
		}
		if f.MaturityLevel < 0 || f.MaturityLevel > model.MaxLevel {
			return nil, errs.Validation(op, errs.ReasonMalformedReport,
				"pillar %s: maturity_level %d outside 0..5", id, f.MaturityLevel)
		}
		for i, rec := range f.PrioritizedRecommendations {
			if strings.TrimSpace(rec.Recommendation) == "" || strings.TrimSpace(rec.Domain) == "" {
				return nil, errs.Validation(op, errs.ReasonMalformedReport,
					"pillar %s: recommendation %d needs both domain and recommendation text", id, i+1)
			}
		}
		f.PillarID = id
		if f.PillarName == "" {
			f.PillarName = p.Name
		}
		byPillar[id] = f
	}

	var missing []string
	for _, id := range m.PillarIDs() {
		if _, ok := byPillar[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, errs.Precondition(op, errs.ReasonMissingPillarReport,
			"missing pillar report(s) for %s", strings.Join(missing, ", "))
	}

	out := make([]PillarReport, 0, len(byPillar))
	for _, f := range byPillar {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PillarID < out[j].PillarID })
	return out, nil
}
