// Package analyst provides report.Analyzer implementations: a deterministic
// heuristic analyst built from scores and gaps, and an analyst backed by a
// local Ollama model.
package analyst

import (
	"context"
	"fmt"

	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/scoring"
)

// maxMilestones bounds the milestone list of a heuristic report.
const maxMilestones = 3

// Heuristic writes pillar reports without calling any model. The same
// context always yields the same report.
type Heuristic struct{}

// NewHeuristic returns a heuristic analyst.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

var effortByTier = map[scoring.Tier]string{
	scoring.TierCritical: "High (3-6 months)",
	scoring.TierHigh:     "Medium (1-3 months)",
	scoring.TierMedium:   "Low (2-6 weeks)",
}

var priorityByTier = map[scoring.Tier]report.Priority{
	scoring.TierCritical: report.PriorityCritical,
	scoring.TierHigh:     report.PriorityHigh,
	scoring.TierMedium:   report.PriorityMedium,
}

// AnalyzePillar implements report.Analyzer.
func (h *Heuristic) AnalyzePillar(ctx context.Context, pc report.PillarContext) (report.PillarReport, error) {
	if err := ctx.Err(); err != nil {
		return report.PillarReport{}, err
	}

	domains := make(map[string]model.Domain, len(pc.Domains))
	for _, d := range pc.Domains {
		domains[d.ID] = d
	}

	fr := report.PillarReport{
		PillarID:            pc.Pillar.ID,
		PillarName:          pc.Pillar.Name,
		MaturityLevel:       pc.Score.MaturityLevel,
		ExecutiveSummary:    heuristicSummary(pc),
		KeyMilestones:       []string{},
		Achievements:        []string{},
		AreasForImprovement: []string{},
	}

	for _, ds := range pc.DomainScores {
		if ds.MaturityLevel >= 4 {
			fr.Achievements = append(fr.Achievements, fmt.Sprintf("%s operates at level %d (%s).",
				domainName(domains, ds.DomainID), ds.MaturityLevel, model.LevelName(ds.MaturityLevel)))
		}
	}
	if pc.Trend != nil {
		for _, dt := range pc.Trend.Domains {
			if dt.PillarID == pc.Pillar.ID && dt.Direction == scoring.Improving {
				fr.Achievements = append(fr.Achievements, fmt.Sprintf("%s improved from level %d to level %d.",
					domainName(domains, dt.DomainID), dt.PreviousLevel, dt.LatestLevel))
			}
		}
	}

	for _, gap := range pc.Gaps.Gaps {
		if gap.Tier == scoring.TierLow {
			continue
		}
		d := domains[gap.DomainID]
		control := nextControl(d, gap.MaturityLevel)

		if len(fr.KeyMilestones) < maxMilestones && gap.NextLevel != "" {
			fr.KeyMilestones = append(fr.KeyMilestones, fmt.Sprintf("Raise %s to %s: %s",
				gap.DomainName, model.LevelName(gap.MaturityLevel+1), gap.NextLevel))
		}
		if gap.Tier == scoring.TierCritical || gap.Tier == scoring.TierHigh {
			fr.AreasForImprovement = append(fr.AreasForImprovement, fmt.Sprintf("%s is at level %d (%s). %s",
				gap.DomainName, gap.MaturityLevel, gap.LevelName, d.Description))
		}

		text := fmt.Sprintf("Advance %s toward %s", gap.DomainName, model.LevelName(gap.MaturityLevel+1))
		if control != "" {
			text += " by implementing: " + control
		}
		fr.PrioritizedRecommendations = append(fr.PrioritizedRecommendations, report.Recommendation{
			Priority:       priorityByTier[gap.Tier],
			Domain:         gap.DomainID,
			Recommendation: text,
			ExpectedImpact: fmt.Sprintf("Closes a %s gap in %s (priority %.1f).", gap.Tier, pc.Pillar.Name, gap.Priority),
			EffortEstimate: effortByTier[gap.Tier],
			PillarID:       pc.Pillar.ID,
		})
	}

	for _, id := range pc.Gaps.Unassessed {
		fr.PrioritizedRecommendations = append(fr.PrioritizedRecommendations, report.Recommendation{
			Priority:       report.PriorityLow,
			Domain:         id,
			Recommendation: fmt.Sprintf("Complete the %s section of the questionnaire so it can be scored.", domainName(domains, id)),
			ExpectedImpact: "Removes a blind spot from the maturity picture.",
			EffortEstimate: "Low (days)",
			PillarID:       pc.Pillar.ID,
		})
	}
	return fr, nil
}

func heuristicSummary(pc report.PillarContext) string {
	if !pc.Score.Assessed() {
		return fmt.Sprintf("No domains of %s have been assessed yet.", pc.Pillar.Name)
	}
	s := fmt.Sprintf("%s is at level %d (%s) with a mean score of %.2f across %d of %d domains.",
		pc.Pillar.Name, pc.Score.MaturityLevel, model.LevelName(pc.Score.MaturityLevel),
		pc.Score.RawScore, len(pc.Score.DomainsIncluded), len(pc.Domains))
	if pc.Trend != nil {
		for _, pt := range pc.Trend.Pillars {
			if pt.PillarID == pc.Pillar.ID {
				s += fmt.Sprintf(" It is %s since the previous assessment.", pt.Direction)
			}
		}
	}
	if crit := len(pc.Gaps.Critical()); crit > 0 {
		s += fmt.Sprintf(" %d domain(s) need urgent attention.", crit)
	}
	return s
}

// nextControl picks the key control matching the next level to reach.
func nextControl(d model.Domain, level int) string {
	if len(d.KeyControls) == 0 {
		return ""
	}
	idx := level
	if idx >= len(d.KeyControls) {
		idx = len(d.KeyControls) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return d.KeyControls[idx]
}

func domainName(domains map[string]model.Domain, id string) string {
	if d, ok := domains[id]; ok && d.Name != "" {
		return d.Name
	}
	return id
}
