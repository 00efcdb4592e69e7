package scoring

import (
	"sort"

	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/model"
)

// Tier is the severity label of a gap, derived from the absolute maturity
// level rather than the priority score.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// TierForLevel buckets a maturity level: ≤1 critical, 2 high, 3 medium,
// ≥4 low.
func TierForLevel(level int) Tier {
	switch {
	case level <= 1:
		return TierCritical
	case level == 2:
		return TierHigh
	case level == 3:
		return TierMedium
	}
	return TierLow
}

// Gap is one ranked improvement opportunity.
type Gap struct {
	DomainID      string  `json:"domain_id"`
	DomainName    string  `json:"domain_name"`
	PillarID      string  `json:"pillar_id"`
	MaturityLevel int     `json:"maturity_level"`
	LevelName     string  `json:"level_name"`
	Weight        float64 `json:"weight"`
	Priority      float64 `json:"priority"`
	Tier          Tier    `json:"tier"`
	// NextLevel describes the next maturity level to reach, empty at level 5.
	NextLevel string `json:"next_level,omitempty"`
}

// GapAnalysis ranks assessed domains. Unassessed domains cannot be
// prioritized and are listed separately.
type GapAnalysis struct {
	PillarFilter string   `json:"pillar_filter,omitempty"`
	Gaps         []Gap    `json:"gaps"`
	Unassessed   []string `json:"unassessed,omitempty"`
}

// Critical returns the gaps in the critical tier.
func (g GapAnalysis) Critical() []Gap {
	var out []Gap
	for _, gap := range g.Gaps {
		if gap.Tier == TierCritical {
			out = append(out, gap)
		}
	}
	return out
}

// IdentifyGaps ranks domains by (5 − level) × weight, descending, ties
// broken by domain id. pillarFilter, when non-empty, must name a model
// pillar.
func IdentifyGaps(m *model.Model, scores []DomainScore, pillarFilter string) (GapAnalysis, error) {
	const op = "scoring.IdentifyGaps"

	if pillarFilter != "" {
		if _, ok := m.Pillars[pillarFilter]; !ok {
			return GapAnalysis{}, errs.Validation(op, errs.ReasonUnknownPillar,
				"unknown pillar %q", pillarFilter)
		}
	}

	ga := GapAnalysis{PillarFilter: pillarFilter, Gaps: []Gap{}}
	assessed := make(map[string]bool, len(scores))
	for _, ds := range scores {
		d, ok := m.Domains[ds.DomainID]
		if !ok {
			return GapAnalysis{}, errs.Validation(op, errs.ReasonUnknownDomain,
				"unknown domain %q", ds.DomainID)
		}
		if pillarFilter != "" && d.Pillar != pillarFilter {
			continue
		}
		if !ds.Assessed() {
			continue
		}
		assessed[d.ID] = true

		gap := Gap{
			DomainID:      d.ID,
			DomainName:    d.Name,
			PillarID:      d.Pillar,
			MaturityLevel: ds.MaturityLevel,
			LevelName:     model.LevelName(ds.MaturityLevel),
			Weight:        d.Weight,
			Priority:      float64(model.MaxLevel-ds.MaturityLevel) * d.Weight,
			Tier:          TierForLevel(ds.MaturityLevel),
		}
		if next, ok := d.LevelDefinition(ds.MaturityLevel + 1); ok {
			gap.NextLevel = next.Description
		}
		ga.Gaps = append(ga.Gaps, gap)
	}

	sort.Slice(ga.Gaps, func(i, j int) bool {
		if ga.Gaps[i].Priority != ga.Gaps[j].Priority {
			return ga.Gaps[i].Priority > ga.Gaps[j].Priority
		}
		return ga.Gaps[i].DomainID < ga.Gaps[j].DomainID
	})

	for _, id := range m.DomainIDs() {
		if pillarFilter != "" && m.Domains[id].Pillar != pillarFilter {
			continue
		}
		if !assessed[id] {
			ga.Unassessed = append(ga.Unassessed, id)
		}
	}
	return ga, nil
}
