package scoring

import (
	"sort"

	"github.com/HendryAvila/aismm/internal/model"
)

// PillarScore is derived from the domain scores of one pillar. It is never
// persisted.
type PillarScore struct {
	PillarID        string   `json:"pillar_id"`
	PillarName      string   `json:"pillar_name,omitempty"`
	RawScore        float64  `json:"raw_score"`
	WeightedScore   float64  `json:"weighted_score"`
	MaturityLevel   int      `json:"maturity_level"`
	DomainsIncluded []string `json:"domains_included"`
	DomainsExcluded []string `json:"domains_excluded,omitempty"`
}

// Assessed reports whether at least one domain of the pillar was assessed.
func (p PillarScore) Assessed() bool {
	return len(p.DomainsIncluded) > 0
}

// AggregatePillar averages the assessed domain scores belonging to p.
// Scores for other pillars are ignored. Unassessed domains are excluded
// from the means and listed in DomainsExcluded; with no assessed domain
// the result is all zeros and level 0.
func AggregatePillar(p model.Pillar, scores []DomainScore) PillarScore {
	ps := PillarScore{
		PillarID:        p.ID,
		PillarName:      p.Name,
		DomainsIncluded: []string{},
	}

	var raw, weighted float64
	for _, ds := range scores {
		if ds.PillarID != p.ID {
			continue
		}
		if !ds.Assessed() {
			ps.DomainsExcluded = append(ps.DomainsExcluded, ds.DomainID)
			continue
		}
		ps.DomainsIncluded = append(ps.DomainsIncluded, ds.DomainID)
		raw += ds.RawScore
		weighted += ds.WeightedScore
	}
	sort.Strings(ps.DomainsIncluded)
	sort.Strings(ps.DomainsExcluded)

	n := len(ps.DomainsIncluded)
	if n == 0 {
		return ps
	}
	ps.RawScore = raw / float64(n)
	ps.WeightedScore = weighted / float64(n)
	ps.MaturityLevel = model.LevelFromScore(ps.RawScore)
	return ps
}

// AggregatePillars returns one PillarScore per model pillar, ordered by
// pillar id.
func AggregatePillars(m *model.Model, scores []DomainScore) []PillarScore {
	out := make([]PillarScore, 0, len(m.Pillars))
	for _, id := range m.PillarIDs() {
		out = append(out, AggregatePillar(m.Pillars[id], scores))
	}
	return out
}
