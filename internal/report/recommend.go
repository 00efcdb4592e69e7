package report

import (
	"sort"
	"strings"

	"github.com/HendryAvila/aismm/internal/errs"
)

// DefaultMaxRecommendations caps the strategic recommendation list.
const DefaultMaxRecommendations = 10

// ConsolidateRecommendations merges the recommendation lists of all
// fragments (in the given order) into one ranked list. Consolidate passes
// fragments sorted by pillar id, so ties of equal priority resolve in
// pillar-id order.
//
// Items are stable-sorted by priority rank. Walking that order, an item is
// kept if it is critical or its domain has not been kept yet; the walk
// stops at limit items. Domains compare case-insensitively. A priority
// outside critical/high/medium/low fails the whole merge.
func ConsolidateRecommendations(fragments []PillarReport, limit int) ([]Recommendation, error) {
	const op = "report.ConsolidateRecommendations"

	type ranked struct {
		rec  Recommendation
		rank int
	}
	var all []ranked
	for _, f := range fragments {
		for _, rec := range f.PrioritizedRecommendations {
			rank, ok := rec.Priority.Rank()
			if !ok {
				return nil, errs.Validation(op, errs.ReasonInvalidPriority,
					"pillar %s: recommendation for domain %q has unknown priority %q",
					f.PillarID, rec.Domain, rec.Priority)
			}
			rec.Priority = Priority(strings.ToLower(strings.TrimSpace(string(rec.Priority))))
			if rec.PillarID == "" {
				rec.PillarID = f.PillarID
			}
			all = append(all, ranked{rec: rec, rank: rank})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].rank < all[j].rank })

	out := []Recommendation{}
	seen := map[string]bool{}
	for _, r := range all {
		if len(out) >= limit {
			break
		}
		key := strings.ToLower(strings.TrimSpace(r.rec.Domain))
		if r.rec.Priority != PriorityCritical && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.rec)
	}
	return out, nil
}
