package scoring

import (
	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/model"
)

// DomainScore is the aggregate for one (assessment, domain) pair.
//
// A domain with no scored responses has RawScore 0 and MaturityLevel 0
// (unassessed). That is distinct from level 1 ("Initial").
type DomainScore struct {
	DomainID          string  `json:"domain_id"`
	PillarID          string  `json:"pillar_id"`
	RawScore          float64 `json:"raw_score"`
	WeightedScore     float64 `json:"weighted_score"`
	MaturityLevel     int     `json:"maturity_level"`
	QuestionsAnswered int     `json:"questions_answered"`
	QuestionsScored   int     `json:"questions_scored"`
	QuestionsTotal    int     `json:"questions_total"`
}

// Assessed reports whether at least one response contributed a score.
func (s DomainScore) Assessed() bool {
	return s.RawScore > 0
}

// AggregateDomain combines the scored responses of one domain.
//
// Only scored responses enter the mean. QuestionsAnswered counts every
// response carrying a payload, including free text.
func AggregateDomain(d model.Domain, responses []ScoredResponse) DomainScore {
	ds := DomainScore{
		DomainID:       d.ID,
		PillarID:       d.Pillar,
		QuestionsTotal: len(d.Questions),
	}

	var sum float64
	for _, r := range responses {
		if r.HasPayload() {
			ds.QuestionsAnswered++
		}
		if r.Scored {
			ds.QuestionsScored++
			sum += float64(r.Score)
		}
	}
	if ds.QuestionsScored == 0 {
		return ds
	}

	ds.RawScore = sum / float64(ds.QuestionsScored)
	ds.WeightedScore = ds.RawScore * d.Weight
	ds.MaturityLevel = model.LevelFromScore(ds.RawScore)
	return ds
}

// ScoreDomain scores raw responses and aggregates them in one step.
func ScoreDomain(d model.Domain, responses []Response) (DomainScore, error) {
	scored, err := ScoreResponses(d, responses)
	if err != nil {
		return DomainScore{}, err
	}
	return AggregateDomain(d, scored), nil
}

// ScoreAssessment computes a DomainScore for every domain of the model,
// grouping responses by the domain owning their question. Domains without
// responses are included as unassessed rows.
func ScoreAssessment(m *model.Model, responses []Response) ([]DomainScore, error) {
	byDomain := make(map[string][]Response)
	for _, r := range responses {
		d, _, ok := m.FindQuestion(r.QuestionID)
		if !ok {
			return nil, errs.Validation("scoring.ScoreAssessment", errs.ReasonUnknownQuestion,
				"question %s is not defined in the model", r.QuestionID)
		}
		byDomain[d.ID] = append(byDomain[d.ID], r)
	}

	scores := make([]DomainScore, 0, len(m.Domains))
	for _, id := range m.DomainIDs() {
		ds, err := ScoreDomain(m.Domains[id], byDomain[id])
		if err != nil {
			return nil, err
		}
		scores = append(scores, ds)
	}
	return scores, nil
}
