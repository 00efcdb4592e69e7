package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/scoring"
)

// PillarContext is everything an Analyzer gets to write one pillar report.
type PillarContext struct {
	OrganizationName    string
	AssessmentsAnalyzed int
	Pillar              model.Pillar
	Domains             []model.Domain
	Score               scoring.PillarScore
	DomainScores        []scoring.DomainScore
	Gaps                scoring.GapAnalysis
	Trend               *scoring.MaturityTrend
}

// Analyzer produces one structured pillar report. Implementations may call
// external models; they must honor ctx cancellation.
type Analyzer interface {
	AnalyzePillar(ctx context.Context, pc PillarContext) (PillarReport, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, pc PillarContext) (PillarReport, error)

// AnalyzePillar calls f.
func (f AnalyzerFunc) AnalyzePillar(ctx context.Context, pc PillarContext) (PillarReport, error) {
	return f(ctx, pc)
}

// BuildPillarContexts prepares one PillarContext per model pillar from the
// latest finalized assessment, ordered by pillar id.
func BuildPillarContexts(m *model.Model, orgName string, history []scoring.Snapshot, trendCfg scoring.TrendConfig) ([]PillarContext, error) {
	const op = "report.BuildPillarContexts"

	var finalized []scoring.Snapshot
	for _, s := range scoring.OrderSnapshots(history) {
		if s.Finalized() {
			finalized = append(finalized, s)
		}
	}
	if len(finalized) == 0 {
		return nil, errs.Precondition(op, errs.ReasonNoCompletedAssessment, "no completed assessments to analyze")
	}
	latest := finalized[len(finalized)-1]

	var trend *scoring.MaturityTrend
	if t := scoring.AnalyzeTrend(m, finalized, trendCfg); t.Available {
		trend = &t
	}

	out := make([]PillarContext, 0, len(m.Pillars))
	for _, pid := range m.PillarIDs() {
		gaps, err := scoring.IdentifyGaps(m, latest.DomainScores, pid)
		if err != nil {
			return nil, fmt.Errorf("building context for pillar %s: %w", pid, err)
		}
		var scores []scoring.DomainScore
		for _, ds := range latest.DomainScores {
			if ds.PillarID == pid {
				scores = append(scores, ds)
			}
		}
		out = append(out, PillarContext{
			OrganizationName:    orgName,
			AssessmentsAnalyzed: len(finalized),
			Pillar:              m.Pillars[pid],
			Domains:             m.DomainsForPillar(pid),
			Score:               scoring.AggregatePillar(m.Pillars[pid], latest.DomainScores),
			DomainScores:        scores,
			Gaps:                gaps,
			Trend:               trend,
		})
	}
	return out, nil
}

// RunAnalyses runs the analyzer once per context, concurrently when
// parallel is set. Results keep the order of contexts. Any failure fails
// the whole run and no partial results are returned.
func RunAnalyses(ctx context.Context, a Analyzer, contexts []PillarContext, parallel bool) ([]PillarReport, error) {
	const op = "report.RunAnalyses"

	if a == nil {
		return nil, errs.Precondition(op, errs.ReasonNoAnalyzer, "no pillar analyzer configured")
	}

	out := make([]PillarReport, len(contexts))
	analyze := func(ctx context.Context, i int) error {
		pc := contexts[i]
		fr, err := a.AnalyzePillar(ctx, pc)
		if err != nil {
			return fmt.Errorf("analyzing pillar %s: %w", pc.Pillar.ID, err)
		}
		switch fr.PillarID {
		case "":
			fr.PillarID = pc.Pillar.ID
		case pc.Pillar.ID:
		default:
			return errs.Validation(op, errs.ReasonMalformedReport,
				"analysis for pillar %s returned a report for %s", pc.Pillar.ID, fr.PillarID)
		}
		if fr.PillarName == "" {
			fr.PillarName = pc.Pillar.Name
		}
		out[i] = fr
		return nil
	}

	if !parallel {
		for i := range contexts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := analyze(ctx, i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range contexts {
		g.Go(func() error { return analyze(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
