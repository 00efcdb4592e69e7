// Package service orchestrates the maturity workflow on top of the store:
// answering questions, recomputing domain scores, completing and archiving
// assessments, and producing trends, gaps and organization reports.
//
// Writes to one assessment are serialized: the response upsert and the
// recomputation of its domain score happen under a per-assessment lock and
// inside one transaction, so concurrent answers can never leave a stale
// domain score behind.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/metrics"
	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/scoring"
	"github.com/HendryAvila/aismm/internal/store"
)

// Options tunes report generation.
type Options struct {
	Report           report.Config
	ParallelAnalysis bool
	// AnalysisTimeout bounds the pillar analyses of one report. Zero means
	// no bound beyond the caller's context.
	AnalysisTimeout time.Duration
}

// DefaultOptions returns the standard options.
func DefaultOptions() Options {
	return Options{Report: report.DefaultConfig(), ParallelAnalysis: true}
}

// Service is the application layer shared by the MCP tools, the HTTP API
// and the CLI.
type Service struct {
	model    *model.Model
	store    *store.Store
	analyzer report.Analyzer
	metrics  *metrics.Metrics
	opts     Options

	locks keyedMutex
}

// New wires a Service. analyzer and met may be nil: report generation then
// fails with a precondition error and nothing is recorded.
func New(m *model.Model, st *store.Store, analyzer report.Analyzer, met *metrics.Metrics, opts Options) *Service {
	if opts.Report.MaxRecommendations <= 0 {
		opts.Report.MaxRecommendations = report.DefaultMaxRecommendations
	}
	return &Service{model: m, store: st, analyzer: analyzer, metrics: met, opts: opts}
}

// Model returns the maturity model in use.
func (s *Service) Model() *model.Model {
	return s.model
}

// IsNotFound reports whether err means a missing organization or
// assessment.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// ─── Organizations ──────────────────────────────────────────────────────────

// CreateOrganization registers an organization.
func (s *Service) CreateOrganization(ctx context.Context, name, industry, size string) (*store.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("service.CreateOrganization", errs.ReasonInvalidArgument, "organization name is required")
	}
	return s.store.CreateOrganization(ctx, name, strings.TrimSpace(industry), strings.TrimSpace(size), timeNow())
}

// ListOrganizations returns every organization.
func (s *Service) ListOrganizations(ctx context.Context) ([]store.Organization, error) {
	return s.store.ListOrganizations(ctx)
}

// Organization returns one organization.
func (s *Service) Organization(ctx context.Context, id string) (*store.Organization, error) {
	return s.store.GetOrganization(ctx, id)
}

// ─── Assessments ────────────────────────────────────────────────────────────

// StartAssessment opens a new in-progress assessment with every domain
// seeded as unassessed.
func (s *Service) StartAssessment(ctx context.Context, orgID string) (*store.Assessment, error) {
	seed := make([]scoring.DomainScore, 0, len(s.model.Domains))
	for _, id := range s.model.DomainIDs() {
		seed = append(seed, scoring.AggregateDomain(s.model.Domains[id], nil))
	}
	return s.store.CreateAssessment(ctx, orgID, timeNow(), seed)
}

// AnswerResult is the outcome of one answer.
type AnswerResult struct {
	Response    scoring.ScoredResponse `json:"response"`
	DomainScore scoring.DomainScore    `json:"domain_score"`
}

// Answer scores one response, stores it (replacing any earlier answer to
// the same question) and recomputes the owning domain's score.
func (s *Service) Answer(ctx context.Context, r scoring.Response) (*AnswerResult, error) {
	const op = "service.Answer"

	d, q, ok := s.model.FindQuestion(r.QuestionID)
	if !ok {
		return nil, errs.Validation(op, errs.ReasonUnknownQuestion, "unknown question %q", r.QuestionID)
	}
	if r.DomainID != "" && r.DomainID != d.ID {
		return nil, errs.Validation(op, errs.ReasonUnknownDomain,
			"question %s belongs to domain %s, not %s", q.ID, d.ID, r.DomainID)
	}
	r.DomainID = d.ID

	score, scored, err := scoring.ScoreResponse(q, r)
	if err != nil {
		s.metrics.ResponseScored(string(q.Type), metrics.OutcomeRejected)
		return nil, err
	}
	sr := scoring.ScoredResponse{Response: r, Score: score, Scored: scored}

	unlock := s.locks.Lock(r.AssessmentID)
	defer unlock()

	var res AnswerResult
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		a, err := tx.GetAssessment(ctx, r.AssessmentID)
		if err != nil {
			return err
		}
		if a.Status != scoring.StatusInProgress {
			return errs.Precondition(op, errs.ReasonAssessmentNotOpen,
				"assessment %s is %s; only in-progress assessments accept answers", a.ID, a.Status)
		}
		if err := tx.UpsertResponse(ctx, sr, timeNow()); err != nil {
			return err
		}
		responses, err := tx.DomainResponses(ctx, a.ID, d.ID)
		if err != nil {
			return err
		}
		res.DomainScore = scoring.AggregateDomain(d, responses)
		return tx.PutDomainScore(ctx, a.ID, res.DomainScore)
	})
	if err != nil {
		return nil, err
	}

	outcome := metrics.OutcomeScored
	if !scored {
		outcome = metrics.OutcomeUnscored
	}
	s.metrics.ResponseScored(string(q.Type), outcome)
	res.Response = sr
	return &res, nil
}

// Summary is the current state of one assessment. Totals are provisional
// until the assessment is completed.
type Summary struct {
	Assessment   store.Assessment      `json:"assessment"`
	Totals       scoring.Totals        `json:"totals"`
	DomainScores []scoring.DomainScore `json:"domain_scores"`
	PillarScores []scoring.PillarScore `json:"pillar_scores"`
	Warnings     []scoring.Warning     `json:"warnings,omitempty"`
	// Responses are the stored answers, ordered by domain then question.
	Responses []scoring.ScoredResponse `json:"responses"`
}

// Status summarizes an assessment with partial-data warnings.
func (s *Service) Status(ctx context.Context, assessmentID string) (*Summary, error) {
	a, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	scores, err := s.store.DomainScores(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.Responses(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Assessment:   *a,
		DomainScores: scores,
		PillarScores: scoring.AggregatePillars(s.model, scores),
		Warnings:     scoring.PartialDataWarnings(s.model, scores),
		Responses:    responses,
	}
	if a.Totals != nil {
		sum.Totals = *a.Totals
	} else {
		sum.Totals = scoring.ComputeTotals(s.model, scores)
	}
	return sum, nil
}

// Complete fixes the totals of an in-progress assessment and marks it
// completed. Completion is one-way. Every domain is rescored from the
// stored answers first, so the totals never rest on a stale score row.
func (s *Service) Complete(ctx context.Context, assessmentID string) (*store.Assessment, error) {
	const op = "service.Complete"

	unlock := s.locks.Lock(assessmentID)
	defer unlock()

	var out *store.Assessment
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		a, err := tx.GetAssessment(ctx, assessmentID)
		if err != nil {
			return err
		}
		if !a.Status.CanTransition(scoring.StatusCompleted) {
			return errs.Precondition(op, errs.ReasonInvalidTransition,
				"assessment %s cannot move from %s to %s", a.ID, a.Status, scoring.StatusCompleted)
		}
		stored, err := tx.Responses(ctx, a.ID)
		if err != nil {
			return err
		}
		answers := make([]scoring.Response, len(stored))
		for i, r := range stored {
			answers[i] = r.Response
		}
		scores, err := scoring.ScoreAssessment(s.model, answers)
		if err != nil {
			return err
		}
		for _, ds := range scores {
			if err := tx.PutDomainScore(ctx, a.ID, ds); err != nil {
				return err
			}
		}
		if err := tx.Complete(ctx, a.ID, timeNow(), scoring.ComputeTotals(s.model, scores)); err != nil {
			return err
		}
		out, err = tx.GetAssessment(ctx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AssessmentCompleted()
	return out, nil
}

// Discard deletes an in-progress assessment with its answers and scores.
// Completed and archived assessments are history and cannot be discarded.
func (s *Service) Discard(ctx context.Context, assessmentID string) error {
	const op = "service.Discard"

	unlock := s.locks.Lock(assessmentID)
	defer unlock()

	a, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return err
	}
	if a.Status != scoring.StatusInProgress {
		return errs.Precondition(op, errs.ReasonAssessmentNotOpen,
			"assessment %s is %s; only in-progress assessments can be discarded", a.ID, a.Status)
	}
	return s.store.DeleteAssessment(ctx, a.ID)
}

// Archive moves a completed assessment to archived.
func (s *Service) Archive(ctx context.Context, assessmentID string) (*store.Assessment, error) {
	const op = "service.Archive"

	unlock := s.locks.Lock(assessmentID)
	defer unlock()

	var out *store.Assessment
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		a, err := tx.GetAssessment(ctx, assessmentID)
		if err != nil {
			return err
		}
		if !a.Status.CanTransition(scoring.StatusArchived) {
			return errs.Precondition(op, errs.ReasonInvalidTransition,
				"assessment %s cannot move from %s to %s", a.ID, a.Status, scoring.StatusArchived)
		}
		if err := tx.SetStatus(ctx, a.ID, scoring.StatusArchived); err != nil {
			return err
		}
		out, err = tx.GetAssessment(ctx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DomainScores returns the stored domain scores of an assessment.
func (s *Service) DomainScores(ctx context.Context, assessmentID string) ([]scoring.DomainScore, error) {
	if _, err := s.store.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.store.DomainScores(ctx, assessmentID)
}

// Gaps ranks the improvement opportunities of an assessment, optionally
// restricted to one pillar.
func (s *Service) Gaps(ctx context.Context, assessmentID, pillarID string) (scoring.GapAnalysis, error) {
	scores, err := s.DomainScores(ctx, assessmentID)
	if err != nil {
		return scoring.GapAnalysis{}, err
	}
	return scoring.IdentifyGaps(s.model, scores, pillarID)
}

// Trend compares the completed assessments of an organization.
func (s *Service) Trend(ctx context.Context, orgID string) (scoring.MaturityTrend, error) {
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return scoring.MaturityTrend{}, err
	}
	snaps, err := s.store.Snapshots(ctx, orgID)
	if err != nil {
		return scoring.MaturityTrend{}, err
	}
	return scoring.AnalyzeTrend(s.model, snaps, s.opts.Report.Trend), nil
}

// ─── Reports ────────────────────────────────────────────────────────────────

// GenerateReport runs one analysis per pillar and consolidates them with
// the organization's assessment history. It fails as a whole: no partial
// report is ever returned.
func (s *Service) GenerateReport(ctx context.Context, orgID string) (r *report.OrganizationSecurityReport, err error) {
	start := timeNow()
	defer func() {
		status := metrics.StatusSuccess
		switch {
		case err == nil:
		case errs.IsPrecondition(err):
			status = metrics.StatusPrecondFail
		default:
			status = metrics.StatusFailure
		}
		s.metrics.ReportGenerated(status, timeNow().Sub(start))
	}()

	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.Snapshots(ctx, orgID)
	if err != nil {
		return nil, err
	}

	contexts, err := report.BuildPillarContexts(s.model, org.Name, history, s.opts.Report.Trend)
	if err != nil {
		return nil, err
	}

	actx := ctx
	if s.opts.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.opts.AnalysisTimeout)
		defer cancel()
	}
	fragments, err := report.RunAnalyses(actx, s.analyzer, contexts, s.opts.ParallelAnalysis)
	if err != nil {
		return nil, analystError(org.ID, err)
	}

	r, err = report.Consolidate(report.Input{
		Model:            s.model,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		Assessments:      history,
		Fragments:        fragments,
		GeneratedAt:      timeNow(),
	}, s.opts.Report)
	if err != nil {
		return nil, analystError(org.ID, err)
	}
	return r, nil
}

// analystError turns validation failures of analyst output into upstream
// errors, keeping the reason. Other errors are wrapped unchanged.
func analystError(orgID string, err error) error {
	if errs.IsValidation(err) {
		return errs.Wrap(errs.KindUpstream, "service.GenerateReport", errs.ReasonOf(err), err,
			"pillar analyses for %s", orgID)
	}
	return fmt.Errorf("pillar analyses for %s: %w", orgID, err)
}
