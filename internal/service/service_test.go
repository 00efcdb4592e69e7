package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/HendryAvila/aismm/internal/analyst"
	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/metrics"
	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/scoring"
	"github.com/HendryAvila/aismm/internal/store"
)

const pip = "prompt_injection_protection"

// fixedClock makes timeNow return base, then base+1h, base+2h, ...
func fixedClock(t *testing.T, base time.Time) {
	t.Helper()
	var mu sync.Mutex
	n := 0
	orig := timeNow
	timeNow = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Hour)
	}
	t.Cleanup(func() { timeNow = orig })
}

func newTestService(t *testing.T, a report.Analyzer) (*Service, *metrics.Metrics) {
	t.Helper()
	m, err := model.Default()
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	met := metrics.New(false)
	return New(m, st, a, met, DefaultOptions()), met
}

func startAssessment(t *testing.T, s *Service) (orgID, assessmentID string) {
	t.Helper()
	ctx := context.Background()
	org, err := s.CreateOrganization(ctx, "Acme", "finance", "large")
	if err != nil {
		t.Fatal(err)
	}
	a, err := s.StartAssessment(ctx, org.ID)
	if err != nil {
		t.Fatal(err)
	}
	return org.ID, a.ID
}

func answerIndex(t *testing.T, s *Service, assessmentID, qid string, idx int) *AnswerResult {
	t.Helper()
	res, err := s.Answer(context.Background(), scoring.Response{AssessmentID: assessmentID, QuestionID: qid, Index: &idx})
	if err != nil {
		t.Fatalf("Answer(%s): %v", qid, err)
	}
	return res
}

func answerBool(t *testing.T, s *Service, assessmentID, qid string, v bool) *AnswerResult {
	t.Helper()
	res, err := s.Answer(context.Background(), scoring.Response{AssessmentID: assessmentID, QuestionID: qid, Bool: &v})
	if err != nil {
		t.Fatalf("Answer(%s): %v", qid, err)
	}
	return res
}

// ─── Organizations ──────────────────────────────────────────────────────────

func TestCreateOrganization_RequiresName(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, err := s.CreateOrganization(context.Background(), "   ", "", "")
	if errs.ReasonOf(err) != errs.ReasonInvalidArgument {
		t.Errorf("err = %v", err)
	}
}

// ─── Answer ─────────────────────────────────────────────────────────────────

func TestAnswer_RecomputesDomainScore(t *testing.T) {
	s, met := newTestService(t, nil)
	_, aid := startAssessment(t, s)

	res := answerIndex(t, s, aid, pip+"_q1", 2)
	if res.Response.Score != 3 || res.Response.DomainID != pip {
		t.Errorf("response = %+v", res.Response)
	}
	res = answerBool(t, s, aid, pip+"_q3", true)
	ds := res.DomainScore
	if ds.RawScore != 4 || ds.WeightedScore != 6 || ds.MaturityLevel != 4 || ds.QuestionsScored != 2 || ds.QuestionsTotal != 4 {
		t.Errorf("domain score = %+v", ds)
	}

	// last write wins
	res = answerIndex(t, s, aid, pip+"_q1", 4)
	if res.DomainScore.RawScore != 5 || res.DomainScore.QuestionsAnswered != 2 {
		t.Errorf("after re-answer = %+v", res.DomainScore)
	}

	// free text counts as answered, never scored
	notes := "pilot guardrails in staging"
	res, err := s.Answer(context.Background(), scoring.Response{AssessmentID: aid, QuestionID: pip + "_notes", Text: notes})
	if err != nil {
		t.Fatal(err)
	}
	if res.Response.Scored || res.DomainScore.QuestionsAnswered != 3 || res.DomainScore.RawScore != 5 {
		t.Errorf("free text = %+v / %+v", res.Response, res.DomainScore)
	}

	stored, err := s.DomainScores(context.Background(), aid)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != len(s.Model().Domains) {
		t.Fatalf("stored %d domain rows, want %d", len(stored), len(s.Model().Domains))
	}
	for _, row := range stored {
		if row.DomainID == pip && row != res.DomainScore {
			t.Errorf("stored %+v, want %+v", row, res.DomainScore)
		}
	}

	n, err := testutil.GatherAndCount(met.Registry(), "aismm_responses_total")
	if err != nil || n != 3 {
		t.Errorf("response series = %d (%v), want scale/boolean/free_text", n, err)
	}
}

func TestAnswer_ValidationErrors(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, aid := startAssessment(t, s)
	idx := 9

	tests := []struct {
		name   string
		r      scoring.Response
		reason string
	}{
		{"unknown question", scoring.Response{AssessmentID: aid, QuestionID: "nope_q1", Index: &idx}, errs.ReasonUnknownQuestion},
		{"wrong domain", scoring.Response{AssessmentID: aid, DomainID: "deepfake_defense", QuestionID: pip + "_q1", Index: &idx}, errs.ReasonUnknownDomain},
		{"index out of range", scoring.Response{AssessmentID: aid, QuestionID: pip + "_q1", Index: &idx}, errs.ReasonIndexOutOfRange},
		{"unknown option", scoring.Response{AssessmentID: aid, QuestionID: pip + "_q2", Selected: []string{"Firewall"}}, errs.ReasonUnknownOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Answer(context.Background(), tt.r)
			if !errs.IsValidation(err) || errs.ReasonOf(err) != tt.reason {
				t.Errorf("err = %v, want %s", err, tt.reason)
			}
		})
	}

	scores, _ := s.DomainScores(context.Background(), aid)
	for _, ds := range scores {
		if ds.Assessed() {
			t.Errorf("rejected answers must not change scores: %+v", ds)
		}
	}
}

func TestAnswer_UnknownAssessment(t *testing.T) {
	s, _ := newTestService(t, nil)
	idx := 0
	_, err := s.Answer(context.Background(), scoring.Response{AssessmentID: "missing", QuestionID: pip + "_q1", Index: &idx})
	if !IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestAnswer_ConcurrentWritesKeepScoresConsistent(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, aid := startAssessment(t, s)
	domains := s.Model().DomainsForPillar("security_from_ai")

	var wg sync.WaitGroup
	for _, d := range domains {
		for _, qid := range []string{d.ID + "_q1", d.ID + "_q3"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				idx, yes := 4, true
				r := scoring.Response{AssessmentID: aid, QuestionID: qid, Index: &idx}
				if strings.HasSuffix(qid, "_q3") {
					r = scoring.Response{AssessmentID: aid, QuestionID: qid, Bool: &yes}
				}
				if _, err := s.Answer(context.Background(), r); err != nil {
					t.Errorf("Answer(%s): %v", qid, err)
				}
			}()
		}
	}
	wg.Wait()

	scores, err := s.DomainScores(context.Background(), aid)
	if err != nil {
		t.Fatal(err)
	}
	for _, ds := range scores {
		if ds.PillarID != "security_from_ai" {
			continue
		}
		if ds.QuestionsScored != 2 || ds.RawScore != 5 {
			t.Errorf("domain %s = %+v, want both answers counted", ds.DomainID, ds)
		}
	}
	if n := s.locks.size(); n != 0 {
		t.Errorf("%d locks leaked", n)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

func TestComplete_FixesTotals(t *testing.T) {
	fixedClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, met := newTestService(t, nil)
	_, aid := startAssessment(t, s)
	answerIndex(t, s, aid, pip+"_q1", 4)
	answerBool(t, s, aid, pip+"_q3", true)

	a, err := s.Complete(context.Background(), aid)
	if err != nil {
		t.Fatal(err)
	}
	wantTotals := scoring.Totals{TotalScore: 7.5, MaturityLevel: 5, ScorePercent: 100, DomainsAssessed: 1, DomainsTotal: 19}
	if a.Status != scoring.StatusCompleted || a.CompletedAt == nil || a.Totals == nil || *a.Totals != wantTotals {
		t.Errorf("completed = %+v totals=%+v", a, a.Totals)
	}
	if !a.CompletedAt.After(a.StartedAt) {
		t.Errorf("completed_at %s not after started_at %s", a.CompletedAt, a.StartedAt)
	}
	wantCounter := `
# HELP aismm_assessments_completed_total Assessments moved to completed.
# TYPE aismm_assessments_completed_total counter
aismm_assessments_completed_total 1
`
	if err := testutil.GatherAndCompare(met.Registry(), strings.NewReader(wantCounter), "aismm_assessments_completed_total"); err != nil {
		t.Error(err)
	}

	// completion is one-way
	if _, err := s.Complete(context.Background(), aid); errs.ReasonOf(err) != errs.ReasonInvalidTransition {
		t.Errorf("second complete err = %v", err)
	}
	idx := 0
	_, err = s.Answer(context.Background(), scoring.Response{AssessmentID: aid, QuestionID: pip + "_q1", Index: &idx})
	if !errs.IsPrecondition(err) || errs.ReasonOf(err) != errs.ReasonAssessmentNotOpen {
		t.Errorf("answer after completion err = %v", err)
	}
}

func TestComplete_RescoresFromAnswers(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, aid := startAssessment(t, s)
	answerIndex(t, s, aid, pip+"_q1", 4)

	// a stale row must not leak into the totals
	err := s.store.WithTx(context.Background(), func(tx *store.Tx) error {
		return tx.PutDomainScore(context.Background(), aid, scoring.DomainScore{
			DomainID: pip, PillarID: "security_from_ai", RawScore: 1, WeightedScore: 1.5, MaturityLevel: 1,
			QuestionsAnswered: 1, QuestionsScored: 1, QuestionsTotal: 4,
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := s.Complete(context.Background(), aid)
	if err != nil {
		t.Fatal(err)
	}
	if a.Totals.MaturityLevel != 5 || a.Totals.ScorePercent != 100 {
		t.Errorf("totals = %+v, want level 5 at 100%%", a.Totals)
	}
	scores, err := s.DomainScores(context.Background(), aid)
	if err != nil {
		t.Fatal(err)
	}
	for _, ds := range scores {
		if ds.DomainID == pip && ds.MaturityLevel != 5 {
			t.Errorf("score row not refreshed: %+v", ds)
		}
	}
}

func TestDiscard_OnlyInProgress(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()
	_, aid := startAssessment(t, s)
	answerIndex(t, s, aid, pip+"_q1", 2)

	if err := s.Discard(ctx, aid); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := s.Status(ctx, aid); !IsNotFound(err) {
		t.Errorf("status after discard err = %v", err)
	}
	if err := s.Discard(ctx, aid); !IsNotFound(err) {
		t.Errorf("second discard err = %v", err)
	}

	_, done := startAssessment(t, s)
	if _, err := s.Complete(ctx, done); err != nil {
		t.Fatal(err)
	}
	if err := s.Discard(ctx, done); !errs.IsPrecondition(err) || errs.ReasonOf(err) != errs.ReasonAssessmentNotOpen {
		t.Errorf("discard completed err = %v", err)
	}
}

func TestArchive_OnlyFromCompleted(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, aid := startAssessment(t, s)

	if _, err := s.Archive(context.Background(), aid); errs.ReasonOf(err) != errs.ReasonInvalidTransition {
		t.Fatalf("archive in-progress err = %v", err)
	}
	if _, err := s.Complete(context.Background(), aid); err != nil {
		t.Fatal(err)
	}
	a, err := s.Archive(context.Background(), aid)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != scoring.StatusArchived || a.Totals == nil {
		t.Errorf("archived = %+v", a)
	}
	if _, err := s.Archive(context.Background(), aid); errs.ReasonOf(err) != errs.ReasonInvalidTransition {
		t.Errorf("archive twice err = %v", err)
	}
}

func TestStatus_ReportsPartialData(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, aid := startAssessment(t, s)
	answerIndex(t, s, aid, pip+"_q1", 2)

	sum, err := s.Status(context.Background(), aid)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Totals.DomainsAssessed != 1 || sum.Totals.MaturityLevel != 3 {
		t.Errorf("provisional totals = %+v", sum.Totals)
	}
	if len(sum.PillarScores) != 3 {
		t.Errorf("pillar scores = %+v", sum.PillarScores)
	}
	if len(sum.Responses) != 1 || !sum.Responses[0].Scored || sum.Responses[0].Score != 3 {
		t.Errorf("responses = %+v", sum.Responses)
	}
	// two pillars and 18 domains carry no data
	if len(sum.Warnings) != 2+18 {
		t.Errorf("warnings = %d, want 20", len(sum.Warnings))
	}
	for _, w := range sum.Warnings {
		if w.Code != scoring.WarningPartialData {
			t.Errorf("warning code = %s", w.Code)
		}
	}
}

// ─── Gaps / Trend ───────────────────────────────────────────────────────────

func TestGaps(t *testing.T) {
	s, _ := newTestService(t, nil)
	_, aid := startAssessment(t, s)
	answerIndex(t, s, aid, pip+"_q1", 0)
	answerIndex(t, s, aid, "deepfake_defense_q1", 2)

	ga, err := s.Gaps(context.Background(), aid, "security_from_ai")
	if err != nil {
		t.Fatal(err)
	}
	if len(ga.Gaps) != 2 || ga.Gaps[0].DomainID != pip || ga.Gaps[0].Priority != 6 || ga.Gaps[0].Tier != scoring.TierCritical {
		t.Errorf("gaps = %+v", ga.Gaps)
	}
	if len(ga.Unassessed) != 4 {
		t.Errorf("unassessed = %v", ga.Unassessed)
	}

	if _, err := s.Gaps(context.Background(), aid, "nope"); errs.ReasonOf(err) != errs.ReasonUnknownPillar {
		t.Errorf("unknown pillar err = %v", err)
	}
	if _, err := s.Gaps(context.Background(), "missing", ""); !IsNotFound(err) {
		t.Errorf("missing assessment err = %v", err)
	}
}

func TestTrend(t *testing.T) {
	fixedClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, _ := newTestService(t, nil)
	ctx := context.Background()
	orgID, first := startAssessment(t, s)

	tr, err := s.Trend(ctx, orgID)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Available || tr.Reason == "" {
		t.Errorf("trend with no completed assessments = %+v", tr)
	}

	answerIndex(t, s, first, pip+"_q1", 0)
	if _, err := s.Complete(ctx, first); err != nil {
		t.Fatal(err)
	}
	second, err := s.StartAssessment(ctx, orgID)
	if err != nil {
		t.Fatal(err)
	}
	answerIndex(t, s, second.ID, pip+"_q1", 4)
	if _, err := s.Complete(ctx, second.ID); err != nil {
		t.Fatal(err)
	}

	tr, err = s.Trend(ctx, orgID)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Available || tr.Direction != scoring.Improving || tr.ScoreChange != 80 || tr.MaturityChange != 4 {
		t.Errorf("trend = %+v", tr)
	}
	if tr.FirstAssessmentID != first || tr.LatestAssessmentID != second.ID {
		t.Errorf("trend endpoints = %s..%s", tr.FirstAssessmentID, tr.LatestAssessmentID)
	}

	if _, err := s.Trend(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("missing organization err = %v", err)
	}
}

// ─── Reports ────────────────────────────────────────────────────────────────

func TestGenerateReport(t *testing.T) {
	s, met := newTestService(t, analyst.NewHeuristic())
	ctx := context.Background()
	orgID, aid := startAssessment(t, s)

	_, err := s.GenerateReport(ctx, orgID)
	if errs.ReasonOf(err) != errs.ReasonNoCompletedAssessment {
		t.Fatalf("report without completed assessment err = %v", err)
	}

	answerIndex(t, s, aid, pip+"_q1", 0)
	answerIndex(t, s, aid, "ai_security_standards_q1", 3)
	if _, err := s.Complete(ctx, aid); err != nil {
		t.Fatal(err)
	}

	r, err := s.GenerateReport(ctx, orgID)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if r.OrganizationName != "Acme" || r.AssessmentsAnalyzed != 1 || len(r.PillarReports) != 3 {
		t.Errorf("report = %+v", r)
	}
	if len(r.StrategicRecommendations) == 0 || r.StrategicRecommendations[0].Domain != pip {
		t.Errorf("recommendations = %+v", r.StrategicRecommendations)
	}
	if r.MaturityTrend != nil {
		t.Error("single assessment must not carry a trend")
	}

	want := `
# HELP aismm_reports_total Organization report generations, by status.
# TYPE aismm_reports_total counter
aismm_reports_total{status="precondition_failed"} 1
aismm_reports_total{status="success"} 1
`
	if err := testutil.GatherAndCompare(met.Registry(), strings.NewReader(want), "aismm_reports_total"); err != nil {
		t.Error(err)
	}
}

func TestGenerateReport_AnalyzerFailureIsAtomic(t *testing.T) {
	boom := errors.New("model unavailable")
	failing := report.AnalyzerFunc(func(ctx context.Context, pc report.PillarContext) (report.PillarReport, error) {
		if pc.Pillar.ID == "security_for_ai" {
			return report.PillarReport{}, boom
		}
		return analyst.NewHeuristic().AnalyzePillar(ctx, pc)
	})
	s, _ := newTestService(t, failing)
	orgID, aid := startAssessment(t, s)
	if _, err := s.Complete(context.Background(), aid); err != nil {
		t.Fatal(err)
	}

	r, err := s.GenerateReport(context.Background(), orgID)
	if !errors.Is(err, boom) || r != nil {
		t.Errorf("report = %v, err = %v", r, err)
	}
}

func TestGenerateReport_BadAnalystOutputIsUpstream(t *testing.T) {
	tests := []struct {
		name   string
		mangle func(f *report.PillarReport)
		reason string
	}{
		{"wrong pillar", func(f *report.PillarReport) {
			f.PillarID = "security_for_ai"
		}, errs.ReasonMalformedReport},
		{"unknown priority", func(f *report.PillarReport) {
			f.PrioritizedRecommendations = []report.Recommendation{{Priority: "urgent", Domain: pip, Recommendation: "patch"}}
		}, errs.ReasonInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := report.AnalyzerFunc(func(ctx context.Context, pc report.PillarContext) (report.PillarReport, error) {
				f, err := analyst.NewHeuristic().AnalyzePillar(ctx, pc)
				if err == nil && pc.Pillar.ID == "security_from_ai" {
					tt.mangle(&f)
				}
				return f, err
			})
			s, _ := newTestService(t, a)
			orgID, aid := startAssessment(t, s)
			if _, err := s.Complete(context.Background(), aid); err != nil {
				t.Fatal(err)
			}

			r, err := s.GenerateReport(context.Background(), orgID)
			if r != nil || !errs.IsUpstream(err) || errs.IsValidation(err) {
				t.Fatalf("report = %v, err = %v (kind %s)", r, err, errs.KindOf(err))
			}
			if errs.ReasonOf(err) != tt.reason {
				t.Errorf("reason = %q, want %q", errs.ReasonOf(err), tt.reason)
			}
		})
	}
}

func TestGenerateReport_NoAnalyzer(t *testing.T) {
	s, _ := newTestService(t, nil)
	orgID, aid := startAssessment(t, s)
	if _, err := s.Complete(context.Background(), aid); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GenerateReport(context.Background(), orgID); errs.ReasonOf(err) != errs.ReasonNoAnalyzer {
		t.Errorf("err = %v", err)
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var k keyedMutex
	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("a1")
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
	if k.size() != 0 {
		t.Errorf("lock entries leaked: %d", k.size())
	}
}
