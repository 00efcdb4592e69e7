package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/scoring"
	"github.com/HendryAvila/aismm/internal/service"
	"github.com/HendryAvila/aismm/internal/store"
)

// AssessmentService is the part of the service the assessment tools need.
type AssessmentService interface {
	StartAssessment(ctx context.Context, orgID string) (*store.Assessment, error)
	Answer(ctx context.Context, r scoring.Response) (*service.AnswerResult, error)
	Status(ctx context.Context, assessmentID string) (*service.Summary, error)
	Complete(ctx context.Context, assessmentID string) (*store.Assessment, error)
	Archive(ctx context.Context, assessmentID string) (*store.Assessment, error)
	Discard(ctx context.Context, assessmentID string) error
}

// --- aismm_start_assessment ---

// StartAssessmentTool opens a new assessment for an organization.
type StartAssessmentTool struct {
	svc AssessmentService
}

// NewStartAssessmentTool creates a StartAssessmentTool.
func NewStartAssessmentTool(svc AssessmentService) *StartAssessmentTool {
	return &StartAssessmentTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *StartAssessmentTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_start_assessment",
		mcp.WithDescription("Start a new in-progress maturity assessment for an organization."),
		mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization id from aismm_create_organization")),
	)
}

// Handle processes the aismm_start_assessment tool call.
func (t *StartAssessmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID := req.GetString("organization_id", "")
	if orgID == "" {
		return mcp.NewToolResultError("'organization_id' is required"), nil
	}
	a, err := t.svc.StartAssessment(ctx, orgID)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Assessment Started\n\n**ID:** `%s`\n**Status:** %s\n\n"+
			"Answer questions with `aismm_answer`; see question ids with `aismm_model`.",
		a.ID, a.Status)), nil
}

// --- aismm_answer ---

// AnswerTool records one response and returns the recomputed domain score.
type AnswerTool struct {
	svc AssessmentService
}

// NewAnswerTool creates an AnswerTool.
func NewAnswerTool(svc AssessmentService) *AnswerTool {
	return &AnswerTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *AnswerTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_answer",
		mcp.WithDescription(
			"Answer one question of an in-progress assessment. Provide the payload matching the question type: "+
				"`response_index` (0-based) for single_choice/scale, `selected_options` for multiple_choice, "+
				"`response_bool` for boolean, `response_value` for numeric, `response_text` for free_text. "+
				"Answering again replaces the previous answer.",
		),
		mcp.WithString("assessment_id", mcp.Required(), mcp.Description("Assessment id")),
		mcp.WithString("question_id", mcp.Required(), mcp.Description("Question id, e.g. prompt_injection_protection_q1")),
		mcp.WithString("domain_id", mcp.Description("Optional domain id; must own the question when given")),
		mcp.WithNumber("response_index", mcp.Description("Selected option index, 0-based")),
		mcp.WithNumber("response_value", mcp.Description("Numeric answer, non-negative")),
		mcp.WithBoolean("response_bool", mcp.Description("Yes/no answer")),
		mcp.WithString("response_text", mcp.Description("Free text answer")),
		mcp.WithArray("selected_options", mcp.WithStringItems(), mcp.Description("Selected option labels")),
	)
}

// Handle processes the aismm_answer tool call.
func (t *AnswerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := scoring.Response{
		AssessmentID: req.GetString("assessment_id", ""),
		QuestionID:   req.GetString("question_id", ""),
		DomainID:     req.GetString("domain_id", ""),
		Text:         req.GetString("response_text", ""),
	}
	if r.AssessmentID == "" || r.QuestionID == "" {
		return mcp.NewToolResultError("'assessment_id' and 'question_id' are required"), nil
	}

	idx, ok := floatArg(req, "response_index")
	if !ok {
		return mcp.NewToolResultError("'response_index' must be a number"), nil
	}
	if idx != nil {
		if *idx != float64(int(*idx)) {
			return mcp.NewToolResultError("'response_index' must be a whole number"), nil
		}
		i := int(*idx)
		r.Index = &i
	}
	if r.Value, ok = floatArg(req, "response_value"); !ok {
		return mcp.NewToolResultError("'response_value' must be a number"), nil
	}
	if r.Bool, ok = boolArg(req, "response_bool"); !ok {
		return mcp.NewToolResultError("'response_bool' must be true or false"), nil
	}
	if r.Selected, ok = stringsArg(req, "selected_options"); !ok {
		return mcp.NewToolResultError("'selected_options' must be a list of strings"), nil
	}

	res, err := t.svc.Answer(ctx, r)
	if err != nil {
		return errorResult(err)
	}

	scoreText := "not scored"
	if res.Response.Scored {
		scoreText = fmt.Sprintf("%d/5", res.Response.Score)
	}
	ds := res.DomainScore
	return mcp.NewToolResultText(fmt.Sprintf(
		"Recorded `%s`: %s.\n\n**Domain %s:** %s (raw %.2f, weighted %.2f), %d/%d questions answered.",
		res.Response.QuestionID, scoreText, ds.DomainID, levelLabel(ds.MaturityLevel),
		ds.RawScore, ds.WeightedScore, ds.QuestionsAnswered, ds.QuestionsTotal)), nil
}

// --- aismm_assessment_status ---

// AssessmentStatusTool summarizes an assessment.
type AssessmentStatusTool struct {
	svc AssessmentService
}

// NewAssessmentStatusTool creates an AssessmentStatusTool.
func NewAssessmentStatusTool(svc AssessmentService) *AssessmentStatusTool {
	return &AssessmentStatusTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *AssessmentStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_assessment_status",
		mcp.WithDescription(
			"Show the status of an assessment: totals, pillar and domain scores, and partial-data warnings. "+
				"Totals are provisional until the assessment is completed.",
		),
		mcp.WithString("assessment_id", mcp.Required(), mcp.Description("Assessment id")),
		mcp.WithString("format", mcp.Description("markdown (default) or json"), mcp.Enum("markdown", "json")),
	)
}

// Handle processes the aismm_assessment_status tool call.
func (t *AssessmentStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assessment_id", "")
	if id == "" {
		return mcp.NewToolResultError("'assessment_id' is required"), nil
	}
	sum, err := t.svc.Status(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	if req.GetString("format", "markdown") == "json" {
		text, err := jsonText(sum)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultText(statusMarkdown(sum)), nil
}

func statusMarkdown(sum *service.Summary) string {
	var b strings.Builder
	a := sum.Assessment
	fmt.Fprintf(&b, "# Assessment `%s`\n\n", a.ID)
	fmt.Fprintf(&b, "**Status:** %s\n", a.Status)
	fmt.Fprintf(&b, "**Started:** %s\n", a.StartedAt.Format("2006-01-02 15:04 UTC"))
	if a.CompletedAt != nil {
		fmt.Fprintf(&b, "**Completed:** %s\n", a.CompletedAt.Format("2006-01-02 15:04 UTC"))
	}
	fmt.Fprintf(&b, "**Overall:** %s, total score %.2f, %.1f%% (%d/%d domains assessed)\n\n",
		levelLabel(sum.Totals.MaturityLevel), sum.Totals.TotalScore, sum.Totals.ScorePercent,
		sum.Totals.DomainsAssessed, sum.Totals.DomainsTotal)

	b.WriteString("## Pillars\n\n| Pillar | Level | Raw | Weighted |\n|--------|-------|-----|----------|\n")
	for _, p := range sum.PillarScores {
		fmt.Fprintf(&b, "| %s | %s | %.2f | %.2f |\n", p.PillarName, levelLabel(p.MaturityLevel), p.RawScore, p.WeightedScore)
	}

	b.WriteString("\n## Domains\n\n| Domain | Level | Raw | Answered |\n|--------|-------|-----|----------|\n")
	for _, d := range sum.DomainScores {
		fmt.Fprintf(&b, "| %s | %s | %.2f | %d/%d |\n", d.DomainID, levelLabel(d.MaturityLevel), d.RawScore,
			d.QuestionsAnswered, d.QuestionsTotal)
	}

	if len(sum.Warnings) > 0 {
		fmt.Fprintf(&b, "\n## Warnings (%d)\n\n", len(sum.Warnings))
		for _, w := range sum.Warnings {
			fmt.Fprintf(&b, "- ⚠️ %s\n", w.Message)
		}
	}
	return b.String()
}

// --- aismm_complete_assessment ---

// CompleteAssessmentTool fixes the totals of an assessment.
type CompleteAssessmentTool struct {
	svc AssessmentService
}

// NewCompleteAssessmentTool creates a CompleteAssessmentTool.
func NewCompleteAssessmentTool(svc AssessmentService) *CompleteAssessmentTool {
	return &CompleteAssessmentTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *CompleteAssessmentTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_complete_assessment",
		mcp.WithDescription("Complete an in-progress assessment. Completion is one-way and fixes its total score and maturity level."),
		mcp.WithString("assessment_id", mcp.Required(), mcp.Description("Assessment id")),
	)
}

// Handle processes the aismm_complete_assessment tool call.
func (t *CompleteAssessmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assessment_id", "")
	if id == "" {
		return mcp.NewToolResultError("'assessment_id' is required"), nil
	}
	a, err := t.svc.Complete(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	var tot scoring.Totals
	if a.Totals != nil {
		tot = *a.Totals
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Assessment Completed\n\n**ID:** `%s`\n**Maturity:** %s\n**Total score:** %.2f\n**Score:** %.1f%%\n**Domains assessed:** %d/%d",
		a.ID, levelLabel(tot.MaturityLevel), tot.TotalScore, tot.ScorePercent, tot.DomainsAssessed, tot.DomainsTotal)), nil
}

// --- aismm_archive_assessment ---

// ArchiveAssessmentTool archives a completed assessment.
type ArchiveAssessmentTool struct {
	svc AssessmentService
}

// NewArchiveAssessmentTool creates an ArchiveAssessmentTool.
func NewArchiveAssessmentTool(svc AssessmentService) *ArchiveAssessmentTool {
	return &ArchiveAssessmentTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *ArchiveAssessmentTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_archive_assessment",
		mcp.WithDescription("Archive a completed assessment. Archived assessments still count in trends and reports."),
		mcp.WithString("assessment_id", mcp.Required(), mcp.Description("Assessment id")),
	)
}

// Handle processes the aismm_archive_assessment tool call.
func (t *ArchiveAssessmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assessment_id", "")
	if id == "" {
		return mcp.NewToolResultError("'assessment_id' is required"), nil
	}
	a, err := t.svc.Archive(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Assessment `%s` is now %s.", a.ID, a.Status)), nil
}

// --- aismm_discard_assessment ---

// DiscardAssessmentTool deletes an in-progress assessment.
type DiscardAssessmentTool struct {
	svc AssessmentService
}

// NewDiscardAssessmentTool creates a DiscardAssessmentTool.
func NewDiscardAssessmentTool(svc AssessmentService) *DiscardAssessmentTool {
	return &DiscardAssessmentTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *DiscardAssessmentTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_discard_assessment",
		mcp.WithDescription(
			"Delete an in-progress assessment together with its answers and domain scores. "+
				"Completed and archived assessments cannot be discarded.",
		),
		mcp.WithString("assessment_id", mcp.Required(), mcp.Description("Assessment id")),
	)
}

// Handle processes the aismm_discard_assessment tool call.
func (t *DiscardAssessmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assessment_id", "")
	if id == "" {
		return mcp.NewToolResultError("'assessment_id' is required"), nil
	}
	if err := t.svc.Discard(ctx, id); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Assessment `%s` discarded.", id)), nil
}

func levelLabel(level int) string {
	if level == model.LevelUnassessed {
		return "not assessed"
	}
	return fmt.Sprintf("level %d (%s)", level, model.LevelName(level))
}
