// Package server wires the MCP tools, prompts and resources of the maturity
// service into one MCP server. Only wiring lives here.
package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/aismm/internal/metrics"
	"github.com/HendryAvila/aismm/internal/prompts"
	"github.com/HendryAvila/aismm/internal/resources"
	"github.com/HendryAvila/aismm/internal/service"
	"github.com/HendryAvila/aismm/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the MCP server name announced to hosts.
const Name = "aismm"

type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates the MCP server with every tool, prompt and resource
// registered. met may be nil.
func New(svc *service.Service, met *metrics.Metrics) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Tools ---

	all := []tool{
		tools.NewModelTool(svc.Model()),
		tools.NewCreateOrganizationTool(svc),
		tools.NewListOrganizationsTool(svc),
		tools.NewStartAssessmentTool(svc),
		tools.NewAnswerTool(svc),
		tools.NewAssessmentStatusTool(svc),
		tools.NewCompleteAssessmentTool(svc),
		tools.NewArchiveAssessmentTool(svc),
		tools.NewDiscardAssessmentTool(svc),
		tools.NewGapsTool(svc),
		tools.NewTrendTool(svc),
		tools.NewReportTool(svc),
	}
	for _, t := range all {
		def := t.Definition()
		s.AddTool(def, tools.Instrument(met, def.Name, t.Handle))
	}

	// --- Prompts ---

	assess := prompts.NewAssessPrompt()
	s.AddPrompt(assess.Definition(), assess.Handle)

	review := prompts.NewReviewPrompt()
	s.AddPrompt(review.Definition(), review.Handle)

	// --- Resources ---

	rh := resources.NewHandler(svc)
	s.AddResource(rh.ModelResource(), rh.HandleModel)
	s.AddResource(rh.OrganizationsResource(), rh.HandleOrganizations)
	s.AddResourceTemplate(rh.ReportTemplate(), rh.HandleReport)

	return s
}

// serverInstructions tells the host model how the tools fit together.
func serverInstructions() string {
	return `You have access to the AI Security Maturity Model (AISMM) server.

It scores how mature an organization is across three pillars: Security for AI,
AI for Security and Security from AI. Each pillar has domains, each domain has
five maturity levels (1 Initial .. 5 Optimizing) and a short questionnaire.

## Workflow

1. aismm_create_organization (or aismm_list_organizations to reuse one)
2. aismm_start_assessment
3. aismm_model with a domain_id to see its questions, then aismm_answer for each
   answer. Answering the same question again replaces the earlier answer.
4. aismm_assessment_status to review progress; totals stay provisional.
   aismm_discard_assessment drops an in-progress assessment started by mistake.
5. aismm_complete_assessment fixes the totals. Completed assessments accept no
   more answers. aismm_archive_assessment keeps them in history.
6. aismm_gaps ranks what to improve first; aismm_trend compares assessments;
   aismm_report builds the consolidated report.

## Rules

- Ask the user; never invent answers on their behalf.
- Domains without scored answers are "not assessed" and do not drag scores down.
  Say so when presenting results.
- Tool errors end with "(reason: <code>)". Fix the input and retry rather than
  giving up, e.g. unknown_question means check the ids with aismm_model.
- aismm_report can take minutes when an LLM analyzer is configured.`
}
