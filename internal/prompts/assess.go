// Package prompts implements the MCP prompts of the maturity service.
//
// Prompts are user-triggered workflows: the host shows them like slash
// commands and the returned messages tell the model which tools to call
// and in which order.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// AssessPrompt handles the aismm-assess prompt: a guided questionnaire run
// for one organization.
type AssessPrompt struct{}

// NewAssessPrompt creates an AssessPrompt.
func NewAssessPrompt() *AssessPrompt {
	return &AssessPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *AssessPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("aismm-assess",
		mcp.WithPromptDescription(
			"Run an AI security maturity assessment for an organization, "+
				"one pillar at a time, and complete it with a scored summary.",
		),
		mcp.WithArgument("organization",
			mcp.ArgumentDescription("Organization name, or an existing organization id"),
		),
		mcp.WithArgument("pillar",
			mcp.ArgumentDescription("Limit the questionnaire to one pillar id, e.g. security_from_ai. Default: all pillars"),
		),
	)
}

// Handle processes the aismm-assess prompt request.
func (p *AssessPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	org := argOr(req, "organization", "my organization")
	scope := "all three pillars"
	if pillar := argOr(req, "pillar", ""); pillar != "" {
		scope = fmt.Sprintf("only the `%s` pillar", pillar)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("AI security maturity assessment: %s", org),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to assess the AI security maturity of '%s', covering %s.\n\n"+
						"Please:\n"+
						"1. Run `aismm_list_organizations`. If '%s' is not there, run `aismm_create_organization` (ask me for industry and size)\n"+
						"2. Run `aismm_start_assessment` with the organization id\n"+
						"3. For each domain in scope, run `aismm_model` with its `domain_id` and ask me its questions one at a time, "+
						"recording each answer with `aismm_answer`\n"+
						"4. When a pillar is done, show me `aismm_assessment_status` for it\n"+
						"5. When I confirm, run `aismm_complete_assessment` and then `aismm_gaps` to show my top priorities\n\n"+
						"Skipped questions are fine: domains without scored answers stay unassessed and do not lower the score.",
					org, scope, org,
				)),
			},
		},
	}, nil
}

func argOr(req mcp.GetPromptRequest, key, def string) string {
	if args := req.Params.Arguments; args != nil {
		if v, ok := args[key]; ok && v != "" {
			return v
		}
	}
	return def
}
