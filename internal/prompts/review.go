package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the aismm-report-review prompt. It asks the model to
// generate the organization report and walk the user through it.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("aismm-report-review",
		mcp.WithPromptDescription(
			"Generate and review the consolidated AI security maturity report of an organization, "+
				"including its trend across assessments.",
		),
		mcp.WithArgument("organization_id",
			mcp.ArgumentDescription("Organization id"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the aismm-report-review prompt request.
func (p *ReviewPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	orgID := argOr(req, "organization_id", "")
	if orgID == "" {
		return nil, fmt.Errorf("organization_id is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("AI security maturity report review: %s", orgID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `aismm_report` with organization_id='%s'.\n\n"+
						"Then:\n"+
						"1. Summarize the overall maturity level and score in two sentences\n"+
						"2. Call out the weakest pillar and the critical recommendations\n"+
						"3. Run `aismm_trend` for the same organization and tell me what improved and what declined\n"+
						"4. Propose the three actions I should take first, with their effort estimates",
					orgID,
				)),
			},
		},
	}, nil
}
