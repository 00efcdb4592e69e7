// Package tools implements the MCP tool handlers of the maturity service.
//
// Each tool is a struct with its dependencies injected through the
// constructor, a Definition() returning the mcp.Tool schema and a Handle()
// processing the call. Files group tools by family.
//
// Input problems (validation, precondition, unknown ids) come back as tool
// error results carrying the reason code, so the calling model can correct
// itself. Infrastructure failures are returned as Go errors.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/metrics"
	"github.com/HendryAvila/aismm/internal/service"
)

// errorResult converts domain errors into tool error results. Any other
// error is returned unchanged for the server to report.
func errorResult(err error) (*mcp.CallToolResult, error) {
	switch {
	case service.IsNotFound(err):
		return mcp.NewToolResultError(fmt.Sprintf("%v (reason: not_found)", err)), nil
	case errs.KindOf(err) != errs.KindUnknown:
		return mcp.NewToolResultError(fmt.Sprintf("%v (reason: %s)", err, errs.ReasonOf(err))), nil
	case errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError(fmt.Sprintf("%v (reason: timeout)", err)), nil
	}
	return nil, err
}

// jsonText renders v as indented JSON for tool output.
func jsonText(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}

// floatArg extracts an optional number (JSON numbers are float64).
func floatArg(req mcp.CallToolRequest, key string) (*float64, bool) {
	raw, present := req.GetArguments()[key]
	if !present || raw == nil {
		return nil, true
	}
	v, ok := raw.(float64)
	if !ok {
		return nil, false
	}
	return &v, true
}

// boolArg extracts an optional boolean.
func boolArg(req mcp.CallToolRequest, key string) (*bool, bool) {
	raw, present := req.GetArguments()[key]
	if !present || raw == nil {
		return nil, true
	}
	v, ok := raw.(bool)
	if !ok {
		return nil, false
	}
	return &v, true
}

// stringsArg extracts an optional list of strings.
func stringsArg(req mcp.CallToolRequest, key string) ([]string, bool) {
	raw, present := req.GetArguments()[key]
	if !present || raw == nil {
		return nil, true
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Instrument counts every call of a tool handler by outcome.
func Instrument(met *metrics.Metrics, name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, req)
		status := metrics.StatusSuccess
		if err != nil || (res != nil && res.IsError) {
			status = metrics.StatusFailure
		}
		met.ToolCall(name, status)
		return res, err
	}
}
