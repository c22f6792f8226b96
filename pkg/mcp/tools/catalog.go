// Package tools provides the read-only MCP tools over the use case catalog.
package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// maxSearchResults caps search_use_cases output.
const maxSearchResults = 50

// Scoper acquires a pooled connection for the duration of one tool call.
// Implemented by *database.DB.
type Scoper interface {
	WithScope(ctx context.Context) (context.Context, func(), error)
}

// CatalogToolDeps contains dependencies for the catalog tools.
type CatalogToolDeps struct {
	DB                 Scoper
	AreaService        services.AreaService
	ProcessStepService services.ProcessStepService
	UseCaseService     services.UseCaseService
	GraphService       services.GraphService
	Logger             *zap.Logger
}

// RegisterCatalogTools registers list_areas, get_process_step,
// search_use_cases and get_step_graph. None of them write.
func RegisterCatalogTools(s *server.MCPServer, deps *CatalogToolDeps) {
	registerListAreasTool(s, deps)
	registerGetProcessStepTool(s, deps)
	registerSearchUseCasesTool(s, deps)
	registerGetStepGraphTool(s, deps)
}

func readOnly(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	}, opts...)
	return mcp.NewTool(name, opts...)
}

// withScope runs fn with a database connection in its context.
func withScope(ctx context.Context, deps *CatalogToolDeps, fn func(ctx context.Context) (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	scoped, release, err := deps.DB.WithScope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer release()

	result, err := fn(scoped)
	if err != nil {
		return errorResult(err)
	}
	return result, nil
}

type areaSummary struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	StepCount    int     `json:"step_count"`
	UseCaseCount int     `json:"use_case_count"`
}

func registerListAreasTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := readOnly("list_areas",
		"List all business areas with their process step and use case counts. "+
			"Use the area ids with get_step_graph.")

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return withScope(ctx, deps, func(ctx context.Context) (*mcp.CallToolResult, error) {
			areas, err := deps.AreaService.List(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]areaSummary, 0, len(areas))
			for _, a := range areas {
				out = append(out, areaSummary{
					ID:           a.ID,
					Name:         a.Name,
					Description:  a.Description,
					StepCount:    a.StepCount,
					UseCaseCount: a.UseCaseCount,
				})
			}
			return jsonResult(map[string]any{"areas": out, "count": len(out)})
		})
	})
}

type useCaseSummary struct {
	ID       int64    `json:"id"`
	BIID     string   `json:"bi_id"`
	Name     string   `json:"name"`
	Priority *int     `json:"priority,omitempty"`
	Summary  *string  `json:"summary,omitempty"`
	Step     string   `json:"process_step_bi_id,omitempty"`
	Area     string   `json:"area_name,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func toUseCaseSummary(uc *models.UseCase) useCaseSummary {
	tags := make([]string, 0, len(uc.Tags))
	for _, t := range uc.Tags {
		tags = append(tags, string(t.Category)+":"+t.Name)
	}
	return useCaseSummary{
		ID:       uc.ID,
		BIID:     uc.BIID,
		Name:     uc.Name,
		Priority: uc.Priority,
		Summary:  uc.Summary,
		Step:     uc.ProcessStepBIID,
		Area:     uc.AreaName,
		Tags:     tags,
	}
}

func registerGetProcessStepTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := readOnly("get_process_step",
		"Get one process step with all its descriptive fields and the use cases attached to it.",
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Process step id")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := getOptionalID(req, "id")
		if !ok {
			return NewErrorResult("invalid_parameters", "id must be a positive integer"), nil
		}

		return withScope(ctx, deps, func(ctx context.Context) (*mcp.CallToolResult, error) {
			step, err := deps.ProcessStepService.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			stepID := step.ID
			useCases, err := deps.UseCaseService.List(ctx, repositories.UseCaseFilter{ProcessStepID: &stepID})
			if err != nil {
				return nil, err
			}
			summaries := make([]useCaseSummary, 0, len(useCases))
			for _, uc := range useCases {
				summaries = append(summaries, toUseCaseSummary(uc))
			}
			return jsonResult(map[string]any{"process_step": step, "use_cases": summaries})
		})
	})
}

func registerSearchUseCasesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := readOnly("search_use_cases",
		"Search use cases by text in their bi_id, name and summary. "+
			"Optionally restrict to one area or process step.",
		mcp.WithString("query", mcp.Required(), mcp.Description("Case-insensitive search text")),
		mcp.WithNumber("area_id", mcp.Description("Only use cases under this area")),
		mcp.WithNumber("process_step_id", mcp.Description("Only use cases of this process step")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		query = strings.TrimSpace(query)
		if err != nil || query == "" {
			return NewErrorResult("invalid_parameters", "query is required"), nil
		}
		filter := repositories.UseCaseFilter{Search: query}
		if v, ok := getOptionalID(req, "area_id"); ok {
			filter.AreaID = &v
		}
		if v, ok := getOptionalID(req, "process_step_id"); ok {
			filter.ProcessStepID = &v
		}

		return withScope(ctx, deps, func(ctx context.Context) (*mcp.CallToolResult, error) {
			useCases, err := deps.UseCaseService.List(ctx, filter)
			if err != nil {
				return nil, err
			}
			total := len(useCases)
			if total > maxSearchResults {
				useCases = useCases[:maxSearchResults]
			}
			out := make([]useCaseSummary, 0, len(useCases))
			for _, uc := range useCases {
				out = append(out, toUseCaseSummary(uc))
			}
			return jsonResult(map[string]any{
				"use_cases": out,
				"count":     len(out),
				"total":     total,
				"truncated": total > len(out),
			})
		})
	})
}

func registerGetStepGraphTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := readOnly("get_step_graph",
		"Get the process step relevance graph for a focus area. Without comparison areas "+
			"the edges are the links inside the focus area; with them, only links crossing "+
			"between the focus area and a comparison area.",
		mcp.WithNumber("focus_area_id", mcp.Required(), mcp.Description("Area whose steps are in focus")),
		mcp.WithArray("compare_area_ids", mcp.Description("Optional: area ids to compare against, e.g. [2, 5]")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		focus, ok := getOptionalID(req, "focus_area_id")
		if !ok {
			return NewErrorResult("invalid_parameters", "focus_area_id must be a positive integer"), nil
		}
		compare, err := getIDList(req, "compare_area_ids")
		if err != nil {
			return errorResult(err)
		}

		return withScope(ctx, deps, func(ctx context.Context) (*mcp.CallToolResult, error) {
			graph, err := deps.GraphService.StepGraph(ctx, focus, compare)
			if err != nil {
				return nil, err
			}
			return jsonResult(graph)
		})
	})
}

// getOptionalID reads a positive integer argument. JSON numbers arrive as
// float64; numeric strings are accepted too.
func getOptionalID(req mcp.CallToolRequest, key string) (int64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	return toID(args[key])
}

func toID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n <= 0 || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

// getIDList reads an optional array of ids.
func getIDList(req mcp.CallToolRequest, key string) ([]int64, error) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok || args[key] == nil {
		return nil, nil
	}
	items, ok := args[key].([]any)
	if !ok {
		return nil, apperrors.Validation("%s must be an array of ids", key)
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, ok := toID(item)
		if !ok {
			return nil, apperrors.Validation("%s must contain positive integer ids", key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
