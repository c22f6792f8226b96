package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

type scopeKey struct{}

// mockScoper marks the context so fakes can assert a scope was acquired.
type mockScoper struct {
	err      error
	acquired int
	released int
}

func (m *mockScoper) WithScope(ctx context.Context) (context.Context, func(), error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	m.acquired++
	return context.WithValue(ctx, scopeKey{}, true), func() { m.released++ }, nil
}

func requireScope(ctx context.Context) error {
	if ctx.Value(scopeKey{}) == nil {
		return errors.New("no scope")
	}
	return nil
}

type mockAreaService struct {
	services.AreaService
	areas []*models.Area
}

func (m *mockAreaService) List(ctx context.Context) ([]*models.Area, error) {
	return m.areas, requireScope(ctx)
}

type mockProcessStepService struct {
	services.ProcessStepService
	steps map[int64]*models.ProcessStep
}

func (m *mockProcessStepService) Get(ctx context.Context, id int64) (*models.ProcessStep, error) {
	if err := requireScope(ctx); err != nil {
		return nil, err
	}
	st, ok := m.steps[id]
	if !ok {
		return nil, apperrors.NotFound("process step %d", id)
	}
	return st, nil
}

type mockUseCaseService struct {
	services.UseCaseService
	useCases []*models.UseCase
	filters  []repositories.UseCaseFilter
}

func (m *mockUseCaseService) List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error) {
	m.filters = append(m.filters, filter)
	return m.useCases, requireScope(ctx)
}

type mockGraphService struct {
	focus   int64
	compare []int64
	err     error
}

func (m *mockGraphService) StepGraph(ctx context.Context, focus int64, compare []int64) (*models.StepGraph, error) {
	m.focus, m.compare = focus, compare
	if m.err != nil {
		return nil, m.err
	}
	return &models.StepGraph{FocusAreaID: focus, ComparisonAreaIDs: compare, Categories: []string{"Manufacturing"}}, nil
}

type catalogToolsFixture struct {
	server *server.MCPServer
	db     *mockScoper
	ucs    *mockUseCaseService
	graph  *mockGraphService
}

func newCatalogToolsFixture() *catalogToolsFixture {
	desc := "Shop floor"
	priority := 1
	f := &catalogToolsFixture{
		server: server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true)),
		db:     &mockScoper{},
		ucs: &mockUseCaseService{useCases: []*models.UseCase{{
			ID: 3, BIID: "UC-1", Name: "Blade wear", Priority: &priority,
			ProcessStepBIID: "PS-001", AreaName: "Manufacturing",
			Tags: []*models.Tag{{Name: "SAP", Category: models.TagCategoryITSystem}},
		}}},
		graph: &mockGraphService{},
	}
	RegisterCatalogTools(f.server, &CatalogToolDeps{
		DB: f.db,
		AreaService: &mockAreaService{areas: []*models.Area{
			{ID: 1, Name: "Manufacturing", Description: &desc, StepCount: 2, UseCaseCount: 5},
		}},
		ProcessStepService: &mockProcessStepService{steps: map[int64]*models.ProcessStep{
			7: {ID: 7, BIID: "PS-001", Name: "Cutting", AreaID: 1, AreaName: "Manufacturing"},
		}},
		UseCaseService: f.ucs,
		GraphService:   f.graph,
		Logger:         zap.NewNop(),
	})
	return f
}

func TestListAreasTool(t *testing.T) {
	f := newCatalogToolsFixture()
	text, isError := callTool(t, f.server, "list_areas", nil)
	require.False(t, isError, text)

	var result struct {
		Areas []areaSummary `json:"areas"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &result))
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, "Manufacturing", result.Areas[0].Name)
	assert.Equal(t, 5, result.Areas[0].UseCaseCount)
	assert.Equal(t, 1, f.db.acquired)
	assert.Equal(t, 1, f.db.released)
}

func TestGetProcessStepTool(t *testing.T) {
	f := newCatalogToolsFixture()

	text, isError := callTool(t, f.server, "get_process_step", map[string]any{"id": 7})
	require.False(t, isError, text)
	var result struct {
		Step     models.ProcessStep `json:"process_step"`
		UseCases []useCaseSummary   `json:"use_cases"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &result))
	assert.Equal(t, "PS-001", result.Step.BIID)
	require.Len(t, result.UseCases, 1)
	assert.Equal(t, []string{"it_system:SAP"}, result.UseCases[0].Tags)
	require.Len(t, f.ucs.filters, 1)
	assert.Equal(t, int64(7), *f.ucs.filters[0].ProcessStepID)

	text, isError = callTool(t, f.server, "get_process_step", map[string]any{"id": 99})
	assert.True(t, isError)
	assert.Contains(t, text, `"code":"not_found"`)

	text, isError = callTool(t, f.server, "get_process_step", map[string]any{"id": 1.5})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid_parameters")
	assert.Equal(t, f.db.acquired, f.db.released)
}

func TestSearchUseCasesTool(t *testing.T) {
	f := newCatalogToolsFixture()

	text, isError := callTool(t, f.server, "search_use_cases", map[string]any{"query": " blade ", "area_id": 1})
	require.False(t, isError, text)
	require.Len(t, f.ucs.filters, 1)
	assert.Equal(t, "blade", f.ucs.filters[0].Search)
	assert.Equal(t, int64(1), *f.ucs.filters[0].AreaID)
	assert.Nil(t, f.ucs.filters[0].ProcessStepID)
	assert.Contains(t, text, `"truncated":false`)

	_, isError = callTool(t, f.server, "search_use_cases", map[string]any{"query": "  "})
	assert.True(t, isError)
	assert.Len(t, f.ucs.filters, 1, "blank query never reaches the service")
}

func TestGetStepGraphTool(t *testing.T) {
	f := newCatalogToolsFixture()

	text, isError := callTool(t, f.server, "get_step_graph", map[string]any{
		"focus_area_id":    1,
		"compare_area_ids": []any{2, "3"},
	})
	require.False(t, isError, text)
	assert.Equal(t, int64(1), f.graph.focus)
	assert.Equal(t, []int64{2, 3}, f.graph.compare)

	var graph models.StepGraph
	require.NoError(t, json.Unmarshal([]byte(text), &graph))
	assert.Equal(t, []string{"Manufacturing"}, graph.Categories)

	text, isError = callTool(t, f.server, "get_step_graph", map[string]any{"focus_area_id": 1, "compare_area_ids": []any{-1}})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid_parameters")

	f.graph.err = apperrors.NotFound("area %d", 1)
	text, isError = callTool(t, f.server, "get_step_graph", map[string]any{"focus_area_id": 1})
	assert.True(t, isError)
	assert.Contains(t, text, "not_found")
}

func TestCatalogTools_ScopeFailureIsProtocolError(t *testing.T) {
	f := newCatalogToolsFixture()
	f.db.err = errors.New("pool exhausted")

	text, isError := callTool(t, f.server, "list_areas", nil)
	assert.True(t, isError)
	assert.Contains(t, text, "failed to acquire database connection")
}
