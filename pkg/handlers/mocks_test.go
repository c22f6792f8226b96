package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// ============================================================================
// Helpers
// ============================================================================

type apiBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) apiBody {
	t.Helper()
	var body apiBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	body := decodeBody(t, rec)
	require.True(t, body.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(body.Data, v))
}

// asUser attaches claims for the given user to the request.
func asUser(req *http.Request, userID int64) *http.Request {
	claims := &auth.Claims{Username: "tester"}
	claims.Subject = strconv.FormatInt(userID, 10)
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// ============================================================================
// Mock Implementations
// ============================================================================

// mockAreaServiceForHandler implements services.AreaService for handler tests.
type mockAreaServiceForHandler struct {
	areas      []*models.Area
	area       *models.Area
	err        error
	created    *models.Area
	updated    *models.Area
	field      string
	fieldValue json.RawMessage
	deletedID  int64
}

func (m *mockAreaServiceForHandler) Create(ctx context.Context, area *models.Area) error {
	if m.err != nil {
		return m.err
	}
	area.ID = 1
	m.created = area
	return nil
}
func (m *mockAreaServiceForHandler) Get(ctx context.Context, id int64) (*models.Area, error) {
	return m.area, m.err
}
func (m *mockAreaServiceForHandler) List(ctx context.Context) ([]*models.Area, error) {
	return m.areas, m.err
}
func (m *mockAreaServiceForHandler) Update(ctx context.Context, area *models.Area) error {
	m.updated = area
	return m.err
}
func (m *mockAreaServiceForHandler) UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.Area, error) {
	m.field, m.fieldValue = field, raw
	return m.area, m.err
}
func (m *mockAreaServiceForHandler) Delete(ctx context.Context, id int64) error {
	m.deletedID = id
	return m.err
}

// mockProcessStepServiceForHandler implements services.ProcessStepService for handler tests.
type mockProcessStepServiceForHandler struct {
	steps      []*models.ProcessStep
	listAreaID *int64
	created    *models.ProcessStep
	err        error
}

func (m *mockProcessStepServiceForHandler) Create(ctx context.Context, step *models.ProcessStep) error {
	step.ID = 5
	m.created = step
	return m.err
}
func (m *mockProcessStepServiceForHandler) Get(ctx context.Context, id int64) (*models.ProcessStep, error) {
	return &models.ProcessStep{ID: id}, m.err
}
func (m *mockProcessStepServiceForHandler) List(ctx context.Context, areaID *int64) ([]*models.ProcessStep, error) {
	m.listAreaID = areaID
	return m.steps, m.err
}
func (m *mockProcessStepServiceForHandler) Update(ctx context.Context, step *models.ProcessStep) error {
	return m.err
}
func (m *mockProcessStepServiceForHandler) UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.ProcessStep, error) {
	return &models.ProcessStep{ID: id}, m.err
}
func (m *mockProcessStepServiceForHandler) Delete(ctx context.Context, id int64) error {
	return m.err
}

// mockAnalysisServiceForHandler implements services.AnalysisService for handler tests.
type mockAnalysisServiceForHandler struct {
	userID int64
	req    services.AnalysisRequest
	err    error
}

func (m *mockAnalysisServiceForHandler) AnalyzeProcessStep(ctx context.Context, userID, stepID int64, req services.AnalysisRequest) (*models.ProcessStep, error) {
	m.userID, m.req = userID, req
	if m.err != nil {
		return nil, m.err
	}
	comment := "looks fine"
	return &models.ProcessStep{ID: stepID, LLMComment2: &comment}, nil
}

// mockUseCaseServiceForHandler implements services.UseCaseService for handler tests.
type mockUseCaseServiceForHandler struct {
	filter  repositories.UseCaseFilter
	saved   *models.UseCase
	tags    map[models.TagCategory]string
	detail  *models.UseCaseDetail
	listErr error
	err     error
}

func (m *mockUseCaseServiceForHandler) Create(ctx context.Context, uc *models.UseCase, tags map[models.TagCategory]string) error {
	if m.err != nil {
		return m.err
	}
	uc.ID = 9
	m.saved, m.tags = uc, tags
	return nil
}
func (m *mockUseCaseServiceForHandler) Get(ctx context.Context, id int64) (*models.UseCaseDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.detail != nil {
		return m.detail, nil
	}
	return &models.UseCaseDetail{UseCase: &models.UseCase{ID: id}}, nil
}
func (m *mockUseCaseServiceForHandler) List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error) {
	m.filter = filter
	return []*models.UseCase{{ID: 1, BIID: "UC-1"}}, m.listErr
}
func (m *mockUseCaseServiceForHandler) Update(ctx context.Context, uc *models.UseCase, tags map[models.TagCategory]string) error {
	m.saved, m.tags = uc, tags
	return m.err
}
func (m *mockUseCaseServiceForHandler) UpdateField(ctx context.Context, id int64, field string, raw json.RawMessage) (*models.UseCase, error) {
	return &models.UseCase{ID: id}, m.err
}
func (m *mockUseCaseServiceForHandler) Delete(ctx context.Context, id int64) error {
	return m.err
}

// mockRelevanceServiceForHandler implements services.RelevanceService for handler tests.
type mockRelevanceServiceForHandler struct {
	added   int
	filter  models.LinkFilter
	update  models.LinkUpdate
	deleted int64
	err     error
}

func (m *mockRelevanceServiceForHandler) AddLink(ctx context.Context, kind models.LinkKind, sourceID, targetID int64, score int, content *string) (*models.RelevanceLink, error) {
	m.added++
	if m.err != nil {
		return nil, m.err
	}
	return &models.RelevanceLink{ID: 1, Kind: kind, SourceID: sourceID, TargetID: targetID, Score: score, Content: content}, nil
}
func (m *mockRelevanceServiceForHandler) UpdateLink(ctx context.Context, kind models.LinkKind, id int64, update models.LinkUpdate) (*models.RelevanceLink, error) {
	m.update = update
	if m.err != nil {
		return nil, m.err
	}
	return &models.RelevanceLink{ID: id, Kind: kind}, nil
}
func (m *mockRelevanceServiceForHandler) DeleteLink(ctx context.Context, kind models.LinkKind, id int64) error {
	return m.err
}
func (m *mockRelevanceServiceForHandler) DeleteAll(ctx context.Context, kind models.LinkKind) (int64, error) {
	return m.deleted, m.err
}
func (m *mockRelevanceServiceForHandler) QueryLinks(ctx context.Context, filter models.LinkFilter) ([]*models.RelevanceLink, error) {
	m.filter = filter
	return []*models.RelevanceLink{}, m.err
}

// mockGraphServiceForHandler implements services.GraphService for handler tests.
type mockGraphServiceForHandler struct {
	focus   int64
	compare []int64
	err     error
}

func (m *mockGraphServiceForHandler) StepGraph(ctx context.Context, focusAreaID int64, comparisonAreaIDs []int64) (*models.StepGraph, error) {
	m.focus, m.compare = focusAreaID, comparisonAreaIDs
	if m.err != nil {
		return nil, m.err
	}
	return &models.StepGraph{}, nil
}

// mockImportServiceForHandler implements services.ImportService for handler tests.
// Plan stages every row as an add.
type mockImportServiceForHandler struct {
	rows      []jsonutil.Object
	overrides map[int]models.PlanAction
	applied   *models.ImportPlan
	applyErr  error
	imported  bool
	planned   int
}

func (m *mockImportServiceForHandler) Plan(ctx context.Context, kind models.ImportKind, rows []jsonutil.Object) (*models.ImportPlan, error) {
	m.rows = rows
	m.planned++
	plan := &models.ImportPlan{ID: "plan-" + strconv.Itoa(m.planned), Kind: kind}
	for i := range rows {
		plan.Items = append(plan.Items, &models.PlanItem{Index: i, Action: models.ActionAdd})
	}
	return plan, nil
}
func (m *mockImportServiceForHandler) Apply(ctx context.Context, plan *models.ImportPlan, overrides map[int]models.PlanAction) (*models.ImportResult, error) {
	m.applied, m.overrides = plan, overrides
	result := models.NewImportResult(plan.Kind)
	if m.applyErr != nil {
		result.Message = "Import rolled back"
		return result, m.applyErr
	}
	result.Success = true
	result.AddedCount = plan.Pending()
	return result, nil
}
func (m *mockImportServiceForHandler) Import(ctx context.Context, kind models.ImportKind, rows []jsonutil.Object) (*models.ImportResult, error) {
	m.imported = true
	plan, _ := m.Plan(ctx, kind, rows)
	return m.Apply(ctx, plan, nil)
}
func (m *mockImportServiceForHandler) Summarize(plan *models.ImportPlan, overrides map[int]models.PlanAction) (*models.ImportResult, error) {
	result := models.NewImportResult(plan.Kind)
	result.Success = true
	result.Preview = true
	result.PlanID = plan.ID
	result.AddedCount = plan.Pending()
	return result, nil
}

// mockImportSessions implements ImportSessions without cookies.
type mockImportSessions struct {
	pending string
}

func (m *mockImportSessions) PendingImport(r *http.Request) string { return m.pending }
func (m *mockImportSessions) SetPendingImport(w http.ResponseWriter, r *http.Request, planID string) error {
	m.pending = planID
	return nil
}

// mockTransferServiceForHandler implements services.TransferService for handler tests.
type mockTransferServiceForHandler struct {
	doc           *models.ExportDocument
	clearExisting bool
	err           error
}

func (m *mockTransferServiceForHandler) Export(ctx context.Context) (*models.ExportDocument, error) {
	return &models.ExportDocument{
		Metadata: models.ExportMetadata{ExportDate: "2026-01-01T00:00:00Z", Version: "test"},
		Data:     map[string][]map[string]any{models.TableAreas: {{"id": 1, "name": "Manufacturing"}}},
	}, nil
}
func (m *mockTransferServiceForHandler) Import(ctx context.Context, doc *models.ExportDocument, clearExisting bool) (*models.TransferResult, error) {
	m.doc, m.clearExisting = doc, clearExisting
	if m.err != nil {
		return &models.TransferResult{Message: "Import rolled back", ClearExisting: clearExisting}, m.err
	}
	return &models.TransferResult{Success: true, ClearExisting: clearExisting, Message: "Restored"}, nil
}

// mockUserServiceForHandler implements services.UserService for handler tests.
type mockUserServiceForHandler struct {
	user        *models.User
	password    string
	changeErr   error
	changedFrom string
}

func (m *mockUserServiceForHandler) Create(ctx context.Context, username, password string) (*models.User, error) {
	return m.user, nil
}
func (m *mockUserServiceForHandler) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if m.user == nil || username != m.user.Username || password != m.password {
		return nil, apperrors.ErrUnauthorized
	}
	return m.user, nil
}
func (m *mockUserServiceForHandler) Get(ctx context.Context, id int64) (*models.User, error) {
	return m.user, nil
}
func (m *mockUserServiceForHandler) ChangePassword(ctx context.Context, id int64, current, next string) error {
	m.changedFrom = current
	return m.changeErr
}

// mockLLMSettingsServiceForHandler implements services.LLMSettingsService for handler tests.
type mockLLMSettingsServiceForHandler struct {
	userID int64
	update *services.LLMSettingsUpdate
}

func (m *mockLLMSettingsServiceForHandler) Get(ctx context.Context, userID int64) (models.LLMSettingsView, error) {
	m.userID = userID
	return models.LLMSettingsView{}, nil
}
func (m *mockLLMSettingsServiceForHandler) Update(ctx context.Context, userID int64, update *services.LLMSettingsUpdate) (models.LLMSettingsView, error) {
	m.userID, m.update = userID, update
	return models.LLMSettingsView{}, nil
}
func (m *mockLLMSettingsServiceForHandler) Resolve(ctx context.Context, userID int64) (*models.LLMSettings, error) {
	return nil, nil
}

// mockDashboardServiceForHandler implements services.DashboardService for handler tests.
type mockDashboardServiceForHandler struct {
	err error
}

func (m *mockDashboardServiceForHandler) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.DashboardSummary{}, nil
}
