package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

func TestUseCaseService_CreateWithTags(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.addArea(t, "Manufacturing")
	st := f.addStep(t, a.ID, "PS-001", "Cutting")

	uc := &models.UseCase{BIID: " UC-1 ", Name: "Blade wear", ProcessStepID: st.ID, Summary: ptr("  ")}
	err := f.useCases.Create(ctx, uc, map[models.TagCategory]string{
		models.TagCategoryITSystem: "SAP, MES",
		models.TagCategoryTag:      "ai",
	})
	require.NoError(t, err)
	assert.Equal(t, "UC-1", uc.BIID)
	assert.Nil(t, uc.Summary)

	detail, err := f.useCases.Get(ctx, uc.ID)
	require.NoError(t, err)
	assert.Equal(t, "PS-001", detail.ProcessStepBIID)
	assert.Equal(t, "Manufacturing", detail.AreaName)

	want := []*models.Tag{
		{Name: "SAP", Category: models.TagCategoryITSystem},
		{Name: "MES", Category: models.TagCategoryITSystem},
		{Name: "ai", Category: models.TagCategoryTag},
	}
	if diff := cmp.Diff(want, detail.Tags, cmpopts.IgnoreFields(models.Tag{}, "ID")); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestUseCaseService_CreateRollsBackOnTagFailure(t *testing.T) {
	f := newCatalogFixture(t)
	a := f.addArea(t, "Manufacturing")
	st := f.addStep(t, a.ID, "PS-001", "Cutting")
	f.db.failOn = func(op string) error {
		if op == "use_case_tags.replace" {
			return errInjected
		}
		return nil
	}

	err := f.useCases.Create(context.Background(), &models.UseCase{BIID: "UC-1", Name: "x", ProcessStepID: st.ID},
		map[models.TagCategory]string{models.TagCategoryTag: "ai"})
	require.ErrorIs(t, err, errInjected)
	assert.Empty(t, f.db.useCases)
	assert.Empty(t, f.db.tags)
}

func TestUseCaseService_Validation(t *testing.T) {
	f := newCatalogFixture(t)
	a := f.addArea(t, "Manufacturing")
	st := f.addStep(t, a.ID, "PS-001", "Cutting")
	f.addUseCase(t, st.ID, "UC-1", "Blade wear")

	tests := []struct {
		name     string
		uc       *models.UseCase
		sentinel error
	}{
		{"missing bi_id", &models.UseCase{Name: "x", ProcessStepID: st.ID}, apperrors.ErrValidation},
		{"missing name", &models.UseCase{BIID: "UC-2", ProcessStepID: st.ID}, apperrors.ErrValidation},
		{"missing step", &models.UseCase{BIID: "UC-2", Name: "x"}, apperrors.ErrValidation},
		{"bad priority", &models.UseCase{BIID: "UC-2", Name: "x", ProcessStepID: st.ID, Priority: ptr(0)}, apperrors.ErrValidation},
		{"duplicate bi_id", &models.UseCase{BIID: "UC-1", Name: "x", ProcessStepID: st.ID}, apperrors.ErrDuplicate},
		{"unknown step", &models.UseCase{BIID: "UC-2", Name: "x", ProcessStepID: 9999}, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.useCases.Create(context.Background(), tt.uc, nil)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestUseCaseService_UpdateField(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.addArea(t, "Manufacturing")
	st := f.addStep(t, a.ID, "PS-001", "Cutting")
	uc := f.addUseCase(t, st.ID, "UC-1", "Blade wear")

	got, err := f.useCases.UpdateField(ctx, uc.ID, "priority", json.RawMessage(`4`))
	require.NoError(t, err)
	assert.Equal(t, 4, *got.Priority)

	got, err = f.useCases.UpdateField(ctx, uc.ID, "data_types", json.RawMessage(`"sensor, image"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"sensor", "image"}, got.TagNames(models.TagCategoryDataType))

	got, err = f.useCases.UpdateField(ctx, uc.ID, "data_types", json.RawMessage(`""`))
	require.NoError(t, err)
	assert.Empty(t, got.TagNames(models.TagCategoryDataType))

	_, err = f.useCases.UpdateField(ctx, 9999, "tags", json.RawMessage(`"orphan"`))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	for _, tag := range f.db.tags {
		assert.NotEqual(t, "orphan", tag.Name, "no tag is created for a missing use case")
	}

	_, err = f.useCases.UpdateField(ctx, uc.ID, "process_step_id", json.RawMessage(`9999`))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUseCaseService_ListAndLinks(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.addArea(t, "Manufacturing")
	st := f.addStep(t, a.ID, "PS-001", "Cutting")
	uc1 := f.addUseCase(t, st.ID, "UC-1", "Blade wear")
	uc2 := f.addUseCase(t, st.ID, "UC-2", "Nesting")

	_, err := f.relevance.AddLink(ctx, models.LinkUseCaseUseCase, uc2.ID, uc1.ID, 30, nil)
	require.NoError(t, err)
	_, err = f.relevance.AddLink(ctx, models.LinkUseCaseArea, uc1.ID, a.ID, 30, nil)
	require.NoError(t, err)

	detail, err := f.useCases.Get(ctx, uc1.ID)
	require.NoError(t, err)
	assert.Len(t, detail.AreaLinks, 1)
	assert.Empty(t, detail.StepLinks)
	assert.Empty(t, detail.OutgoingLinks)
	require.Len(t, detail.IncomingLinks, 1)
	assert.Equal(t, uc2.ID, detail.IncomingLinks[0].SourceID)

	list, err := f.useCases.List(ctx, repositories.UseCaseFilter{Search: "nest"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "UC-2", list[0].BIID)
}

func TestAreaAndStepServices(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	areas := NewAreaService(f.areas, zap.NewNop())
	steps := NewProcessStepService(f.steps, zap.NewNop())

	a := &models.Area{Name: "  Manufacturing ", Description: ptr("")}
	require.NoError(t, areas.Create(ctx, a))
	assert.Equal(t, "Manufacturing", a.Name)
	assert.Nil(t, a.Description)
	assert.True(t, errors.Is(areas.Create(ctx, &models.Area{Name: "Manufacturing"}), apperrors.ErrDuplicate))
	assert.True(t, errors.Is(areas.Create(ctx, &models.Area{Name: " "}), apperrors.ErrValidation))

	updated, err := areas.UpdateField(ctx, a.ID, "description", json.RawMessage(`"Shop floor"`))
	require.NoError(t, err)
	assert.Equal(t, "Shop floor", *updated.Description)

	st := &models.ProcessStep{BIID: "PS-001", Name: "Cutting", AreaID: a.ID, Overview: ptr(" raw ")}
	require.NoError(t, steps.Create(ctx, st))
	assert.Equal(t, "raw", *st.Overview)
	assert.True(t, errors.Is(steps.Create(ctx, &models.ProcessStep{BIID: "PS-002", Name: "x"}), apperrors.ErrValidation))

	got, err := steps.UpdateField(ctx, st.ID, "llm_comment_3", json.RawMessage(`"looks fine"`))
	require.NoError(t, err)
	assert.Equal(t, "looks fine", *got.LLMComment3)
	assert.Equal(t, "Manufacturing", got.AreaName)

	list, err := areas.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].StepCount)
}
