package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// memDB is an in-memory catalog shared by the fake repositories below. It
// enforces the same uniqueness, foreign key and cascade rules as the schema.
type memDB struct {
	nextID   int64
	areas    map[int64]models.Area
	steps    map[int64]models.ProcessStep
	useCases map[int64]models.UseCase
	tags     map[int64]models.Tag
	ucTags   map[int64][]int64
	links    map[models.LinkKind]map[int64]models.RelevanceLink

	// failOn, when set, is called before every write with an operation name
	// such as "use_cases.create"; a non-nil result fails the write.
	failOn func(op string) error
	writes []string
}

func newMemDB() *memDB {
	db := &memDB{
		areas:    make(map[int64]models.Area),
		steps:    make(map[int64]models.ProcessStep),
		useCases: make(map[int64]models.UseCase),
		tags:     make(map[int64]models.Tag),
		ucTags:   make(map[int64][]int64),
		links:    make(map[models.LinkKind]map[int64]models.RelevanceLink),
	}
	for _, kind := range models.LinkKinds {
		db.links[kind] = make(map[int64]models.RelevanceLink)
	}
	return db
}

func (db *memDB) write(op string) error {
	db.writes = append(db.writes, op)
	if db.failOn != nil {
		return db.failOn(op)
	}
	return nil
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

// clone copies every table. Rows are stored by value, tag id slices are copied.
func (db *memDB) clone() *memDB {
	c := newMemDB()
	c.nextID = db.nextID
	c.failOn = db.failOn
	c.writes = db.writes
	for k, v := range db.areas {
		c.areas[k] = v
	}
	for k, v := range db.steps {
		c.steps[k] = v
	}
	for k, v := range db.useCases {
		c.useCases[k] = v
	}
	for k, v := range db.tags {
		c.tags[k] = v
	}
	for k, v := range db.ucTags {
		c.ucTags[k] = slices.Clone(v)
	}
	for kind, m := range db.links {
		for k, v := range m {
			c.links[kind][k] = v
		}
	}
	return c
}

func (db *memDB) entityExists(entity models.EntityType, id int64) bool {
	switch entity {
	case models.EntityArea:
		_, ok := db.areas[id]
		return ok
	case models.EntityProcessStep:
		_, ok := db.steps[id]
		return ok
	case models.EntityUseCase:
		_, ok := db.useCases[id]
		return ok
	}
	return false
}

// dropLinksTo removes every link with an endpoint on the deleted row.
func (db *memDB) dropLinksTo(entity models.EntityType, id int64) {
	for _, kind := range models.LinkKinds {
		info, _ := kind.Info()
		for lid, l := range db.links[kind] {
			if (info.SourceType == entity && l.SourceID == id) || (info.TargetType == entity && l.TargetID == id) {
				delete(db.links[kind], lid)
			}
		}
	}
}

func (db *memDB) deleteUseCase(id int64) {
	delete(db.useCases, id)
	delete(db.ucTags, id)
	db.dropLinksTo(models.EntityUseCase, id)
}

func (db *memDB) deleteStep(id int64) {
	for ucID, uc := range db.useCases {
		if uc.ProcessStepID == id {
			db.deleteUseCase(ucID)
		}
	}
	delete(db.steps, id)
	db.dropLinksTo(models.EntityProcessStep, id)
}

func (db *memDB) deleteArea(id int64) {
	for stepID, st := range db.steps {
		if st.AreaID == id {
			db.deleteStep(stepID)
		}
	}
	delete(db.areas, id)
	db.dropLinksTo(models.EntityArea, id)
}

func (db *memDB) area(id int64) *models.Area {
	a := db.areas[id]
	for _, st := range db.steps {
		if st.AreaID == id {
			a.StepCount++
			for _, uc := range db.useCases {
				if uc.ProcessStepID == st.ID {
					a.UseCaseCount++
				}
			}
		}
	}
	return &a
}

func (db *memDB) step(id int64) *models.ProcessStep {
	st := db.steps[id]
	st.AreaName = db.areas[st.AreaID].Name
	for _, uc := range db.useCases {
		if uc.ProcessStepID == id {
			st.UseCaseCount++
		}
	}
	return &st
}

func (db *memDB) useCase(id int64) *models.UseCase {
	uc := db.useCases[id]
	st := db.steps[uc.ProcessStepID]
	uc.ProcessStepBIID = st.BIID
	uc.ProcessStepName = st.Name
	uc.AreaID = st.AreaID
	uc.AreaName = db.areas[st.AreaID].Name
	uc.Tags = []*models.Tag{}
	for _, tagID := range db.ucTags[id] {
		t := db.tags[tagID]
		uc.Tags = append(uc.Tags, &t)
	}
	return &uc
}

func textValue(v any) (*string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case *string:
		return s, nil
	case string:
		return &s, nil
	}
	return nil, fmt.Errorf("unexpected text value %T", v)
}

func idValue(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("unexpected id value %T", v)
}

func requiredValue(column string, v any) (string, error) {
	s, err := textValue(v)
	if err != nil {
		return "", err
	}
	if s == nil || *s == "" {
		return "", apperrors.Validation("%s is required", column)
	}
	return *s, nil
}

// memTx snapshots the database on the outermost RunInTx and restores it on error.
type memTx struct {
	db        *memDB
	commits   int
	rollbacks int
}

type memTxKey struct{}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	snapshot := t.db.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		writes := t.db.writes
		*t.db = *snapshot
		t.db.writes = writes
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

type memAreas struct{ db *memDB }

var _ repositories.AreaRepository = (*memAreas)(nil)

func (r *memAreas) nameTaken(name string, except int64) bool {
	for id, a := range r.db.areas {
		if a.Name == name && id != except {
			return true
		}
	}
	return false
}

func (r *memAreas) Create(_ context.Context, area *models.Area) error {
	if err := r.db.write("areas.create"); err != nil {
		return err
	}
	if r.nameTaken(area.Name, 0) {
		return apperrors.Duplicate("area %q", area.Name)
	}
	area.ID = r.db.id()
	area.CreatedAt, area.UpdatedAt = time.Now(), time.Now()
	r.db.areas[area.ID] = *area
	return nil
}

func (r *memAreas) Update(ctx context.Context, area *models.Area) error {
	return r.UpdateColumns(ctx, area.ID, map[string]any{"name": &area.Name, "description": area.Description})
}

func (r *memAreas) UpdateColumns(_ context.Context, id int64, columns map[string]any) error {
	if err := r.db.write("areas.update"); err != nil {
		return err
	}
	a, ok := r.db.areas[id]
	if !ok {
		return apperrors.NotFound("area %d", id)
	}
	for column, v := range columns {
		var err error
		switch column {
		case "name":
			a.Name, err = requiredValue(column, v)
			if err == nil && r.nameTaken(a.Name, id) {
				err = apperrors.Duplicate("area %q", a.Name)
			}
		case "description":
			a.Description, err = textValue(v)
		default:
			err = apperrors.Validation("column %q is not editable", column)
		}
		if err != nil {
			return err
		}
	}
	a.UpdatedAt = time.Now()
	r.db.areas[id] = a
	return nil
}

func (r *memAreas) Delete(_ context.Context, id int64) error {
	if err := r.db.write("areas.delete"); err != nil {
		return err
	}
	if _, ok := r.db.areas[id]; !ok {
		return apperrors.NotFound("area %d", id)
	}
	r.db.deleteArea(id)
	return nil
}

func (r *memAreas) GetByID(_ context.Context, id int64) (*models.Area, error) {
	if _, ok := r.db.areas[id]; !ok {
		return nil, apperrors.NotFound("area %d", id)
	}
	return r.db.area(id), nil
}

func (r *memAreas) GetByNames(_ context.Context, names []string) (map[string]*models.Area, error) {
	out := make(map[string]*models.Area)
	for id, a := range r.db.areas {
		if slices.Contains(names, a.Name) {
			out[a.Name] = r.db.area(id)
		}
	}
	return out, nil
}

func (r *memAreas) List(_ context.Context) ([]*models.Area, error) {
	out := make([]*models.Area, 0, len(r.db.areas))
	for id := range r.db.areas {
		out = append(out, r.db.area(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memSteps struct{ db *memDB }

var _ repositories.ProcessStepRepository = (*memSteps)(nil)

func (r *memSteps) biIDTaken(biID string, except int64) bool {
	for id, st := range r.db.steps {
		if st.BIID == biID && id != except {
			return true
		}
	}
	return false
}

func (r *memSteps) Create(_ context.Context, step *models.ProcessStep) error {
	if err := r.db.write("process_steps.create"); err != nil {
		return err
	}
	if r.biIDTaken(step.BIID, 0) {
		return apperrors.Duplicate("process step %q", step.BIID)
	}
	if _, ok := r.db.areas[step.AreaID]; !ok {
		return apperrors.NotFound("area %d", step.AreaID)
	}
	step.ID = r.db.id()
	step.CreatedAt, step.UpdatedAt = time.Now(), time.Now()
	stored := *step
	stored.AreaName, stored.UseCaseCount = "", 0
	r.db.steps[step.ID] = stored
	return nil
}

func (r *memSteps) Update(ctx context.Context, step *models.ProcessStep) error {
	columns := map[string]any{"bi_id": &step.BIID, "name": &step.Name, "area_id": step.AreaID}
	for _, c := range models.ProcessStepTextColumns {
		columns[c] = *step.TextField(c)
	}
	return r.UpdateColumns(ctx, step.ID, columns)
}

func (r *memSteps) UpdateColumns(_ context.Context, id int64, columns map[string]any) error {
	if err := r.db.write("process_steps.update"); err != nil {
		return err
	}
	st, ok := r.db.steps[id]
	if !ok {
		return apperrors.NotFound("process step %d", id)
	}
	for column, v := range columns {
		var err error
		switch column {
		case "bi_id":
			st.BIID, err = requiredValue(column, v)
			if err == nil && r.biIDTaken(st.BIID, id) {
				err = apperrors.Duplicate("process step %q", st.BIID)
			}
		case "name":
			st.Name, err = requiredValue(column, v)
		case "area_id":
			st.AreaID, err = idValue(v)
			if _, ok := r.db.areas[st.AreaID]; err == nil && !ok {
				err = apperrors.NotFound("area %d", st.AreaID)
			}
		default:
			f := st.TextField(column)
			if f == nil {
				return apperrors.Validation("column %q is not editable", column)
			}
			*f, err = textValue(v)
		}
		if err != nil {
			return err
		}
	}
	st.UpdatedAt = time.Now()
	r.db.steps[id] = st
	return nil
}

func (r *memSteps) Delete(_ context.Context, id int64) error {
	if err := r.db.write("process_steps.delete"); err != nil {
		return err
	}
	if _, ok := r.db.steps[id]; !ok {
		return apperrors.NotFound("process step %d", id)
	}
	r.db.deleteStep(id)
	return nil
}

func (r *memSteps) GetByID(_ context.Context, id int64) (*models.ProcessStep, error) {
	if _, ok := r.db.steps[id]; !ok {
		return nil, apperrors.NotFound("process step %d", id)
	}
	return r.db.step(id), nil
}

func (r *memSteps) GetByBIIDs(_ context.Context, biIDs []string) (map[string]*models.ProcessStep, error) {
	out := make(map[string]*models.ProcessStep)
	for id, st := range r.db.steps {
		if slices.Contains(biIDs, st.BIID) {
			out[st.BIID] = r.db.step(id)
		}
	}
	return out, nil
}

func (r *memSteps) List(ctx context.Context, areaID *int64) ([]*models.ProcessStep, error) {
	var out []*models.ProcessStep
	for id, st := range r.db.steps {
		if areaID == nil || st.AreaID == *areaID {
			out = append(out, r.db.step(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BIID < out[j].BIID })
	return out, nil
}

func (r *memSteps) ListByAreas(_ context.Context, areaIDs []int64) ([]*models.ProcessStep, error) {
	var out []*models.ProcessStep
	for id, st := range r.db.steps {
		if slices.Contains(areaIDs, st.AreaID) {
			out = append(out, r.db.step(id))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AreaName != out[j].AreaName {
			return out[i].AreaName < out[j].AreaName
		}
		return out[i].BIID < out[j].BIID
	})
	return out, nil
}

type memUseCases struct{ db *memDB }

var _ repositories.UseCaseRepository = (*memUseCases)(nil)

func (r *memUseCases) biIDTaken(biID string, except int64) bool {
	for id, uc := range r.db.useCases {
		if uc.BIID == biID && id != except {
			return true
		}
	}
	return false
}

func (r *memUseCases) Create(_ context.Context, uc *models.UseCase) error {
	if err := r.db.write("use_cases.create"); err != nil {
		return err
	}
	if r.biIDTaken(uc.BIID, 0) {
		return apperrors.Duplicate("use case %q", uc.BIID)
	}
	if _, ok := r.db.steps[uc.ProcessStepID]; !ok {
		return apperrors.NotFound("process step %d", uc.ProcessStepID)
	}
	if err := validatePriority(uc.Priority); err != nil {
		return err
	}
	uc.ID = r.db.id()
	uc.CreatedAt, uc.UpdatedAt = time.Now(), time.Now()
	stored := *uc
	stored.Tags = nil
	r.db.useCases[uc.ID] = stored
	return nil
}

func (r *memUseCases) Update(ctx context.Context, uc *models.UseCase) error {
	columns := map[string]any{"bi_id": &uc.BIID, "name": &uc.Name, "process_step_id": uc.ProcessStepID, "priority": uc.Priority}
	for _, c := range models.UseCaseTextColumns {
		columns[c] = *uc.TextField(c)
	}
	return r.UpdateColumns(ctx, uc.ID, columns)
}

func (r *memUseCases) UpdateColumns(_ context.Context, id int64, columns map[string]any) error {
	if err := r.db.write("use_cases.update"); err != nil {
		return err
	}
	uc, ok := r.db.useCases[id]
	if !ok {
		return apperrors.NotFound("use case %d", id)
	}
	for column, v := range columns {
		var err error
		switch column {
		case "bi_id":
			uc.BIID, err = requiredValue(column, v)
			if err == nil && r.biIDTaken(uc.BIID, id) {
				err = apperrors.Duplicate("use case %q", uc.BIID)
			}
		case "name":
			uc.Name, err = requiredValue(column, v)
		case "process_step_id":
			uc.ProcessStepID, err = idValue(v)
			if _, ok := r.db.steps[uc.ProcessStepID]; err == nil && !ok {
				err = apperrors.NotFound("process step %d", uc.ProcessStepID)
			}
		case "priority":
			p, isInt := v.(*int)
			if !isInt && v != nil {
				err = fmt.Errorf("unexpected priority value %T", v)
				break
			}
			uc.Priority = p
			err = validatePriority(p)
		default:
			f := uc.TextField(column)
			if f == nil {
				return apperrors.Validation("column %q is not editable", column)
			}
			*f, err = textValue(v)
		}
		if err != nil {
			return err
		}
	}
	uc.UpdatedAt = time.Now()
	r.db.useCases[id] = uc
	return nil
}

func (r *memUseCases) Delete(_ context.Context, id int64) error {
	if err := r.db.write("use_cases.delete"); err != nil {
		return err
	}
	if _, ok := r.db.useCases[id]; !ok {
		return apperrors.NotFound("use case %d", id)
	}
	r.db.deleteUseCase(id)
	return nil
}

func (r *memUseCases) GetByID(_ context.Context, id int64) (*models.UseCase, error) {
	if _, ok := r.db.useCases[id]; !ok {
		return nil, apperrors.NotFound("use case %d", id)
	}
	return r.db.useCase(id), nil
}

func (r *memUseCases) GetByBIIDs(_ context.Context, biIDs []string) (map[string]*models.UseCase, error) {
	out := make(map[string]*models.UseCase)
	for id, uc := range r.db.useCases {
		if slices.Contains(biIDs, uc.BIID) {
			out[uc.BIID] = r.db.useCase(id)
		}
	}
	return out, nil
}

func (r *memUseCases) List(_ context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error) {
	var out []*models.UseCase
	for id := range r.db.useCases {
		uc := r.db.useCase(id)
		switch {
		case filter.ProcessStepID != nil && uc.ProcessStepID != *filter.ProcessStepID:
			continue
		case filter.AreaID != nil && uc.AreaID != *filter.AreaID:
			continue
		case filter.Search != "" &&
			!strings.Contains(strings.ToLower(uc.BIID+" "+uc.Name), strings.ToLower(filter.Search)):
			continue
		case filter.TagID != nil && !slices.Contains(r.db.ucTags[id], *filter.TagID):
			continue
		}
		out = append(out, uc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BIID < out[j].BIID })
	return out, nil
}

func (r *memUseCases) ReplaceTags(_ context.Context, useCaseID int64, category models.TagCategory, tagIDs []int64) error {
	if err := r.db.write("use_case_tags.replace"); err != nil {
		return err
	}
	if _, ok := r.db.useCases[useCaseID]; !ok {
		return apperrors.NotFound("use case %d", useCaseID)
	}
	var kept []int64
	for _, id := range r.db.ucTags[useCaseID] {
		if r.db.tags[id].Category != category {
			kept = append(kept, id)
		}
	}
	for _, id := range tagIDs {
		t, ok := r.db.tags[id]
		if !ok {
			return apperrors.NotFound("tag %d", id)
		}
		if t.Category != category {
			return apperrors.Validation("tag %d is not a %s tag", id, category)
		}
		if !slices.Contains(kept, id) {
			kept = append(kept, id)
		}
	}
	r.db.ucTags[useCaseID] = kept
	return nil
}

type memTags struct {
	db      *memDB
	lookups int
}

var _ repositories.TagRepository = (*memTags)(nil)

func (r *memTags) GetByNames(_ context.Context, category models.TagCategory, names []string) ([]*models.Tag, error) {
	r.lookups++
	var out []*models.Tag
	for _, t := range r.db.tags {
		if t.Category == category && slices.Contains(names, t.Name) {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *memTags) Create(_ context.Context, tag *models.Tag) error {
	if err := r.db.write("tags.create"); err != nil {
		return err
	}
	for _, t := range r.db.tags {
		if t.Category == tag.Category && t.Name == tag.Name {
			return apperrors.Duplicate("%s tag %q", tag.Category, tag.Name)
		}
	}
	tag.ID = r.db.id()
	r.db.tags[tag.ID] = *tag
	return nil
}

func (r *memTags) List(_ context.Context, category models.TagCategory) ([]*models.Tag, error) {
	var out []*models.Tag
	for _, t := range r.db.tags {
		if category == "" || t.Category == category {
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memLinks struct{ db *memDB }

var _ repositories.RelevanceRepository = (*memLinks)(nil)

func (r *memLinks) check(link *models.RelevanceLink) error {
	info, ok := link.Kind.Info()
	if !ok {
		return apperrors.Validation("unknown link kind %q", link.Kind)
	}
	if err := validateScore(link.Score); err != nil {
		return err
	}
	if info.SelfTyped() && link.SourceID == link.TargetID {
		return apperrors.SelfReference("%s", info.Table)
	}
	if !r.db.entityExists(info.SourceType, link.SourceID) {
		return apperrors.NotFound("%s %d", info.SourceType, link.SourceID)
	}
	if !r.db.entityExists(info.TargetType, link.TargetID) {
		return apperrors.NotFound("%s %d", info.TargetType, link.TargetID)
	}
	for id, l := range r.db.links[link.Kind] {
		if id != link.ID && l.SourceID == link.SourceID && l.TargetID == link.TargetID {
			return apperrors.Duplicate("%s %d -> %d", link.Kind, link.SourceID, link.TargetID)
		}
	}
	return nil
}

func (r *memLinks) Create(_ context.Context, link *models.RelevanceLink) error {
	if err := r.db.write(string(link.Kind) + ".create"); err != nil {
		return err
	}
	if err := r.check(link); err != nil {
		return err
	}
	link.ID = r.db.id()
	link.CreatedAt, link.UpdatedAt = time.Now(), time.Now()
	r.db.links[link.Kind][link.ID] = *link
	return nil
}

func (r *memLinks) Update(_ context.Context, link *models.RelevanceLink) error {
	if err := r.db.write(string(link.Kind) + ".update"); err != nil {
		return err
	}
	if _, ok := r.db.links[link.Kind][link.ID]; !ok {
		return apperrors.NotFound("%s link %d", link.Kind, link.ID)
	}
	if err := r.check(link); err != nil {
		return err
	}
	link.UpdatedAt = time.Now()
	r.db.links[link.Kind][link.ID] = *link
	return nil
}

func (r *memLinks) Delete(_ context.Context, kind models.LinkKind, id int64) error {
	if err := r.db.write(string(kind) + ".delete"); err != nil {
		return err
	}
	if _, ok := r.db.links[kind][id]; !ok {
		return apperrors.NotFound("%s link %d", kind, id)
	}
	delete(r.db.links[kind], id)
	return nil
}

func (r *memLinks) DeleteAll(_ context.Context, kind models.LinkKind) (int64, error) {
	if err := r.db.write(string(kind) + ".delete_all"); err != nil {
		return 0, err
	}
	n := int64(len(r.db.links[kind]))
	r.db.links[kind] = make(map[int64]models.RelevanceLink)
	return n, nil
}

func (r *memLinks) GetByID(_ context.Context, kind models.LinkKind, id int64) (*models.RelevanceLink, error) {
	l, ok := r.db.links[kind][id]
	if !ok {
		return nil, apperrors.NotFound("%s link %d", kind, id)
	}
	return &l, nil
}

func (r *memLinks) GetByPair(_ context.Context, kind models.LinkKind, sourceID, targetID int64) (*models.RelevanceLink, error) {
	for _, l := range r.db.links[kind] {
		if l.SourceID == sourceID && l.TargetID == targetID {
			return &l, nil
		}
	}
	return nil, nil
}

func (r *memLinks) Query(_ context.Context, filter models.LinkFilter) ([]*models.RelevanceLink, error) {
	var out []*models.RelevanceLink
	for _, l := range r.db.links[filter.Kind] {
		switch {
		case filter.SourceID != nil && l.SourceID != *filter.SourceID:
			continue
		case filter.TargetID != nil && l.TargetID != *filter.TargetID:
			continue
		case filter.MinScore != nil && l.Score < *filter.MinScore:
			continue
		case filter.MaxScore != nil && l.Score > *filter.MaxScore:
			continue
		}
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memLinks) EntityExists(_ context.Context, entity models.EntityType, id int64) (bool, error) {
	return r.db.entityExists(entity, id), nil
}

// catalogFixture wires every catalog service to one memDB.
type catalogFixture struct {
	db    *memDB
	tx    *memTx
	areas *memAreas
	steps *memSteps
	ucs   *memUseCases
	tags  *memTags
	links *memLinks

	tagNormalizer TagNormalizer
	imports       ImportService
	relevance     RelevanceService
	graph         GraphService
	useCases      UseCaseService
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	db := newMemDB()
	f := &catalogFixture{
		db:    db,
		tx:    &memTx{db: db},
		areas: &memAreas{db: db},
		steps: &memSteps{db: db},
		ucs:   &memUseCases{db: db},
		tags:  &memTags{db: db},
		links: &memLinks{db: db},
	}
	logger := zap.NewNop()
	f.tagNormalizer = NewTagNormalizer(f.tags, logger)
	f.imports = NewImportService(&ImportServiceDeps{
		AreaRepo:        f.areas,
		ProcessStepRepo: f.steps,
		UseCaseRepo:     f.ucs,
		RelevanceRepo:   f.links,
		Tags:            f.tagNormalizer,
		Tx:              f.tx,
		Logger:          logger,
	})
	f.relevance = NewRelevanceService(f.links, f.tx, logger)
	f.graph = NewGraphService(f.areas, f.steps, f.links, logger)
	f.useCases = NewUseCaseService(f.ucs, f.links, f.tagNormalizer, f.tx, logger)
	return f
}

func (f *catalogFixture) addArea(t *testing.T, name string) *models.Area {
	t.Helper()
	a := &models.Area{Name: name}
	if err := f.areas.Create(context.Background(), a); err != nil {
		t.Fatalf("create area %s: %v", name, err)
	}
	return a
}

func (f *catalogFixture) addStep(t *testing.T, areaID int64, biID, name string) *models.ProcessStep {
	t.Helper()
	st := &models.ProcessStep{AreaID: areaID, BIID: biID, Name: name}
	if err := f.steps.Create(context.Background(), st); err != nil {
		t.Fatalf("create step %s: %v", biID, err)
	}
	return st
}

func (f *catalogFixture) addUseCase(t *testing.T, stepID int64, biID, name string) *models.UseCase {
	t.Helper()
	uc := &models.UseCase{ProcessStepID: stepID, BIID: biID, Name: name}
	if err := f.ucs.Create(context.Background(), uc); err != nil {
		t.Fatalf("create use case %s: %v", biID, err)
	}
	return uc
}

var errInjected = errors.New("injected write failure")

func ptr[T any](v T) *T {
	return &v
}
