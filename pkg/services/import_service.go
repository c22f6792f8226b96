package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// ImportService reconciles uploaded JSON collections against the catalog.
// Every kind goes through the same two phases: Plan computes the per-row
// decision without writing, Apply writes a plan in one transaction.
type ImportService interface {
	// Plan classifies every row as add, update or skip. It only reads.
	Plan(ctx context.Context, kind models.ImportKind, rows []jsonutil.Object) (*models.ImportPlan, error)

	// Apply writes the plan's adds and updates in one transaction.
	// overrides maps a row index to skip or to its proposed action; anything else is rejected.
	// On failure nothing is written and the returned result has Success=false.
	Apply(ctx context.Context, plan *models.ImportPlan, overrides map[int]models.PlanAction) (*models.ImportResult, error)

	// Import plans and applies rows in one step.
	Import(ctx context.Context, kind models.ImportKind, rows []jsonutil.Object) (*models.ImportResult, error)

	// Summarize reports what applying the plan would do, without writing.
	Summarize(plan *models.ImportPlan, overrides map[int]models.PlanAction) (*models.ImportResult, error)
}

// ImportServiceDeps contains dependencies for ImportService.
type ImportServiceDeps struct {
	AreaRepo        repositories.AreaRepository
	ProcessStepRepo repositories.ProcessStepRepository
	UseCaseRepo     repositories.UseCaseRepository
	RelevanceRepo   repositories.RelevanceRepository
	Tags            TagNormalizer
	Tx              database.TxRunner
	Logger          *zap.Logger
}

type importService struct {
	areaRepo repositories.AreaRepository
	stepRepo repositories.ProcessStepRepository
	ucRepo   repositories.UseCaseRepository
	linkRepo repositories.RelevanceRepository
	tags     TagNormalizer
	tx       database.TxRunner
	logger   *zap.Logger
}

// NewImportService creates an ImportService.
func NewImportService(deps *ImportServiceDeps) ImportService {
	return &importService{
		areaRepo: deps.AreaRepo,
		stepRepo: deps.ProcessStepRepo,
		ucRepo:   deps.UseCaseRepo,
		linkRepo: deps.RelevanceRepo,
		tags:     deps.Tags,
		tx:       deps.Tx,
		logger:   deps.Logger.Named("import"),
	}
}

var _ ImportService = (*importService)(nil)

func specFor(kind models.ImportKind) (*importSpec, error) {
	spec, ok := importSpecs[kind]
	if !ok {
		return nil, apperrors.Validation("unknown import kind %q", kind)
	}
	return spec, nil
}

// storedRow is the comparable state of an existing catalog row.
type storedRow struct {
	id        int64
	parentID  int64
	parentKey string
	values    map[string]*string
	priority  *int
	tags      map[models.TagCategory][]string
	score     int
}

// importLookups holds every natural key a plan needs, fetched once per plan.
type importLookups struct {
	ids    map[models.EntityType]map[string]int64
	stored map[string]*storedRow
	links  map[[2]int64]*storedRow
}

func (l *importLookups) id(entity models.EntityType, key string) (int64, bool) {
	id, ok := l.ids[entity][key]
	return id, ok
}

func (s *importService) Plan(ctx context.Context, kind models.ImportKind, rows []jsonutil.Object) (*models.ImportPlan, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	plan := &models.ImportPlan{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: start.UTC(),
		Items:     make([]*models.PlanItem, len(rows)),
	}

	parsed := make([]*importRow, len(rows))
	for i, obj := range rows {
		item := &models.PlanItem{Index: i}
		plan.Items[i] = item

		row, err := spec.parseRow(obj)
		if err != nil {
			item.Action = models.ActionSkip
			item.Reason = models.SkipInvalidFormat
			item.Detail = err.Error()
			item.Key = partialKey(spec, obj)
			continue
		}
		item.Key = row.key
		parsed[i] = row
	}

	lookups, err := s.loadLookups(ctx, spec, parsed)
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]string]bool)
	for i, row := range parsed {
		if row == nil {
			continue
		}
		planRow(spec, lookups, row, plan.Items[i], seen)
	}

	metrics.ImportDuration.WithLabelValues(string(kind), "plan").Observe(time.Since(start).Seconds())
	s.logger.Debug("Planned import",
		zap.String("kind", string(kind)),
		zap.Int("rows", len(rows)),
		zap.Int("pending", plan.Pending()))
	return plan, nil
}

// partialKey recovers whatever natural key an invalid row carries, for reporting.
func partialKey(spec *importSpec, obj jsonutil.Object) string {
	if obj == nil {
		return ""
	}
	if spec.isLink() {
		src, _ := jsonutil.StrictString(obj[spec.source.field])
		tgt, _ := jsonutil.StrictString(obj[spec.target.field])
		if src == "" && tgt == "" {
			return ""
		}
		return linkKey(src, tgt)
	}
	key, _ := jsonutil.StrictString(obj[spec.keyField])
	return key
}

func (s *importService) loadLookups(ctx context.Context, spec *importSpec, rows []*importRow) (*importLookups, error) {
	keys := make(map[models.EntityType][]string)
	for _, row := range rows {
		if row == nil {
			continue
		}
		if spec.isLink() {
			keys[spec.source.entity] = append(keys[spec.source.entity], row.sourceKey)
			keys[spec.target.entity] = append(keys[spec.target.entity], row.targetKey)
			continue
		}
		keys[spec.entity] = append(keys[spec.entity], row.key)
		if spec.parent != nil {
			keys[spec.parent.entity] = append(keys[spec.parent.entity], row.parentKey)
		}
	}

	l := &importLookups{
		ids:    make(map[models.EntityType]map[string]int64),
		stored: make(map[string]*storedRow),
	}

	for entity, names := range keys {
		ids := make(map[string]int64)
		l.ids[entity] = ids
		if len(names) == 0 {
			continue
		}
		switch entity {
		case models.EntityArea:
			found, err := s.areaRepo.GetByNames(ctx, names)
			if err != nil {
				return nil, fmt.Errorf("failed to look up areas: %w", err)
			}
			for key, a := range found {
				ids[key] = a.ID
				if spec.entity == entity {
					l.stored[key] = storedArea(a)
				}
			}
		case models.EntityProcessStep:
			found, err := s.stepRepo.GetByBIIDs(ctx, names)
			if err != nil {
				return nil, fmt.Errorf("failed to look up process steps: %w", err)
			}
			for key, st := range found {
				ids[key] = st.ID
				if spec.entity == entity {
					l.stored[key] = storedProcessStep(st)
				}
			}
		case models.EntityUseCase:
			found, err := s.ucRepo.GetByBIIDs(ctx, names)
			if err != nil {
				return nil, fmt.Errorf("failed to look up use cases: %w", err)
			}
			for key, uc := range found {
				ids[key] = uc.ID
				if spec.entity == entity {
					l.stored[key] = storedUseCase(uc)
				}
			}
		}
	}

	if spec.isLink() {
		existing, err := s.linkRepo.Query(ctx, models.LinkFilter{Kind: spec.link})
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s links: %w", spec.link, err)
		}
		l.links = make(map[[2]int64]*storedRow, len(existing))
		for _, link := range existing {
			l.links[[2]int64{link.SourceID, link.TargetID}] = &storedRow{
				id:     link.ID,
				values: map[string]*string{linkContentField: link.Content},
				score:  link.Score,
			}
		}
	}

	return l, nil
}

func storedArea(a *models.Area) *storedRow {
	return &storedRow{
		id:     a.ID,
		values: map[string]*string{"name": &a.Name, "description": a.Description},
	}
}

func storedProcessStep(st *models.ProcessStep) *storedRow {
	r := &storedRow{
		id:        st.ID,
		parentID:  st.AreaID,
		parentKey: st.AreaName,
		values:    map[string]*string{"name": &st.Name},
	}
	for _, c := range models.ProcessStepTextColumns {
		r.values[c] = *st.TextField(c)
	}
	return r
}

func storedUseCase(uc *models.UseCase) *storedRow {
	r := &storedRow{
		id:        uc.ID,
		parentID:  uc.ProcessStepID,
		parentKey: uc.ProcessStepBIID,
		values:    map[string]*string{"name": &uc.Name},
		priority:  uc.Priority,
		tags:      make(map[models.TagCategory][]string),
	}
	for _, c := range models.UseCaseTextColumns {
		r.values[c] = *uc.TextField(c)
	}
	for _, category := range models.TagCategories {
		r.tags[category] = uc.TagNames(category)
	}
	return r
}

// planRow decides one validated row. Checks run in a fixed order: parents,
// self links, repeats within the file, then the diff against the store.
func planRow(spec *importSpec, l *importLookups, row *importRow, item *models.PlanItem, seen map[[2]string]bool) {
	skip := func(reason models.SkipReason, detail string) {
		item.Action = models.ActionSkip
		item.Reason = reason
		item.Detail = detail
	}

	if spec.isLink() {
		srcID, srcOK := l.id(spec.source.entity, row.sourceKey)
		tgtID, tgtOK := l.id(spec.target.entity, row.targetKey)
		switch {
		case !srcOK:
			item.MissingKeys = []string{row.sourceKey}
			if !tgtOK && spec.target.entity == spec.source.entity && row.targetKey != row.sourceKey {
				item.MissingKeys = append(item.MissingKeys, row.targetKey)
			}
			skip(models.MissingParentReason(spec.source.entity), fmt.Sprintf("%s %q not found", spec.source.field, row.sourceKey))
			return
		case !tgtOK:
			item.MissingKeys = []string{row.targetKey}
			skip(models.MissingParentReason(spec.target.entity), fmt.Sprintf("%s %q not found", spec.target.field, row.targetKey))
			return
		}
		item.SourceID, item.TargetID = srcID, tgtID

		if info, _ := spec.link.Info(); info.SelfTyped() && row.sourceKey == row.targetKey {
			skip(models.SkipSelfLink, "source and target are the same")
			return
		}
	} else if spec.parent != nil {
		parentID, ok := l.id(spec.parent.entity, row.parentKey)
		if !ok {
			item.MissingKeys = []string{row.parentKey}
			skip(models.MissingParentReason(spec.parent.entity), fmt.Sprintf("%s %q not found", spec.parent.field, row.parentKey))
			return
		}
		item.ParentID = parentID
	}

	if seen[row.identity()] {
		skip(models.SkipDuplicateInFile, "already seen earlier in the file")
		return
	}
	seen[row.identity()] = true

	item.Values = row.values
	if spec.isLink() {
		score := row.score
		item.Score = &score
	}
	if row.hasPriority {
		item.Priority = row.priority
	}
	if len(row.tagSets) > 0 {
		item.TagSets = row.tagSets
	}

	var stored *storedRow
	if spec.isLink() {
		stored = l.links[[2]int64{item.SourceID, item.TargetID}]
	} else {
		stored = l.stored[row.key]
	}
	if stored == nil {
		item.Action = models.ActionAdd
		return
	}

	item.ExistingID = stored.id
	item.Changes = diffRow(spec, row, item, stored)
	if len(item.Changes) == 0 {
		skip(models.SkipNoChange, "")
		return
	}
	item.Action = models.ActionUpdate
}

// diffRow lists the fields the row would change. Fields absent from the row are left alone.
func diffRow(spec *importSpec, row *importRow, item *models.PlanItem, stored *storedRow) []models.FieldChange {
	var changes []models.FieldChange

	fields := append(append([]string{}, spec.required...), spec.text...)
	for _, f := range fields {
		v, ok := row.values[f]
		if !ok {
			continue
		}
		if !sameText(stored.values[f], v) {
			changes = append(changes, models.FieldChange{Field: f, Old: normalizeText(stored.values[f]), New: v})
		}
	}

	if spec.parent != nil && item.ParentID != stored.parentID {
		oldKey, newKey := stored.parentKey, row.parentKey
		changes = append(changes, models.FieldChange{Field: spec.parent.field, Old: &oldKey, New: &newKey})
	}

	if spec.priority && row.hasPriority && !sameInt(stored.priority, row.priority) {
		changes = append(changes, models.FieldChange{
			Field: models.FieldPriority,
			Old:   formatInt(stored.priority),
			New:   formatInt(row.priority),
		})
	}

	if spec.tagged {
		for _, category := range models.TagCategories {
			tagString, ok := row.tagSets[category]
			if !ok || sameTagSet(stored.tags[category], tagString) {
				continue
			}
			changes = append(changes, models.FieldChange{
				Field: category.ImportKey(),
				Old:   joinTags(stored.tags[category]),
				New:   joinTags(SplitTags(tagString)),
			})
		}
	}

	if spec.isLink() && row.score != stored.score {
		oldScore, newScore := stored.score, row.score
		changes = append(changes, models.FieldChange{
			Field: models.FieldScore,
			Old:   formatInt(&oldScore),
			New:   formatInt(&newScore),
		})
	}

	return changes
}

// resolveActions applies overrides to the plan's proposed actions.
func resolveActions(plan *models.ImportPlan, overrides map[int]models.PlanAction) ([]models.PlanAction, error) {
	actions := make([]models.PlanAction, len(plan.Items))
	position := make(map[int]int, len(plan.Items))
	for i, it := range plan.Items {
		actions[i] = it.Action
		position[it.Index] = i
	}

	for index, action := range overrides {
		i, ok := position[index]
		if !ok {
			return nil, apperrors.Validation("override for unknown row %d", index)
		}
		proposed := plan.Items[i].Action
		if action != models.ActionSkip && action != proposed {
			return nil, apperrors.Validation("row %d cannot change from %s to %s", index, proposed, action)
		}
		actions[i] = action
	}
	return actions, nil
}

func (s *importService) Summarize(plan *models.ImportPlan, overrides map[int]models.PlanAction) (*models.ImportResult, error) {
	spec, err := specFor(plan.Kind)
	if err != nil {
		return nil, err
	}
	actions, err := resolveActions(plan, overrides)
	if err != nil {
		return nil, err
	}

	result := tally(plan, actions)
	result.Success = true
	result.Preview = true
	result.PlanID = plan.ID
	result.Message = fmt.Sprintf("Preview of %s: %d to add, %d to update, %d skipped",
		inflection.Plural(spec.label()), result.AddedCount, result.UpdatedCount, result.SkippedCount)
	return result, nil
}

func tally(plan *models.ImportPlan, actions []models.PlanAction) *models.ImportResult {
	result := models.NewImportResult(plan.Kind)
	for i, it := range plan.Items {
		switch actions[i] {
		case models.ActionAdd:
			result.AddedCount++
		case models.ActionUpdate:
			result.UpdatedCount++
		default:
			if it.Action != models.ActionSkip {
				overridden := *it
				overridden.Reason = models.SkipOverride
				overridden.Detail = fmt.Sprintf("proposed %s skipped", it.Action)
				result.RecordSkip(&overridden)
				continue
			}
			result.RecordSkip(it)
		}
	}
	return result
}

func (s *importService) Apply(ctx context.Context, plan *models.ImportPlan, overrides map[int]models.PlanAction) (*models.ImportResult, error) {
	spec, err := specFor(plan.Kind)
	if err != nil {
		return nil, err
	}
	actions, err := resolveActions(plan, overrides)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cache := NewTagCache()
		for i, it := range plan.Items {
			var err error
			switch actions[i] {
			case models.ActionAdd:
				err = s.add(ctx, spec, it, cache)
			case models.ActionUpdate:
				err = s.update(ctx, spec, it, cache)
			}
			if err != nil {
				return fmt.Errorf("row %d (%s): %w", it.Index, it.Key, err)
			}
		}
		return nil
	})
	metrics.ImportDuration.WithLabelValues(string(plan.Kind), "apply").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ImportsTotal.WithLabelValues(string(plan.Kind), "failure").Inc()
		s.logger.Error("Import rolled back",
			zap.String("kind", string(plan.Kind)),
			zap.String("plan_id", plan.ID),
			zap.Error(err))
		failed := models.NewImportResult(plan.Kind)
		failed.Message = fmt.Sprintf("Import of %s failed and was rolled back: %v", inflection.Plural(spec.label()), err)
		return failed, err
	}

	result := tally(plan, actions)
	result.Success = true
	result.Message = fmt.Sprintf("Imported %s: %d added, %d updated, %d skipped",
		inflection.Plural(spec.label()), result.AddedCount, result.UpdatedCount, result.SkippedCount)

	metrics.ImportsTotal.WithLabelValues(string(plan.Kind), "success").Inc()
	for i, it := range plan.Items {
		outcome := string(actions[i])
		if actions[i] == models.ActionSkip {
			outcome = string(it.Reason)
			if it.Action != models.ActionSkip {
				outcome = string(models.SkipOverride)
			}
		}
		metrics.ImportRowsTotal.WithLabelValues(string(plan.Kind), outcome).Inc()
	}

	s.logger.Info("Applied import",
		zap.String("kind", string(plan.Kind)),
		zap.String("plan_id", plan.ID),
		zap.Int("added", result.AddedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount))
	return result, nil
}

func (s *importService) Import(ctx context.Context, kind models.ImportKind, rows []jsonutil.Object) (*models.ImportResult, error) {
	var result *models.ImportResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		plan, err := s.Plan(ctx, kind, rows)
		if err != nil {
			return err
		}
		result, err = s.Apply(ctx, plan, nil)
		return err
	})
	return result, err
}

func (s *importService) add(ctx context.Context, spec *importSpec, it *models.PlanItem, cache *TagCache) error {
	if spec.isLink() {
		return s.linkRepo.Create(ctx, &models.RelevanceLink{
			Kind:     spec.link,
			SourceID: it.SourceID,
			TargetID: it.TargetID,
			Score:    *it.Score,
			Content:  it.Values[linkContentField],
		})
	}

	switch spec.entity {
	case models.EntityArea:
		return s.areaRepo.Create(ctx, &models.Area{Name: it.Key, Description: it.Values["description"]})

	case models.EntityProcessStep:
		st := &models.ProcessStep{BIID: it.Key, Name: derefText(it.Values["name"]), AreaID: it.ParentID}
		for _, c := range spec.text {
			if v, ok := it.Values[c]; ok {
				*st.TextField(c) = v
			}
		}
		return s.stepRepo.Create(ctx, st)

	case models.EntityUseCase:
		uc := &models.UseCase{BIID: it.Key, Name: derefText(it.Values["name"]), ProcessStepID: it.ParentID, Priority: it.Priority}
		for _, c := range spec.text {
			if v, ok := it.Values[c]; ok {
				*uc.TextField(c) = v
			}
		}
		if err := s.ucRepo.Create(ctx, uc); err != nil {
			return err
		}
		for _, category := range models.TagCategories {
			if tagString, ok := it.TagSets[category]; ok {
				if err := s.replaceTags(ctx, uc.ID, category, tagString, cache); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return fmt.Errorf("no writer for %s", spec.kind)
}

func (s *importService) update(ctx context.Context, spec *importSpec, it *models.PlanItem, cache *TagCache) error {
	if spec.isLink() {
		link, err := s.linkRepo.GetByID(ctx, spec.link, it.ExistingID)
		if err != nil {
			return err
		}
		for _, c := range it.Changes {
			switch c.Field {
			case models.FieldScore:
				link.Score = *it.Score
			case linkContentField:
				link.Content = it.Values[linkContentField]
			}
		}
		return s.linkRepo.Update(ctx, link)
	}

	columns := make(map[string]any)
	for _, c := range it.Changes {
		if spec.parent != nil && c.Field == spec.parent.field {
			columns[spec.parent.column] = it.ParentID
			continue
		}
		if c.Field == models.FieldPriority {
			columns["priority"] = it.Priority
			continue
		}
		if category, ok := tagCategoryForKey(c.Field); ok && spec.tagged {
			if err := s.replaceTags(ctx, it.ExistingID, category, it.TagSets[category], cache); err != nil {
				return err
			}
			continue
		}
		columns[c.Field] = it.Values[c.Field]
	}
	if len(columns) == 0 {
		return nil
	}

	switch spec.entity {
	case models.EntityArea:
		return s.areaRepo.UpdateColumns(ctx, it.ExistingID, columns)
	case models.EntityProcessStep:
		return s.stepRepo.UpdateColumns(ctx, it.ExistingID, columns)
	case models.EntityUseCase:
		return s.ucRepo.UpdateColumns(ctx, it.ExistingID, columns)
	}
	return fmt.Errorf("no writer for %s", spec.kind)
}

func (s *importService) replaceTags(ctx context.Context, useCaseID int64, category models.TagCategory, tagString string, cache *TagCache) error {
	tags, err := s.tags.GetOrCreate(ctx, tagString, category, cache)
	if err != nil {
		return err
	}
	return s.ucRepo.ReplaceTags(ctx, useCaseID, category, tagIDs(tags))
}

func tagCategoryForKey(key string) (models.TagCategory, bool) {
	for _, category := range models.TagCategories {
		if category.ImportKey() == key {
			return category, true
		}
	}
	return "", false
}

func derefText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
