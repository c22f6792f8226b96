package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// TransferService exports and restores the whole catalog as one JSON document.
type TransferService interface {
	Export(ctx context.Context) (*models.ExportDocument, error)

	// Import restores doc. With clearExisting every table is emptied and rows are
	// re-inserted with fresh ids. Without it the document is merged by natural key
	// through the import engine. Either way the import is all or nothing.
	Import(ctx context.Context, doc *models.ExportDocument, clearExisting bool) (*models.TransferResult, error)
}

type transferService struct {
	repo    repositories.TransferRepository
	imports ImportService
	tx      database.TxRunner
	version string
	logger  *zap.Logger
}

// NewTransferService creates a TransferService.
func NewTransferService(
	repo repositories.TransferRepository,
	imports ImportService,
	tx database.TxRunner,
	version string,
	logger *zap.Logger,
) TransferService {
	return &transferService{
		repo:    repo,
		imports: imports,
		tx:      tx,
		version: version,
		logger:  logger.Named("transfer"),
	}
}

var _ TransferService = (*transferService)(nil)

// foreignKeys maps each table's id-valued columns to the table they reference.
var foreignKeys = func() map[string]map[string]string {
	fks := map[string]map[string]string{
		models.TableSteps:       {"area_id": models.TableAreas},
		models.TableUseCases:    {"process_step_id": models.TableSteps},
		models.TableUseCaseTags: {"use_case_id": models.TableUseCases, "tag_id": models.TableTags},
		models.TableLLMSettings: {"user_id": models.TableUsers},
	}
	for _, kind := range models.LinkKinds {
		info, _ := kind.Info()
		fks[info.Table] = map[string]string{
			info.SourceColumn: info.SourceType.Table(),
			info.TargetColumn: info.TargetType.Table(),
		}
	}
	return fks
}()

func (s *transferService) Export(ctx context.Context) (*models.ExportDocument, error) {
	doc := &models.ExportDocument{
		Metadata: models.ExportMetadata{
			ExportDate: time.Now().UTC().Format(time.RFC3339),
			Version:    s.version,
		},
		Data: make(map[string][]map[string]any, len(models.ExportTables)),
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, table := range models.ExportTables {
			rows, err := s.repo.DumpTable(ctx, table)
			if err != nil {
				return err
			}
			doc.Data[table] = rows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exported catalog", zap.Int("tables", len(doc.Data)))
	return doc, nil
}

func (s *transferService) Import(ctx context.Context, doc *models.ExportDocument, clearExisting bool) (*models.TransferResult, error) {
	if doc == nil || doc.Data == nil {
		return nil, apperrors.Validation("export document has no data section")
	}
	for _, row := range doc.Data[models.TableTags] {
		if name, _ := row["name"].(string); strings.Contains(name, ",") {
			return nil, apperrors.Validation("tag %q contains a comma; tag lists are comma separated", name)
		}
	}
	for table := range doc.Data {
		if !slices.Contains(models.ExportTables, table) {
			s.logger.Warn("Ignoring unknown table in import document", zap.String("table", table))
		}
	}

	result := &models.TransferResult{
		ClearExisting: clearExisting,
		Inserted:      make(map[string]int),
		Dropped:       make(map[string]int),
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if clearExisting {
			return s.restore(ctx, doc, result)
		}
		return s.merge(ctx, doc, result)
	})
	if err != nil {
		s.logger.Error("Database import rolled back", zap.Bool("clear_existing", clearExisting), zap.Error(err))
		return &models.TransferResult{
			ClearExisting: clearExisting,
			Message:       fmt.Sprintf("Import failed and was rolled back: %v", err),
		}, err
	}

	result.Success = true
	if clearExisting {
		total := 0
		for _, n := range result.Inserted {
			total += n
		}
		result.Message = fmt.Sprintf("Restored %d rows, dropped %d rows with unknown parents", total, result.DroppedTotal())
	} else {
		added, updated := 0, 0
		for _, r := range result.Imports {
			added += r.AddedCount
			updated += r.UpdatedCount
		}
		result.Message = fmt.Sprintf("Merged database: %d added, %d updated", added, updated)
	}
	s.logger.Info("Imported database",
		zap.Bool("clear_existing", clearExisting),
		zap.Any("inserted", result.Inserted),
		zap.Any("dropped", result.Dropped))
	return result, nil
}

// restore replaces every table. Ids are reassigned, so foreign keys are
// rewritten through per-table old→new maps built as parents are inserted.
func (s *transferService) restore(ctx context.Context, doc *models.ExportDocument, result *models.TransferResult) error {
	if err := s.repo.TruncateAll(ctx); err != nil {
		return err
	}

	idMaps := make(map[string]map[int64]int64, len(models.ExportTables))
	for _, table := range models.ExportTables {
		newIDs := make(map[int64]int64)
		idMaps[table] = newIDs

		for i, row := range doc.Data[table] {
			remapped, ok := remapRow(row, foreignKeys[table], idMaps)
			if !ok {
				result.Dropped[table]++
				continue
			}
			id, err := s.repo.InsertRow(ctx, table, remapped)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", table, i, err)
			}
			if oldID, ok := toInt64(row["id"]); ok && id != 0 {
				newIDs[oldID] = id
			}
			result.Inserted[table]++
		}

		if n := result.Dropped[table]; n > 0 {
			s.logger.Warn("Dropped rows whose parent was not restored",
				zap.String("table", table),
				zap.Int("dropped", n))
		}
	}
	return nil
}

// remapRow copies row with every foreign key translated to its new id.
// It reports false when a parent id is missing or was never restored.
func remapRow(row map[string]any, fks map[string]string, idMaps map[string]map[int64]int64) (map[string]any, bool) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for column, parent := range fks {
		oldID, ok := toInt64(row[column])
		if !ok {
			return nil, false
		}
		newID, ok := idMaps[parent][oldID]
		if !ok {
			return nil, false
		}
		out[column] = newID
	}
	return out, true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// merge reconciles the document by natural key, kind by kind in dependency order.
func (s *transferService) merge(ctx context.Context, doc *models.ExportDocument, result *models.TransferResult) error {
	keys := naturalKeys(doc)
	tags := useCaseTags(doc)

	for _, kind := range models.ImportKinds {
		rows, dropped, err := mergeRows(doc, kind, keys, tags)
		if err != nil {
			return err
		}
		if dropped > 0 {
			result.Dropped[string(kind)] = dropped
			s.logger.Warn("Dropped rows referencing ids missing from the document",
				zap.String("kind", string(kind)),
				zap.Int("dropped", dropped))
		}

		r, err := s.imports.Import(ctx, kind, rows)
		if err != nil {
			return fmt.Errorf("merge %s: %w", kind, err)
		}
		result.Imports = append(result.Imports, r)
	}
	return nil
}

// naturalKeys maps each entity's document ids to its natural key.
func naturalKeys(doc *models.ExportDocument) map[models.EntityType]map[int64]string {
	keys := make(map[models.EntityType]map[int64]string)
	for _, entity := range []models.EntityType{models.EntityArea, models.EntityProcessStep, models.EntityUseCase} {
		m := make(map[int64]string)
		for _, row := range doc.Data[entity.Table()] {
			id, ok := toInt64(row["id"])
			key, isString := row[entity.NaturalKeyColumn()].(string)
			if ok && isString {
				m[id] = key
			}
		}
		keys[entity] = m
	}
	return keys
}

// useCaseTags groups tag names per document use case id and category.
func useCaseTags(doc *models.ExportDocument) map[int64]map[models.TagCategory][]string {
	tagByID := make(map[int64]*models.Tag)
	for _, row := range doc.Data[models.TableTags] {
		id, ok := toInt64(row["id"])
		name, _ := row["name"].(string)
		category, _ := row["category"].(string)
		if ok {
			tagByID[id] = &models.Tag{ID: id, Name: name, Category: models.TagCategory(category)}
		}
	}

	out := make(map[int64]map[models.TagCategory][]string)
	for _, row := range doc.Data[models.TableUseCaseTags] {
		ucID, ok1 := toInt64(row["use_case_id"])
		tagID, ok2 := toInt64(row["tag_id"])
		tag := tagByID[tagID]
		if !ok1 || !ok2 || tag == nil {
			continue
		}
		if out[ucID] == nil {
			out[ucID] = make(map[models.TagCategory][]string)
		}
		out[ucID][tag.Category] = append(out[ucID][tag.Category], tag.Name)
	}
	return out
}

// mergeRows converts one kind's table rows into import rows keyed by natural key.
// Rows whose references cannot be resolved within the document are dropped.
func mergeRows(
	doc *models.ExportDocument,
	kind models.ImportKind,
	keys map[models.EntityType]map[int64]string,
	tags map[int64]map[models.TagCategory][]string,
) ([]jsonutil.Object, int, error) {
	spec := importSpecs[kind]
	var (
		rows    []jsonutil.Object
		dropped int
	)

	table := spec.entity.Table()
	if spec.isLink() {
		info, _ := spec.link.Info()
		table = info.Table
	}

	for _, src := range doc.Data[table] {
		row := make(map[string]any)

		if spec.isLink() {
			info, _ := spec.link.Info()
			srcID, ok1 := toInt64(src[info.SourceColumn])
			tgtID, ok2 := toInt64(src[info.TargetColumn])
			srcKey, ok3 := keys[info.SourceType][srcID]
			tgtKey, ok4 := keys[info.TargetType][tgtID]
			if !ok1 || !ok2 || !ok3 || !ok4 {
				dropped++
				continue
			}
			row[spec.source.field] = srcKey
			row[spec.target.field] = tgtKey
			row[models.FieldScore] = src[models.FieldScore]
			row[linkContentField] = src[linkContentField]
		} else {
			row[spec.keyField] = src[spec.entity.NaturalKeyColumn()]
			for _, f := range spec.required {
				row[f] = src[f]
			}
			for _, f := range spec.text {
				row[f] = src[f]
			}
			if spec.parent != nil {
				parentID, ok := toInt64(src[spec.parent.column])
				parentKey, found := keys[spec.parent.entity][parentID]
				if !ok || !found {
					dropped++
					continue
				}
				row[spec.parent.field] = parentKey
			}
			if spec.priority {
				row[models.FieldPriority] = src[models.FieldPriority]
			}
			if spec.tagged {
				id, _ := toInt64(src["id"])
				for _, category := range models.TagCategories {
					row[category.ImportKey()] = strings.Join(tags[id][category], ", ")
				}
			}
		}

		obj, err := toObject(row)
		if err != nil {
			return nil, 0, fmt.Errorf("encode %s row: %w", kind, err)
		}
		rows = append(rows, obj)
	}
	return rows, dropped, nil
}

func toObject(row map[string]any) (jsonutil.Object, error) {
	obj := make(jsonutil.Object, len(row))
	for k, v := range row {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}
	return obj, nil
}
