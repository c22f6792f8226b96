package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-catalog/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// importRef is a row field naming another catalog row by its natural key.
type importRef struct {
	field  string
	entity models.EntityType
	// column is the foreign key column the resolved id is written to. Empty for link endpoints.
	column string
}

// importSpec describes the JSON row shape of one importable kind.
type importSpec struct {
	kind models.ImportKind

	// entity is set for area, process step and use case imports.
	entity   models.EntityType
	keyField string
	required []string
	text     []string
	parent   *importRef
	priority bool
	tagged   bool

	// link, source and target are set for relevance imports.
	link   models.LinkKind
	source *importRef
	target *importRef
}

func (s *importSpec) isLink() bool {
	return s.link != ""
}

// label is the singular noun used in result messages.
func (s *importSpec) label() string {
	if s.isLink() {
		return strings.ReplaceAll(string(s.link), "_", "-") + " relevance link"
	}
	return strings.ReplaceAll(string(s.entity), "_", " ")
}

const linkContentField = "relevance_content"

var importSpecs = map[models.ImportKind]*importSpec{
	models.ImportAreas: {
		kind:     models.ImportAreas,
		entity:   models.EntityArea,
		keyField: "name",
		text:     []string{"description"},
	},
	models.ImportProcessSteps: {
		kind:     models.ImportProcessSteps,
		entity:   models.EntityProcessStep,
		keyField: "bi_id",
		required: []string{"name"},
		text:     models.ProcessStepTextColumns,
		parent:   &importRef{field: "area_name", entity: models.EntityArea, column: "area_id"},
	},
	models.ImportUseCases: {
		kind:     models.ImportUseCases,
		entity:   models.EntityUseCase,
		keyField: "bi_id",
		required: []string{"name"},
		text:     models.UseCaseTextColumns,
		parent:   &importRef{field: "process_step_bi_id", entity: models.EntityProcessStep, column: "process_step_id"},
		priority: true,
		tagged:   true,
	},
	models.ImportUseCaseAreaRelevance: {
		kind:   models.ImportUseCaseAreaRelevance,
		link:   models.LinkUseCaseArea,
		source: &importRef{field: "source_uc_bi_id", entity: models.EntityUseCase},
		target: &importRef{field: "target_area_name", entity: models.EntityArea},
		text:   []string{linkContentField},
	},
	models.ImportUseCaseStepRelevance: {
		kind:   models.ImportUseCaseStepRelevance,
		link:   models.LinkUseCaseStep,
		source: &importRef{field: "source_uc_bi_id", entity: models.EntityUseCase},
		target: &importRef{field: "target_ps_bi_id", entity: models.EntityProcessStep},
		text:   []string{linkContentField},
	},
	models.ImportUseCaseUseCaseRelevance: {
		kind:   models.ImportUseCaseUseCaseRelevance,
		link:   models.LinkUseCaseUseCase,
		source: &importRef{field: "source_uc_bi_id", entity: models.EntityUseCase},
		target: &importRef{field: "target_uc_bi_id", entity: models.EntityUseCase},
		text:   []string{linkContentField},
	},
	models.ImportStepStepRelevance: {
		kind:   models.ImportStepStepRelevance,
		link:   models.LinkStepStep,
		source: &importRef{field: "source_ps_bi_id", entity: models.EntityProcessStep},
		target: &importRef{field: "target_ps_bi_id", entity: models.EntityProcessStep},
		text:   []string{linkContentField},
	},
}

// importRow is one input row after format validation.
type importRow struct {
	key       string
	parentKey string
	sourceKey string
	targetKey string

	// values holds the required and present optional text columns.
	values      map[string]*string
	priority    *int
	hasPriority bool
	score       int
	tagSets     map[models.TagCategory]string
}

var errNotObject = errors.New("row is not a JSON object")

// parseRow validates obj against the kind's row shape.
// The returned error text is reported to the user as the row's detail.
func (s *importSpec) parseRow(obj jsonutil.Object) (*importRow, error) {
	if obj == nil {
		return nil, errNotObject
	}

	row := &importRow{values: make(map[string]*string)}

	if s.isLink() {
		var err error
		if row.sourceKey, err = requiredString(obj, s.source.field); err != nil {
			return nil, err
		}
		if row.targetKey, err = requiredString(obj, s.target.field); err != nil {
			return nil, err
		}
		row.key = linkKey(row.sourceKey, row.targetKey)

		raw, ok := obj[models.FieldScore]
		if !ok || jsonutil.IsNull(raw) {
			return nil, fmt.Errorf("%s is required", models.FieldScore)
		}
		score, err := jsonutil.Int(raw)
		if err != nil {
			return nil, fmt.Errorf("%s %w: %s", models.FieldScore, err, jsonutil.FlexibleStringValue(raw))
		}
		if score == nil {
			return nil, fmt.Errorf("%s is required", models.FieldScore)
		}
		if err := validateScore(*score); err != nil {
			return nil, err
		}
		row.score = *score
	} else {
		key, err := requiredString(obj, s.keyField)
		if err != nil {
			return nil, err
		}
		row.key = key
		for _, f := range s.required {
			v, err := requiredString(obj, f)
			if err != nil {
				return nil, err
			}
			row.values[f] = &v
		}
		if s.parent != nil {
			if row.parentKey, err = requiredString(obj, s.parent.field); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range s.text {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		v, err := jsonutil.StrictString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s %w", f, err)
		}
		row.values[f] = normalizeText(&v)
	}

	if s.priority {
		if raw, ok := obj[models.FieldPriority]; ok {
			p, err := jsonutil.Int(raw)
			if err != nil {
				return nil, fmt.Errorf("%s %w: %s", models.FieldPriority, err, jsonutil.FlexibleStringValue(raw))
			}
			if err := validatePriority(p); err != nil {
				return nil, err
			}
			row.priority = p
			row.hasPriority = true
		}
	}

	if s.tagged {
		row.tagSets = make(map[models.TagCategory]string)
		for _, category := range models.TagCategories {
			raw, ok := obj[category.ImportKey()]
			if !ok {
				continue
			}
			v, err := jsonutil.StrictString(raw)
			if err != nil {
				return nil, fmt.Errorf("%s %w", category.ImportKey(), err)
			}
			row.tagSets[category] = v
		}
	}

	return row, nil
}

func requiredString(obj jsonutil.Object, field string) (string, error) {
	raw, ok := obj[field]
	if !ok {
		return "", fmt.Errorf("%s is required", field)
	}
	v, err := jsonutil.StrictString(raw)
	if err != nil {
		return "", fmt.Errorf("%s %w", field, err)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return v, nil
}

// identity is the natural key used for in-file duplicate detection. Link rows
// compare the endpoint pair itself; key is only the display form.
func (r *importRow) identity() [2]string {
	if r.sourceKey != "" || r.targetKey != "" {
		return [2]string{r.sourceKey, r.targetKey}
	}
	return [2]string{r.key}
}

func linkKey(source, target string) string {
	return source + " -> " + target
}

func formatInt(n *int) *string {
	if n == nil {
		return nil
	}
	s := strconv.Itoa(*n)
	return &s
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sameTagSet compares tag name lists ignoring order and repeats.
func sameTagSet(stored []string, tagString string) bool {
	want := SplitTags(tagString)
	have := make(map[string]bool, len(stored))
	for _, n := range stored {
		have[n] = true
	}
	if len(have) != len(want) {
		return false
	}
	for _, n := range want {
		if !have[n] {
			return false
		}
	}
	return true
}

func joinTags(names []string) *string {
	if len(names) == 0 {
		return nil
	}
	s := strings.Join(names, ", ")
	return &s
}
