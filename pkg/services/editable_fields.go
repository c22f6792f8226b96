package services

import (
	"encoding/json"
	"strings"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// FieldType declares how an inline edit value is parsed and validated.
type FieldType int

const (
	// FieldText is optional free text; blank clears the column.
	FieldText FieldType = iota
	// FieldRequiredText must be non-blank.
	FieldRequiredText
	// FieldPriority is null or an integer in [1,4].
	FieldPriority
	// FieldForeignKey is the id of a parent row.
	FieldForeignKey
	// FieldTags is a comma-separated tag list of one category.
	FieldTags
)

// EditableField is one entry of an entity's edit registry.
type EditableField struct {
	Name        string
	Column      string
	Type        FieldType
	TagCategory models.TagCategory
}

// FieldValue is a parsed and validated edit.
type FieldValue struct {
	Field EditableField
	// Value is the column value: *string, *int or int64 depending on Field.Type.
	Value any
	// Tags holds the raw tag string for FieldTags.
	Tags string
}

// FieldRegistry lists the fields an entity accepts in inline and bulk edits.
type FieldRegistry map[string]EditableField

func newRegistry(fields ...EditableField) FieldRegistry {
	r := make(FieldRegistry, len(fields))
	for _, f := range fields {
		if f.Column == "" && f.Type != FieldTags {
			f.Column = f.Name
		}
		r[f.Name] = f
	}
	return r
}

func textFields(columns []string) []EditableField {
	out := make([]EditableField, len(columns))
	for i, c := range columns {
		out[i] = EditableField{Name: c, Type: FieldText}
	}
	return out
}

// AreaFields is the inline edit registry for areas.
var AreaFields = newRegistry(
	EditableField{Name: "name", Type: FieldRequiredText},
	EditableField{Name: "description", Type: FieldText},
)

// ProcessStepFields is the inline edit registry for process steps.
var ProcessStepFields = newRegistry(append([]EditableField{
	{Name: "bi_id", Type: FieldRequiredText},
	{Name: "name", Type: FieldRequiredText},
	{Name: "area_id", Type: FieldForeignKey},
}, textFields(models.ProcessStepTextColumns)...)...)

// UseCaseFields is the inline edit registry for use cases.
var UseCaseFields = newRegistry(append([]EditableField{
	{Name: "bi_id", Type: FieldRequiredText},
	{Name: "name", Type: FieldRequiredText},
	{Name: "process_step_id", Type: FieldForeignKey},
	{Name: "priority", Type: FieldPriority},
	{Name: "it_systems", Type: FieldTags, TagCategory: models.TagCategoryITSystem},
	{Name: "data_types", Type: FieldTags, TagCategory: models.TagCategoryDataType},
	{Name: "tags", Type: FieldTags, TagCategory: models.TagCategoryTag},
}, textFields(models.UseCaseTextColumns)...)...)

// Parse validates raw against the named field. Unknown fields are a validation error.
func (r FieldRegistry) Parse(name string, raw json.RawMessage) (*FieldValue, error) {
	field, ok := r[name]
	if !ok {
		return nil, apperrors.Validation("field %q is not editable", name)
	}

	switch field.Type {
	case FieldText, FieldRequiredText, FieldTags:
		s, err := jsonutil.StrictString(raw)
		if err != nil {
			return nil, apperrors.Validation("%s %s", name, err)
		}
		if field.Type == FieldTags {
			return &FieldValue{Field: field, Tags: s}, nil
		}
		v := normalizeText(&s)
		if v == nil && field.Type == FieldRequiredText {
			return nil, apperrors.Validation("%s is required", name)
		}
		return &FieldValue{Field: field, Value: v}, nil

	case FieldPriority:
		p, err := jsonutil.Int(raw)
		if err != nil {
			return nil, apperrors.Validation("priority %s", err)
		}
		if err := validatePriority(p); err != nil {
			return nil, err
		}
		return &FieldValue{Field: field, Value: p}, nil

	case FieldForeignKey:
		n, err := jsonutil.Int(raw)
		if err != nil || n == nil || *n <= 0 {
			return nil, apperrors.Validation("%s must be a positive id", name)
		}
		return &FieldValue{Field: field, Value: int64(*n)}, nil
	}

	return nil, apperrors.Validation("field %q has no parser", name)
}

// normalizeText trims s; blank becomes nil.
func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// sameText compares two optional strings after normalization.
func sameText(a, b *string) bool {
	na, nb := normalizeText(a), normalizeText(b)
	if na == nil || nb == nil {
		return na == nil && nb == nil
	}
	return *na == *nb
}

func validatePriority(p *int) error {
	if p != nil && (*p < models.MinPriority || *p > models.MaxPriority) {
		return apperrors.Validation("priority must be between %d and %d, got %d", models.MinPriority, models.MaxPriority, *p)
	}
	return nil
}

func validateScore(score int) error {
	if score < models.MinRelevanceScore || score > models.MaxRelevanceScore {
		return apperrors.Validation("relevance score must be between %d and %d, got %d",
			models.MinRelevanceScore, models.MaxRelevanceScore, score)
	}
	return nil
}
