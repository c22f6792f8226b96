package models

import (
	"time"
)

// ImportKind is a bulk-importable collection.
type ImportKind string

const (
	ImportAreas                   ImportKind = "areas"
	ImportProcessSteps            ImportKind = "process_steps"
	ImportUseCases                ImportKind = "use_cases"
	ImportUseCaseAreaRelevance    ImportKind = "usecase_area_relevance"
	ImportUseCaseStepRelevance    ImportKind = "usecase_step_relevance"
	ImportUseCaseUseCaseRelevance ImportKind = "usecase_usecase_relevance"
	ImportStepStepRelevance       ImportKind = "step_step_relevance"
)

// ImportKinds lists importable kinds in dependency order.
var ImportKinds = []ImportKind{
	ImportAreas,
	ImportProcessSteps,
	ImportUseCases,
	ImportUseCaseAreaRelevance,
	ImportUseCaseStepRelevance,
	ImportUseCaseUseCaseRelevance,
	ImportStepStepRelevance,
}

// IsValid reports whether k is importable.
func (k ImportKind) IsValid() bool {
	for _, known := range ImportKinds {
		if k == known {
			return true
		}
	}
	return false
}

// LinkKind returns the link kind a relevance import writes to.
func (k ImportKind) LinkKind() (LinkKind, bool) {
	switch k {
	case ImportUseCaseAreaRelevance:
		return LinkUseCaseArea, true
	case ImportUseCaseStepRelevance:
		return LinkUseCaseStep, true
	case ImportUseCaseUseCaseRelevance:
		return LinkUseCaseUseCase, true
	case ImportStepStepRelevance:
		return LinkStepStep, true
	}
	return "", false
}

// ImportKindForLink is the inverse of ImportKind.LinkKind.
func ImportKindForLink(k LinkKind) ImportKind {
	switch k {
	case LinkUseCaseArea:
		return ImportUseCaseAreaRelevance
	case LinkUseCaseStep:
		return ImportUseCaseStepRelevance
	case LinkUseCaseUseCase:
		return ImportUseCaseUseCaseRelevance
	default:
		return ImportStepStepRelevance
	}
}

// PreviewByDefault reports whether uploads of this kind are staged for review unless told otherwise.
func (k ImportKind) PreviewByDefault() bool {
	return k == ImportProcessSteps
}

// PlanAction is the staged decision for one import row.
type PlanAction string

const (
	ActionAdd    PlanAction = "add"
	ActionUpdate PlanAction = "update"
	ActionSkip   PlanAction = "skip"
)

// SkipReason explains why a row is not written.
type SkipReason string

const (
	SkipInvalidFormat      SkipReason = "invalid_format"
	SkipMissingArea        SkipReason = "missing_area"
	SkipMissingProcessStep SkipReason = "missing_process_step"
	SkipMissingUseCase     SkipReason = "missing_use_case"
	SkipSelfLink           SkipReason = "self_link"
	SkipDuplicateInFile    SkipReason = "duplicate_in_file"
	SkipNoChange           SkipReason = "no_change"
	SkipOverride           SkipReason = "skipped_by_user"
)

// MissingParentReason maps an unresolved parent entity type to its skip reason.
func MissingParentReason(e EntityType) SkipReason {
	switch e {
	case EntityArea:
		return SkipMissingArea
	case EntityProcessStep:
		return SkipMissingProcessStep
	default:
		return SkipMissingUseCase
	}
}

// Non-text fields a plan item may change.
const (
	FieldPriority = "priority"
	FieldScore    = "relevance_score"
)

// FieldChange is one column that differs between the file and the store.
type FieldChange struct {
	Field string  `json:"field"`
	Old   *string `json:"old"`
	New   *string `json:"new"`
}

// PlanItem is the staged decision for one input row, with every value needed to apply it.
type PlanItem struct {
	Index  int        `json:"index"`
	Key    string     `json:"key"`
	Action PlanAction `json:"action"`
	Reason SkipReason `json:"reason,omitempty"`
	Detail string     `json:"detail,omitempty"`

	// MissingKeys holds the unresolved parent natural keys for missing_* skips.
	MissingKeys []string `json:"missing_keys,omitempty"`

	ExistingID int64 `json:"existing_id,omitempty"`
	// ParentID is the owning area (steps) or process step (use cases).
	ParentID int64 `json:"parent_id,omitempty"`
	// SourceID and TargetID are the resolved link endpoints.
	SourceID int64 `json:"source_id,omitempty"`
	TargetID int64 `json:"target_id,omitempty"`

	// Values holds the text columns present in the row; a nil value clears the column.
	Values   map[string]*string     `json:"values,omitempty"`
	Priority *int                   `json:"priority,omitempty"`
	Score    *int                   `json:"relevance_score,omitempty"`
	TagSets  map[TagCategory]string `json:"tag_sets,omitempty"`

	Changes []FieldChange `json:"changes,omitempty"`
}

// ChangedFields returns the names of the fields an update touches.
func (it *PlanItem) ChangedFields() []string {
	fields := make([]string, 0, len(it.Changes))
	for _, c := range it.Changes {
		fields = append(fields, c.Field)
	}
	return fields
}

// ImportPlan is a computed, not yet applied changeset for one uploaded collection.
type ImportPlan struct {
	ID        string      `json:"id"`
	Kind      ImportKind  `json:"kind"`
	UserID    int64       `json:"user_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []*PlanItem `json:"items"`
}

// Pending reports how many items would be written on apply.
func (p *ImportPlan) Pending() int {
	n := 0
	for _, it := range p.Items {
		if it.Action != ActionSkip {
			n++
		}
	}
	return n
}

// SkippedRow is the per-row reason reported for a skipped input row.
type SkippedRow struct {
	Index  int        `json:"index"`
	Key    string     `json:"key,omitempty"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// ImportResult is the structured outcome of a plan or an applied import.
// Success=false means nothing was written.
type ImportResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Kind    ImportKind `json:"kind"`
	Preview bool       `json:"preview,omitempty"`
	PlanID  string     `json:"plan_id,omitempty"`

	AddedCount   int `json:"added_count"`
	UpdatedCount int `json:"updated_count"`
	SkippedCount int `json:"skipped_count"`

	SkippedInvalidFormat      int `json:"skipped_invalid_format"`
	SkippedMissingArea        int `json:"skipped_missing_area"`
	SkippedMissingProcessStep int `json:"skipped_missing_process_step"`
	SkippedMissingUseCase     int `json:"skipped_missing_use_case"`
	SkippedSelfLink           int `json:"skipped_self_link"`
	SkippedDuplicateInFile    int `json:"skipped_duplicate_in_file"`
	SkippedNoChange           int `json:"skipped_no_change"`
	SkippedByUser             int `json:"skipped_by_user"`

	ExistingNoUpdate    []string `json:"existing_no_update"`
	DuplicatesInFile    []string `json:"duplicates_in_file"`
	MissingAreas        []string `json:"missing_areas"`
	MissingProcessSteps []string `json:"missing_process_steps"`
	MissingUseCases     []string `json:"missing_use_cases"`
	SelfLinks           []string `json:"self_links"`

	SkippedRows []SkippedRow `json:"skipped_rows"`
}

// NewImportResult returns a result with empty, non-nil lists so they serialise as [].
func NewImportResult(kind ImportKind) *ImportResult {
	return &ImportResult{
		Kind:                kind,
		ExistingNoUpdate:    []string{},
		DuplicatesInFile:    []string{},
		MissingAreas:        []string{},
		MissingProcessSteps: []string{},
		MissingUseCases:     []string{},
		SelfLinks:           []string{},
		SkippedRows:         []SkippedRow{},
	}
}

// RecordSkip counts a skipped item under its reason and lists its offending keys.
func (r *ImportResult) RecordSkip(it *PlanItem) {
	r.SkippedCount++
	r.SkippedRows = append(r.SkippedRows, SkippedRow{Index: it.Index, Key: it.Key, Reason: it.Reason, Detail: it.Detail})

	switch it.Reason {
	case SkipInvalidFormat:
		r.SkippedInvalidFormat++
	case SkipMissingArea:
		r.SkippedMissingArea++
		r.MissingAreas = appendUnique(r.MissingAreas, it.MissingKeys...)
	case SkipMissingProcessStep:
		r.SkippedMissingProcessStep++
		r.MissingProcessSteps = appendUnique(r.MissingProcessSteps, it.MissingKeys...)
	case SkipMissingUseCase:
		r.SkippedMissingUseCase++
		r.MissingUseCases = appendUnique(r.MissingUseCases, it.MissingKeys...)
	case SkipSelfLink:
		r.SkippedSelfLink++
		r.SelfLinks = append(r.SelfLinks, it.Key)
	case SkipDuplicateInFile:
		r.SkippedDuplicateInFile++
		r.DuplicatesInFile = appendUnique(r.DuplicatesInFile, it.Key)
	case SkipNoChange:
		r.SkippedNoChange++
		r.ExistingNoUpdate = append(r.ExistingNoUpdate, it.Key)
	case SkipOverride:
		r.SkippedByUser++
	}
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
