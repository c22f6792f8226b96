package models

import (
	"time"
)

// EntityType names one of the three linkable catalog entities.
type EntityType string

const (
	EntityArea        EntityType = "area"
	EntityProcessStep EntityType = "process_step"
	EntityUseCase     EntityType = "use_case"
)

// Table returns the table holding rows of this entity type.
func (e EntityType) Table() string {
	switch e {
	case EntityArea:
		return "areas"
	case EntityProcessStep:
		return "process_steps"
	case EntityUseCase:
		return "use_cases"
	}
	return ""
}

// NaturalKeyColumn returns the column used to match rows on import.
func (e EntityType) NaturalKeyColumn() string {
	if e == EntityArea {
		return "name"
	}
	return "bi_id"
}

// LinkKind identifies one of the four relevance link tables.
type LinkKind string

const (
	LinkUseCaseArea    LinkKind = "usecase_area"
	LinkUseCaseStep    LinkKind = "usecase_step"
	LinkUseCaseUseCase LinkKind = "usecase_usecase"
	LinkStepStep       LinkKind = "step_step"
)

// LinkKinds lists every link kind in dependency order for export/import.
var LinkKinds = []LinkKind{LinkUseCaseArea, LinkUseCaseStep, LinkUseCaseUseCase, LinkStepStep}

// LinkKindInfo describes the table backing a link kind.
type LinkKindInfo struct {
	Kind         LinkKind
	Table        string
	SourceColumn string
	TargetColumn string
	SourceType   EntityType
	TargetType   EntityType
}

// SelfTyped reports whether source and target are the same entity type.
// Self-typed kinds reject links from a row to itself.
func (i LinkKindInfo) SelfTyped() bool {
	return i.SourceType == i.TargetType
}

var linkKindInfos = map[LinkKind]LinkKindInfo{
	LinkUseCaseArea: {
		Kind:         LinkUseCaseArea,
		Table:        "usecase_area_relevance",
		SourceColumn: "source_usecase_id",
		TargetColumn: "target_area_id",
		SourceType:   EntityUseCase,
		TargetType:   EntityArea,
	},
	LinkUseCaseStep: {
		Kind:         LinkUseCaseStep,
		Table:        "usecase_step_relevance",
		SourceColumn: "source_usecase_id",
		TargetColumn: "target_process_step_id",
		SourceType:   EntityUseCase,
		TargetType:   EntityProcessStep,
	},
	LinkUseCaseUseCase: {
		Kind:         LinkUseCaseUseCase,
		Table:        "usecase_usecase_relevance",
		SourceColumn: "source_usecase_id",
		TargetColumn: "target_usecase_id",
		SourceType:   EntityUseCase,
		TargetType:   EntityUseCase,
	},
	LinkStepStep: {
		Kind:         LinkStepStep,
		Table:        "process_step_process_step_relevance",
		SourceColumn: "source_process_step_id",
		TargetColumn: "target_process_step_id",
		SourceType:   EntityProcessStep,
		TargetType:   EntityProcessStep,
	},
}

// Info returns the table descriptor for k. ok is false for an unknown kind.
func (k LinkKind) Info() (LinkKindInfo, bool) {
	info, ok := linkKindInfos[k]
	return info, ok
}

// IsValid reports whether k is one of the four link kinds.
func (k LinkKind) IsValid() bool {
	_, ok := linkKindInfos[k]
	return ok
}

// Relevance score bounds, inclusive.
const (
	MinRelevanceScore = 0
	MaxRelevanceScore = 100
)

// RelevanceLink is a scored, directed edge between two catalog entities.
type RelevanceLink struct {
	ID        int64     `json:"id"`
	Kind      LinkKind  `json:"kind"`
	SourceID  int64     `json:"source_id"`
	TargetID  int64     `json:"target_id"`
	Score     int       `json:"relevance_score"`
	Content   *string   `json:"relevance_content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Endpoint display names, filled by queries.
	SourceName string `json:"source_name,omitempty"`
	TargetName string `json:"target_name,omitempty"`
}

// LinkUpdate carries the optional changes to an existing link.
// Nil fields are left unchanged; an empty Content clears it.
type LinkUpdate struct {
	SourceID *int64  `json:"source_id,omitempty"`
	TargetID *int64  `json:"target_id,omitempty"`
	Score    *int    `json:"relevance_score,omitempty"`
	Content  *string `json:"relevance_content,omitempty"`
}

// LinkFilter narrows a link query. Kind is required.
type LinkFilter struct {
	Kind     LinkKind
	SourceID *int64
	TargetID *int64
	MinScore *int
	MaxScore *int
}
