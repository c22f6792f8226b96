package models

import (
	"time"
)

// Priority bounds for use cases. A nil priority means "not prioritised".
const (
	MinPriority = 1
	MaxPriority = 4
)

// UseCaseTextColumns lists the free-text columns of a use case, in table order.
var UseCaseTextColumns = []string{
	"raw_content",
	"summary",
	"inspiration",
	"wave",
	"effort_level",
	"status",
	"business_problem_solved",
	"target_solution_description",
	"technologies_text",
	"requirements",
	"relevants_text",
	"reduction_time_transfer",
	"reduction_time_launches",
	"reduction_costs_supplier",
	"quality_improvement_quant",
	"ideation_notes",
	"further_ideas",
	"effort_quantification",
	"potential_quantification",
	"dependencies_text",
	"contact_persons_text",
	"related_projects_text",
	"pilot_site_factory_text",
}

// UseCase belongs to exactly one ProcessStep and carries categorized tags.
type UseCase struct {
	ID                        int64     `json:"id"`
	BIID                      string    `json:"bi_id"`
	Name                      string    `json:"name"`
	ProcessStepID             int64     `json:"process_step_id"`
	Priority                  *int      `json:"priority"`
	RawContent                *string   `json:"raw_content"`
	Summary                   *string   `json:"summary"`
	Inspiration               *string   `json:"inspiration"`
	Wave                      *string   `json:"wave"`
	EffortLevel               *string   `json:"effort_level"`
	Status                    *string   `json:"status"`
	BusinessProblemSolved     *string   `json:"business_problem_solved"`
	TargetSolutionDescription *string   `json:"target_solution_description"`
	TechnologiesText          *string   `json:"technologies_text"`
	Requirements              *string   `json:"requirements"`
	RelevantsText             *string   `json:"relevants_text"`
	ReductionTimeTransfer     *string   `json:"reduction_time_transfer"`
	ReductionTimeLaunches     *string   `json:"reduction_time_launches"`
	ReductionCostsSupplier    *string   `json:"reduction_costs_supplier"`
	QualityImprovementQuant   *string   `json:"quality_improvement_quant"`
	IdeationNotes             *string   `json:"ideation_notes"`
	FurtherIdeas              *string   `json:"further_ideas"`
	EffortQuantification      *string   `json:"effort_quantification"`
	PotentialQuantification   *string   `json:"potential_quantification"`
	DependenciesText          *string   `json:"dependencies_text"`
	ContactPersonsText        *string   `json:"contact_persons_text"`
	RelatedProjectsText       *string   `json:"related_projects_text"`
	PilotSiteFactoryText      *string   `json:"pilot_site_factory_text"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`

	Tags []*Tag `json:"tags"`

	// Joined for display.
	ProcessStepBIID string `json:"process_step_bi_id,omitempty"`
	ProcessStepName string `json:"process_step_name,omitempty"`
	AreaID          int64  `json:"area_id,omitempty"`
	AreaName        string `json:"area_name,omitempty"`
}

// TextField returns the address of the named text column, or nil for an unknown column.
func (u *UseCase) TextField(column string) **string {
	switch column {
	case "raw_content":
		return &u.RawContent
	case "summary":
		return &u.Summary
	case "inspiration":
		return &u.Inspiration
	case "wave":
		return &u.Wave
	case "effort_level":
		return &u.EffortLevel
	case "status":
		return &u.Status
	case "business_problem_solved":
		return &u.BusinessProblemSolved
	case "target_solution_description":
		return &u.TargetSolutionDescription
	case "technologies_text":
		return &u.TechnologiesText
	case "requirements":
		return &u.Requirements
	case "relevants_text":
		return &u.RelevantsText
	case "reduction_time_transfer":
		return &u.ReductionTimeTransfer
	case "reduction_time_launches":
		return &u.ReductionTimeLaunches
	case "reduction_costs_supplier":
		return &u.ReductionCostsSupplier
	case "quality_improvement_quant":
		return &u.QualityImprovementQuant
	case "ideation_notes":
		return &u.IdeationNotes
	case "further_ideas":
		return &u.FurtherIdeas
	case "effort_quantification":
		return &u.EffortQuantification
	case "potential_quantification":
		return &u.PotentialQuantification
	case "dependencies_text":
		return &u.DependenciesText
	case "contact_persons_text":
		return &u.ContactPersonsText
	case "related_projects_text":
		return &u.RelatedProjectsText
	case "pilot_site_factory_text":
		return &u.PilotSiteFactoryText
	}
	return nil
}

// TagNames returns the names of the use case's tags in the given category.
func (u *UseCase) TagNames(category TagCategory) []string {
	var names []string
	for _, t := range u.Tags {
		if t.Category == category {
			names = append(names, t.Name)
		}
	}
	return names
}

// UseCaseDetail is a use case together with its relevance links in both directions.
type UseCaseDetail struct {
	*UseCase
	AreaLinks     []*RelevanceLink `json:"area_links"`
	StepLinks     []*RelevanceLink `json:"step_links"`
	OutgoingLinks []*RelevanceLink `json:"outgoing_use_case_links"`
	IncomingLinks []*RelevanceLink `json:"incoming_use_case_links"`
}
