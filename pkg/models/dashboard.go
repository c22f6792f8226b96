package models

// PriorityUnset is the dashboard bucket for use cases without a priority.
const PriorityUnset = "unset"

// DashboardSummary aggregates catalog counts for the landing page.
type DashboardSummary struct {
	AreaCount        int              `json:"area_count"`
	ProcessStepCount int              `json:"process_step_count"`
	UseCaseCount     int              `json:"use_case_count"`
	TagCount         int              `json:"tag_count"`
	LinkCounts       map[LinkKind]int `json:"link_counts"`
	PriorityCounts   map[string]int   `json:"priority_counts"`
	Areas            []*AreaSummary   `json:"areas"`
}

// AreaSummary is one area's row on the dashboard.
type AreaSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	StepCount    int    `json:"step_count"`
	UseCaseCount int    `json:"use_case_count"`
}
