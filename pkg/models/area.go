package models

import (
	"time"
)

// Area is a top-level business area. Its name is globally unique.
// Stored in areas table; deleting an area cascades to its process steps.
type Area struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Populated by list queries only.
	StepCount    int `json:"step_count"`
	UseCaseCount int `json:"use_case_count"`
}
