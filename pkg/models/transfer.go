package models

// Table names in a full-database export document, in restore order.
const (
	TableUsers       = "users"
	TableAreas       = "areas"
	TableSteps       = "process_steps"
	TableUseCases    = "use_cases"
	TableTags        = "tags"
	TableUseCaseTags = "use_case_tags"
	TableLLMSettings = "llm_settings"
)

// ExportTables lists every exported table in dependency order.
var ExportTables = []string{
	TableUsers,
	TableAreas,
	TableSteps,
	TableUseCases,
	TableTags,
	TableUseCaseTags,
	TableLLMSettings,
	"usecase_area_relevance",
	"usecase_step_relevance",
	"usecase_usecase_relevance",
	"process_step_process_step_relevance",
}

// ExportMetadata describes when and by which build an export was written.
type ExportMetadata struct {
	ExportDate string `json:"export_date"`
	Version    string `json:"version"`
}

// ExportDocument is the full-database backup format: one flat row list per table.
type ExportDocument struct {
	Metadata ExportMetadata              `json:"metadata"`
	Data     map[string][]map[string]any `json:"data"`
}

// TransferResult is the outcome of a full-database import.
type TransferResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ClearExisting bool   `json:"clear_existing_data"`

	// Inserted and Dropped count rows per table for the destructive restore.
	// A row is dropped when its parent id cannot be mapped to a restored row.
	Inserted map[string]int `json:"inserted,omitempty"`
	Dropped  map[string]int `json:"dropped,omitempty"`

	// Imports holds the per-kind reconciliation results of a merge.
	Imports []*ImportResult `json:"imports,omitempty"`
}

// DroppedTotal sums Dropped across tables.
func (r *TransferResult) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}
