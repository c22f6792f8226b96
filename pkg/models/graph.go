package models

// GraphNode is a process step in the relevance graph.
type GraphNode struct {
	ID       int64  `json:"id"`
	BIID     string `json:"bi_id"`
	Name     string `json:"name"`
	AreaID   int64  `json:"area_id"`
	Category string `json:"category"` // owning area name
	Weight   int    `json:"weight"`   // use case count
}

// GraphEdge is a step-to-step relevance link.
type GraphEdge struct {
	ID      int64   `json:"id"`
	Source  int64   `json:"source"`
	Target  int64   `json:"target"`
	Score   int     `json:"relevance_score"`
	Content *string `json:"relevance_content"`
}

// StepGraph is the node/edge payload for the process step relevance visualisation.
type StepGraph struct {
	FocusAreaID       int64        `json:"focus_area_id"`
	ComparisonAreaIDs []int64      `json:"comparison_area_ids"`
	Nodes             []*GraphNode `json:"nodes"`
	Edges             []*GraphEdge `json:"edges"`
	Categories        []string     `json:"categories"`
}
