package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// GraphService builds the process step relevance graph for visualisation.
type GraphService interface {
	// StepGraph returns the steps of the focus and comparison areas and the
	// step-to-step links between them. An unknown focus area is ErrNotFound.
	StepGraph(ctx context.Context, focusAreaID int64, comparisonAreaIDs []int64) (*models.StepGraph, error)
}

type graphService struct {
	areaRepo repositories.AreaRepository
	stepRepo repositories.ProcessStepRepository
	linkRepo repositories.RelevanceRepository
	logger   *zap.Logger
}

// NewGraphService creates a GraphService.
func NewGraphService(
	areaRepo repositories.AreaRepository,
	stepRepo repositories.ProcessStepRepository,
	linkRepo repositories.RelevanceRepository,
	logger *zap.Logger,
) GraphService {
	return &graphService{
		areaRepo: areaRepo,
		stepRepo: stepRepo,
		linkRepo: linkRepo,
		logger:   logger.Named("graph"),
	}
}

var _ GraphService = (*graphService)(nil)

func (s *graphService) StepGraph(ctx context.Context, focusAreaID int64, comparisonAreaIDs []int64) (*models.StepGraph, error) {
	if _, err := s.areaRepo.GetByID(ctx, focusAreaID); err != nil {
		return nil, err
	}

	comparison := make([]int64, 0, len(comparisonAreaIDs))
	seen := map[int64]bool{focusAreaID: true}
	for _, id := range comparisonAreaIDs {
		if !seen[id] {
			seen[id] = true
			comparison = append(comparison, id)
		}
	}
	// Only the focus area itself (or nothing) was asked for: show its internal links.
	internalOnly := len(comparison) == 0

	steps, err := s.stepRepo.ListByAreas(ctx, append([]int64{focusAreaID}, comparison...))
	if err != nil {
		return nil, err
	}

	graph := &models.StepGraph{
		FocusAreaID:       focusAreaID,
		ComparisonAreaIDs: comparison,
		Nodes:             make([]*models.GraphNode, 0, len(steps)),
		Edges:             []*models.GraphEdge{},
		Categories:        []string{},
	}

	inFocus := make(map[int64]bool)
	inComparison := make(map[int64]bool)
	categorySeen := make(map[string]bool)
	for _, st := range steps {
		graph.Nodes = append(graph.Nodes, &models.GraphNode{
			ID:       st.ID,
			BIID:     st.BIID,
			Name:     st.Name,
			AreaID:   st.AreaID,
			Category: st.AreaName,
			Weight:   st.UseCaseCount,
		})
		if st.AreaID == focusAreaID {
			inFocus[st.ID] = true
		} else {
			inComparison[st.ID] = true
		}
		if !categorySeen[st.AreaName] {
			categorySeen[st.AreaName] = true
			graph.Categories = append(graph.Categories, st.AreaName)
		}
	}

	links, err := s.linkRepo.Query(ctx, models.LinkFilter{Kind: models.LinkStepStep})
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if !includeEdge(l.SourceID, l.TargetID, inFocus, inComparison, internalOnly) {
			continue
		}
		graph.Edges = append(graph.Edges, &models.GraphEdge{
			ID:      l.ID,
			Source:  l.SourceID,
			Target:  l.TargetID,
			Score:   l.Score,
			Content: l.Content,
		})
	}

	s.logger.Debug("Built step graph",
		zap.Int64("focus_area_id", focusAreaID),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)))
	return graph, nil
}

// includeEdge keeps focus-internal edges when there is no comparison set, and
// otherwise edges with exactly one end in the focus area and the other in the comparison set.
func includeEdge(source, target int64, inFocus, inComparison map[int64]bool, internalOnly bool) bool {
	if internalOnly {
		return inFocus[source] && inFocus[target]
	}
	return (inFocus[source] && inComparison[target]) || (inComparison[source] && inFocus[target])
}
