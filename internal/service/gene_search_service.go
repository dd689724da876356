package service

import (
	"context"
	"strings"
	"time"

	"github.com/scportal/search-api/internal/models"
)

// MaxGeneSearch caps how many genes one search may request.
const MaxGeneSearch = 50

type geneRepository interface {
	FindInStudies(ctx context.Context, studyIDs []string, names []string) ([]models.Gene, error)
}

// GeneSearchResult lists the studies expressing any requested gene.
type GeneSearchResult struct {
	StudyIDs     []string
	GenesByStudy map[string][]string
}

// GeneSearchService narrows candidate studies to those expressing requested genes.
type GeneSearchService struct {
	repo    geneRepository
	metrics *MetricsService
}

// NewGeneSearchService constructs a GeneSearchService.
func NewGeneSearchService(repo geneRepository, metrics *MetricsService) *GeneSearchService {
	return &GeneSearchService{repo: repo, metrics: metrics}
}

// ParseGeneParam splits the genes parameter on commas when present and on
// whitespace otherwise, keeping at most MaxGeneSearch names.
func ParseGeneParam(raw string) []string {
	var parts []string
	if strings.Contains(raw, ",") {
		parts = strings.Split(raw, ",")
	} else {
		parts = strings.Fields(raw)
	}
	genes := make([]string, 0, len(parts))
	for _, part := range parts {
		if gene := strings.TrimSpace(part); gene != "" {
			genes = append(genes, gene)
		}
	}
	if len(genes) > MaxGeneSearch {
		genes = genes[:MaxGeneSearch]
	}
	return genes
}

// FindStudiesByGenes returns the candidate studies with a matching gene and
// the matched gene names per study, both without duplicates.
func (s *GeneSearchService) FindStudiesByGenes(ctx context.Context, raw string, studyIDs []string) (*GeneSearchResult, error) {
	result := &GeneSearchResult{StudyIDs: []string{}, GenesByStudy: map[string][]string{}}
	genes := ParseGeneParam(raw)
	if len(genes) == 0 || len(studyIDs) == 0 {
		return result, nil
	}

	start := time.Now()
	matches, err := s.repo.FindInStudies(ctx, studyIDs, genes)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("genes_in_studies", time.Since(start))
	}

	seen := make(map[string]struct{})
	for _, gene := range matches {
		names, ok := result.GenesByStudy[gene.StudyID]
		if !ok {
			result.StudyIDs = append(result.StudyIDs, gene.StudyID)
		}
		key := gene.StudyID + "\x00" + gene.SearchableName
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.GenesByStudy[gene.StudyID] = append(names, gene.SearchableName)
	}
	return result, nil
}
