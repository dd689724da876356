package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scportal/search-api/internal/dto"
	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/search"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type searchFacetRepository interface {
	All(ctx context.Context) ([]models.SearchFacet, error)
	UpdateFilters(ctx context.Context, facet *models.SearchFacet) error
}

// AnalyticsQuerier runs a query against the cell metadata table.
type AnalyticsQuerier interface {
	Query(ctx context.Context, sql string) ([]search.Row, error)
}

// cachedFacet mirrors models.SearchFacet with every column serialised, so a
// cached facet still carries its analytics column names.
type cachedFacet struct {
	ID                       string              `json:"id"`
	Identifier               string              `json:"identifier"`
	Name                     string              `json:"name"`
	DataType                 string              `json:"data_type"`
	IsArrayBased             bool                `json:"is_array_based"`
	IsOntologyBased          bool                `json:"is_ontology_based"`
	Unit                     *string             `json:"unit"`
	Min                      *float64            `json:"min"`
	Max                      *float64            `json:"max"`
	BigQueryIDColumn         string              `json:"big_query_id_column"`
	BigQueryNameColumn       string              `json:"big_query_name_column"`
	BigQueryConversionColumn *string             `json:"big_query_conversion_column"`
	Filters                  models.FacetFilters `json:"filters"`
	OntologyURLs             models.OntologyURLs `json:"ontology_urls"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// FacetService serves the search facet catalogue and keeps facet filters in
// step with the analytics table.
type FacetService struct {
	repo      searchFacetRepository
	analytics AnalyticsQuerier
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	table     string
	cacheTTL  time.Duration
}

// NewFacetService constructs a FacetService reading filter values from table.
func NewFacetService(repo searchFacetRepository, analytics AnalyticsQuerier, cache *CacheService, metrics *MetricsService, logger *zap.Logger, table string, cacheTTL time.Duration) *FacetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacetService{
		repo:      repo,
		analytics: analytics,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		table:     table,
		cacheTTL:  cacheTTL,
	}
}

func facetCacheKey() string {
	return CacheKey("facets")
}

// List returns every facet. The boolean reports a cache hit.
func (s *FacetService) List(ctx context.Context) ([]models.SearchFacet, bool, error) {
	var cached []cachedFacet
	if hit, err := s.cache.Get(ctx, facetCacheKey(), &cached); err == nil && hit {
		facets := make([]models.SearchFacet, len(cached))
		for i, facet := range cached {
			facets[i] = models.SearchFacet(facet)
		}
		return facets, true, nil
	}

	loaded, err := s.cache.Coalesce(facetCacheKey(), func() (interface{}, error) {
		start := time.Now()
		facets, err := s.repo.All(ctx)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.ObserveDBQuery("search_facets_all", time.Since(start))
		}

		entries := make([]cachedFacet, len(facets))
		for i, facet := range facets {
			entries[i] = cachedFacet(facet)
		}
		_ = s.cache.Set(ctx, facetCacheKey(), entries, s.cacheTTL)
		return facets, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := loaded.([]models.SearchFacet)
	facets := make([]models.SearchFacet, len(shared))
	copy(facets, shared)
	return facets, false, nil
}

// Lookup returns a resolver over the current facet catalogue.
func (s *FacetService) Lookup(ctx context.Context) (search.FacetLookup, error) {
	facets, _, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.SearchFacet, len(facets))
	for i := range facets {
		byID[facets[i].Identifier] = &facets[i]
	}
	return func(identifier string) (*models.SearchFacet, bool) {
		facet, ok := byID[identifier]
		return facet, ok
	}, nil
}

// Find returns one facet by identifier.
func (s *FacetService) Find(ctx context.Context, identifier string) (*models.SearchFacet, error) {
	lookup, err := s.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	facet, ok := lookup(identifier)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown facet: "+identifier)
	}
	return facet, nil
}

// SearchFilters returns the facet filters whose name contains query.
func (s *FacetService) SearchFilters(ctx context.Context, identifier, query string) (*dto.FacetFiltersResponse, error) {
	identifier = strings.TrimSpace(identifier)
	query = strings.TrimSpace(query)
	if identifier == "" || query == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "facet and query are required")
	}
	facet, err := s.Find(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &dto.FacetFiltersResponse{
		Facet:   facet.Identifier,
		Query:   query,
		Filters: search.FilterFacetFilters(facet, query),
	}, nil
}

// RefreshFilters reloads every facet's filters (or numeric bounds) from the
// analytics table. A facet whose queries fail or return nothing keeps its
// stored values. It returns the number of facets updated.
func (s *FacetService) RefreshFilters(ctx context.Context) (int, error) {
	facets, err := s.repo.All(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range facets {
		facet := &facets[i]
		log := s.logger.With(zap.String("facet", facet.Identifier))
		if err := s.refreshFacet(ctx, facet); err != nil {
			log.Error("facet filter refresh failed", zap.Error(err))
			continue
		}
		if err := s.repo.UpdateFilters(ctx, facet); err != nil {
			log.Error("facet filter update failed", zap.Error(err))
			continue
		}
		log.Info("facet filters refreshed", zap.Int("filters", len(facet.Filters)))
		updated++
	}

	if updated > 0 {
		_ = s.cache.Invalidate(ctx, facetCacheKey())
	}
	return updated, nil
}

func (s *FacetService) refreshFacet(ctx context.Context, facet *models.SearchFacet) error {
	queries, err := search.FilterValueQueries(s.table, facet)
	if err != nil {
		return err
	}
	results := make([][]search.Row, 0, len(queries))
	for _, query := range queries {
		start := time.Now()
		rows, err := s.analytics.Query(ctx, query)
		if s.metrics != nil {
			s.metrics.ObserveAnalyticsQuery(analyticsOutcome(err), time.Since(start))
		}
		if err != nil {
			return err
		}
		results = append(results, rows)
	}

	if facet.IsNumeric() {
		lo, hi, ok := search.NumericBounds(results[0])
		if !ok {
			return appErrors.Clone(appErrors.ErrUpstream, "no numeric bounds returned")
		}
		facet.Min, facet.Max = &lo, &hi
		return nil
	}

	filters := search.AssembleFilters(results)
	if len(filters) == 0 {
		return appErrors.Clone(appErrors.ErrUpstream, "no filter values returned")
	}
	facet.Filters = filters
	return nil
}
