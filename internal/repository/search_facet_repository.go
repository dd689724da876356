package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

const searchFacetColumns = `id, identifier, name, data_type, is_array_based, is_ontology_based, unit, min, max,
big_query_id_column, big_query_name_column, big_query_conversion_column, filters, ontology_urls, updated_at`

// SearchFacetRepository persists the facet catalogue.
type SearchFacetRepository struct {
	db *sqlx.DB
}

// NewSearchFacetRepository constructs the repository.
func NewSearchFacetRepository(db *sqlx.DB) *SearchFacetRepository {
	return &SearchFacetRepository{db: db}
}

// All returns every facet ordered by name.
func (r *SearchFacetRepository) All(ctx context.Context) ([]models.SearchFacet, error) {
	query := fmt.Sprintf("SELECT %s FROM search_facets ORDER BY name ASC", searchFacetColumns)
	var facets []models.SearchFacet
	if err := r.db.SelectContext(ctx, &facets, query); err != nil {
		return nil, fmt.Errorf("list search facets: %w", err)
	}
	return facets, nil
}

// FindByIdentifier returns a facet by its public identifier.
func (r *SearchFacetRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.SearchFacet, error) {
	query := fmt.Sprintf("SELECT %s FROM search_facets WHERE identifier = $1 LIMIT 1", searchFacetColumns)
	var facet models.SearchFacet
	if err := r.db.GetContext(ctx, &facet, query, identifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown facet %s", identifier))
		}
		return nil, fmt.Errorf("find search facet: %w", err)
	}
	return &facet, nil
}

// UpdateFilters stores refreshed filter values and, for numeric facets, bounds.
func (r *SearchFacetRepository) UpdateFilters(ctx context.Context, facet *models.SearchFacet) error {
	facet.UpdatedAt = time.Now().UTC()
	const query = `UPDATE search_facets SET filters = $2, min = $3, max = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, facet.ID, facet.Filters, facet.Min, facet.Max, facet.UpdatedAt); err != nil {
		return fmt.Errorf("update search facet filters: %w", err)
	}
	return nil
}
