package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

// PresetSearchRepository reads stored preset searches.
type PresetSearchRepository struct {
	db *sqlx.DB
}

// NewPresetSearchRepository constructs the repository.
func NewPresetSearchRepository(db *sqlx.DB) *PresetSearchRepository {
	return &PresetSearchRepository{db: db}
}

// FindByIdentifier returns a public preset search.
func (r *PresetSearchRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.PresetSearch, error) {
	const query = `SELECT id, name, identifier, accession_whitelist, search_terms, facet_filters, public
FROM preset_searches WHERE identifier = $1 AND public = TRUE LIMIT 1`
	var preset models.PresetSearch
	if err := r.db.GetContext(ctx, &preset, query, identifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown preset search %s", identifier))
		}
		return nil, fmt.Errorf("find preset search: %w", err)
	}
	return &preset, nil
}
