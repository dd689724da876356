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

// BrandingGroupRepository reads branding groups.
type BrandingGroupRepository struct {
	db *sqlx.DB
}

// NewBrandingGroupRepository constructs the repository.
func NewBrandingGroupRepository(db *sqlx.DB) *BrandingGroupRepository {
	return &BrandingGroupRepository{db: db}
}

// FindByNameAsID returns the group addressed by the scpbr parameter.
func (r *BrandingGroupRepository) FindByNameAsID(ctx context.Context, nameAsID string) (*models.BrandingGroup, error) {
	const query = `SELECT id, name, name_as_id FROM branding_groups WHERE name_as_id = $1 LIMIT 1`
	var group models.BrandingGroup
	if err := r.db.GetContext(ctx, &group, query, nameAsID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown branding group %s", nameAsID))
		}
		return nil, fmt.Errorf("find branding group: %w", err)
	}
	return &group, nil
}
