package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

const configurationColumns = `key, value, type, multiplier, description, updated_at`

// ConfigurationRepository persists admin configuration entries.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get fetches a single configuration by key.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	query := `SELECT ` + configurationColumns + ` FROM configurations WHERE key = $1`
	var cfg models.Configuration
	if err := r.db.GetContext(ctx, &cfg, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("configuration %q not set", key))
		}
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	return &cfg, nil
}

// ListByKeys returns the stored entries among keys.
func (r *ConfigurationRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if len(keys) == 0 {
		return []models.Configuration{}, nil
	}
	query := `SELECT ` + configurationColumns + ` FROM configurations WHERE key = ANY($1) ORDER BY key`
	var cfgs []models.Configuration
	if err := r.db.SelectContext(ctx, &cfgs, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return cfgs, nil
}

// Upsert inserts or replaces an entry and stamps its update time.
func (r *ConfigurationRepository) Upsert(ctx context.Context, cfg *models.Configuration) error {
	const query = `INSERT INTO configurations (key, value, type, multiplier, description, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type,
multiplier = EXCLUDED.multiplier, description = EXCLUDED.description, updated_at = NOW()
RETURNING updated_at`
	if err := r.db.GetContext(ctx, &cfg.UpdatedAt, query, cfg.Key, cfg.Value, cfg.Type, cfg.Multiplier, cfg.Description); err != nil {
		return fmt.Errorf("upsert configuration: %w", err)
	}
	return nil
}
