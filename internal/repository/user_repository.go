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

// UserRepository provides database access for portal users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, admin, daily_download_quota, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// AddDownloadBytes debits the user's daily quota in one conditional update and
// returns the new total. When the debit would exceed the ceiling nothing is
// written and ErrQuotaExceeded is returned.
func (r *UserRepository) AddDownloadBytes(ctx context.Context, id string, bytes, ceiling int64) (int64, error) {
	const query = `UPDATE users SET daily_download_quota = daily_download_quota + $2, updated_at = NOW()
WHERE id = $1 AND daily_download_quota + $2 <= $3
RETURNING daily_download_quota`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, id, bytes, ceiling); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.ErrQuotaExceeded
		}
		return 0, fmt.Errorf("update download quota: %w", err)
	}
	return total, nil
}

// ResetDailyQuotas zeroes every user's download total and returns the rows touched.
func (r *UserRepository) ResetDailyQuotas(ctx context.Context) (int64, error) {
	const query = `UPDATE users SET daily_download_quota = 0 WHERE daily_download_quota <> 0`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("reset download quotas: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset download quotas rows: %w", err)
	}
	return affected, nil
}
