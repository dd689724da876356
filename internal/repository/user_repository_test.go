package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/scportal/search-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "admin", "daily_download_quota", "created_at", "updated_at"}).
		AddRow("u1", "user@example.com", false, int64(1024), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, admin, daily_download_quota, created_at, updated_at FROM users WHERE id = $1 LIMIT 1")).
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, int64(1024), user.DailyDownloadQuota)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUserRepositoryAddDownloadBytes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET daily_download_quota = daily_download_quota + $2")).
		WithArgs("u1", int64(500), int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"daily_download_quota"}).AddRow(int64(1500)))

	total, err := repo.AddDownloadBytes(context.Background(), "u1", 500, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryAddDownloadBytesOverQuota(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("UPDATE users SET daily_download_quota").
		WithArgs("u1", int64(5000), int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"daily_download_quota"}))

	_, err := repo.AddDownloadBytes(context.Background(), "u1", 5000, 2000)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQuotaExceeded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryResetDailyQuotas(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET daily_download_quota = 0")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.ResetDailyQuotas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
}
