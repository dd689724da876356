package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/search"
)

var studyColumnNames = []string{"id", "accession", "name", "description", "public", "detached", "queued_for_deletion",
	"user_id", "branding_group_id", "bucket_id", "view_count", "view_order", "cell_count", "gene_count", "created_at"}

func studyRow(rows *sqlmock.Rows, id, accession, name string) *sqlmock.Rows {
	return rows.AddRow(id, accession, name, "", true, false, false, "owner", nil, "fc-"+id, int64(0), float64(1), int64(0), int64(0), time.Now())
}

func TestStudyRepositoryViewableAnonymous(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudyRepository(db)

	rows := studyRow(sqlmock.NewRows(studyColumnNames), "s1", "SCP1", "Public study")
	mock.ExpectQuery(regexp.QuoteMeta("FROM studies WHERE queued_for_deletion = FALSE AND public = TRUE ORDER BY view_order ASC")).
		WillReturnRows(rows)

	studies, err := repo.Viewable(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Equal(t, "SCP1", studies[0].Accession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyRepositoryViewableSignedIn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(public = TRUE OR user_id = $1 OR id IN (SELECT study_id FROM study_shares WHERE email = $2))")).
		WithArgs("u1", "user@example.com").
		WillReturnRows(sqlmock.NewRows(studyColumnNames))

	_, err := repo.Viewable(context.Background(), &models.User{ID: "u1", Email: "user@example.com"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyRepositoryFindByCriteria(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudyRepository(db)

	criteria := search.GenerateCriteria([]string{"blood"}, []string{"s1"}, nil, search.ContextPhrase)
	rows := studyRow(sqlmock.NewRows(studyColumnNames), "s1", "SCP1", "Blood")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1) AND (name ~* $2 OR description ~* $2)")).
		WithArgs(pq.Array([]string{"s1"}), "blood").
		WillReturnRows(rows)

	studies, err := repo.FindByCriteria(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyRepositoryExistingAccessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT accession FROM studies WHERE accession = ANY($1)")).
		WithArgs(pq.Array([]string{"SCP1", "SCP2"})).
		WillReturnRows(sqlmock.NewRows([]string{"accession"}).AddRow("SCP1"))

	found, err := repo.ExistingAccessions(context.Background(), []string{"SCP1", "SCP2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SCP1"}, found)

	empty, err := repo.ExistingAccessions(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyRepositoryViewableByAccessionsAdmin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE accession = ANY($1) AND queued_for_deletion = FALSE ORDER BY accession ASC")).
		WithArgs(pq.Array([]string{"SCP1"})).
		WillReturnRows(studyRow(sqlmock.NewRows(studyColumnNames), "s1", "SCP1", "Private"))

	studies, err := repo.ViewableByAccessions(context.Background(), &models.User{ID: "admin", Admin: true}, []string{"SCP1"})
	require.NoError(t, err)
	assert.Len(t, studies, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
