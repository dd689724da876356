package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/scportal/search-api/pkg/errors"
)

func TestPresetSearchRepositoryFindByIdentifier(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPresetSearchRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "identifier", "accession_whitelist", "search_terms", "facet_filters", "public"}).
		AddRow("p1", "Covid studies", "covid-studies", "{SCP2,SCP1}", `{"lung cells",covid}`, "{disease:MONDO_0100096}", true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM preset_searches WHERE identifier = $1 AND public = TRUE")).
		WithArgs("covid-studies").
		WillReturnRows(rows)

	preset, err := repo.FindByIdentifier(context.Background(), "covid-studies")
	require.NoError(t, err)
	assert.Equal(t, []string{"SCP2", "SCP1"}, []string(preset.AccessionWhitelist))
	assert.Equal(t, `"lung cells" covid`, preset.KeywordQueryString())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBrandingGroupRepositoryFindByNameAsIDMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBrandingGroupRepository(db)

	mock.ExpectQuery("FROM branding_groups").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByNameAsID(context.Background(), "nope")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGeneRepositoryFindInStudies(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGeneRepository(db)

	rows := sqlmock.NewRows([]string{"id", "study_id", "name", "searchable_name", "gene_id"}).
		AddRow("g1", "s1", "PTEN", "pten", "ENSG00000171862")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE study_id = ANY($1) AND (searchable_name = ANY($2) OR gene_id = ANY($3))")).
		WithArgs(pq.Array([]string{"s1"}), pq.Array([]string{"pten"}), pq.Array([]string{"PTEN"})).
		WillReturnRows(rows)

	genes, err := repo.FindInStudies(context.Background(), []string{"s1"}, []string{"PTEN"})
	require.NoError(t, err)
	require.Len(t, genes, 1)
	assert.Equal(t, "PTEN", genes[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
