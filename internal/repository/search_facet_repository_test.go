package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

var searchFacetColumnNames = []string{"id", "identifier", "name", "data_type", "is_array_based", "is_ontology_based", "unit", "min", "max",
	"big_query_id_column", "big_query_name_column", "big_query_conversion_column", "filters", "ontology_urls", "updated_at"}

func TestSearchFacetRepositoryFindByIdentifier(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSearchFacetRepository(db)

	rows := sqlmock.NewRows(searchFacetColumnNames).
		AddRow("1", "species", "species", "string", false, true, nil, nil, nil, "species", "species__ontology_label", nil,
			[]byte(`[{"id":"NCBITaxon_9606","name":"Homo sapiens"}]`),
			[]byte(`[{"name":"NCBI organismal classification","url":"https://www.ebi.ac.uk/ols/api/ontologies/ncbitaxon"}]`),
			time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM search_facets WHERE identifier = $1 LIMIT 1")).
		WithArgs("species").
		WillReturnRows(rows)

	facet, err := repo.FindByIdentifier(context.Background(), "species")
	require.NoError(t, err)
	assert.Equal(t, models.KindCategorical, facet.Kind())
	assert.Equal(t, models.FacetFilters{{ID: "NCBITaxon_9606", Name: "Homo sapiens"}}, facet.Filters)
	require.Len(t, facet.OntologyURLs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchFacetRepositoryFindByIdentifierMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSearchFacetRepository(db)

	mock.ExpectQuery("FROM search_facets").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByIdentifier(context.Background(), "nope")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSearchFacetRepositoryUpdateFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSearchFacetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE search_facets SET filters = $2, min = $3, max = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("1", sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	facet := &models.SearchFacet{ID: "1", Filters: models.FacetFilters{{ID: "a", Name: "A"}}}
	require.NoError(t, repo.UpdateFilters(context.Background(), facet))
	assert.False(t, facet.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
