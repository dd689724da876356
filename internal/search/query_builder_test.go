package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/internal/models"
)

func TestBuildAnalyticsQueryArrayAndNumeric(t *testing.T) {
	disease := diseaseFacet()
	age := ageFacet()
	age.Identifier = "age"
	age.BigQueryIDColumn = "organism_age"
	selections := []models.FacetSelection{
		{ID: "disease", Facet: disease, Filters: []models.FacetFilter{{ID: "D1"}, {ID: "D2"}}},
		{ID: "age", Facet: age, Range: &models.NumericRange{Min: 20, Max: 60}},
	}

	query, err := BuildAnalyticsQuery("alexandria_convention", selections)
	require.NoError(t, err)

	assert.Equal(t, []string{"disease_filters AS (SELECT ['D1', 'D2'] AS disease_value)"}, query.With)
	require.Len(t, query.Where, 2)
	assert.Equal(t, "disease_val IN UNNEST(disease)", query.Where[0])
	assert.Equal(t, "organism_age BETWEEN 20 AND 60", query.Where[1])

	sql := query.String()
	assert.Equal(t, 1, strings.Count(sql, "WITH "))
	assert.Contains(t, sql, "BETWEEN 20 AND 60")
	assert.Contains(t, sql, " WHERE disease_val IN UNNEST(disease) AND organism_age BETWEEN 20 AND 60")
	assert.Equal(t,
		"WITH disease_filters AS (SELECT ['D1', 'D2'] AS disease_value) "+
			"SELECT DISTINCT study_accession, disease_val, organism_age AS age_val "+
			"FROM alexandria_convention, disease_filters, UNNEST(disease_filters.disease_value) AS disease_val "+
			"WHERE disease_val IN UNNEST(disease) AND organism_age BETWEEN 20 AND 60",
		sql)
}

func TestBuildAnalyticsQueryFlatCategorical(t *testing.T) {
	selections := []models.FacetSelection{
		{ID: "species", Facet: speciesFacet(), Filters: []models.FacetFilter{{ID: "NCBITaxon_9606"}, {ID: "NCBITaxon_10090"}}},
	}
	query, err := BuildAnalyticsQuery("alexandria_convention", selections)
	require.NoError(t, err)
	assert.Empty(t, query.With)
	assert.Equal(t, []string{"species IN ('NCBITaxon_9606', 'NCBITaxon_10090')"}, query.Where)
	assert.Equal(t, []string{"species AS species_val"}, query.Select)
}

func TestBuildAnalyticsQueryConvertsNumericUnits(t *testing.T) {
	facet := ageFacet()
	facet.BigQueryConversionColumn = strPtr("organism_age__seconds")
	selections := []models.FacetSelection{
		{ID: "organism_age", Facet: facet, Range: &models.NumericRange{Min: 1, Max: 2, Unit: "days"}},
	}
	query, err := BuildAnalyticsQuery("alexandria_convention", selections)
	require.NoError(t, err)
	assert.Equal(t, []string{"organism_age__seconds BETWEEN 86400 AND 172800"}, query.Where)
	assert.Equal(t, []string{"organism_age__seconds AS organism_age_val"}, query.Select)
}

func TestBuildAnalyticsQueryEscapesLiterals(t *testing.T) {
	selections := []models.FacetSelection{
		{ID: "species", Facet: speciesFacet(), Filters: []models.FacetFilter{{ID: `x') OR ('1'='1`}}},
	}
	query, err := BuildAnalyticsQuery("alexandria_convention", selections)
	require.NoError(t, err)
	assert.Equal(t, []string{`species IN ('x\') OR (\'1\'=\'1')`}, query.Where)
}

func TestBuildAnalyticsQueryRejectsUnsafeIdentifiers(t *testing.T) {
	facet := speciesFacet()
	facet.BigQueryIDColumn = "species; DROP TABLE x"
	_, err := BuildAnalyticsQuery("alexandria_convention", []models.FacetSelection{
		{ID: "species", Facet: facet, Filters: []models.FacetFilter{{ID: "a"}}},
	})
	assert.Error(t, err)

	_, err = BuildAnalyticsQuery("bad table", nil)
	assert.Error(t, err)
}
