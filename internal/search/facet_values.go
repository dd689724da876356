package search

import (
	"fmt"
	"strconv"

	"github.com/scportal/search-api/internal/models"
)

// FilterValueQueries returns the queries that list a facet's distinct values.
// Array facets need one query per column; their results line up by position.
// Numeric facets read the column bounds instead.
func FilterValueQueries(table string, facet *models.SearchFacet) ([]string, error) {
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid analytics table %q", table)
	}
	columns := []string{facet.BigQueryIDColumn}
	if !facet.IsNumeric() {
		columns = append(columns, facet.BigQueryNameColumn)
	}
	for _, column := range columns {
		if !identifierPattern.MatchString(column) {
			return nil, fmt.Errorf("invalid column %q for facet %s", column, facet.Identifier)
		}
	}
	switch facet.Kind() {
	case models.KindNumeric:
		column := facet.BigQueryIDColumn
		return []string{fmt.Sprintf("SELECT MIN(%s) AS min, MAX(%s) AS max FROM %s", column, column, table)}, nil
	case models.KindArrayCategorical:
		return []string{
			arrayValueQuery(table, facet.BigQueryIDColumn, "id"),
			arrayValueQuery(table, facet.BigQueryNameColumn, "name"),
		}, nil
	case models.KindCategorical:
		return []string{fmt.Sprintf("SELECT DISTINCT %s AS id, %s AS name FROM %s",
			facet.BigQueryIDColumn, facet.BigQueryNameColumn, table)}, nil
	default:
		return nil, fmt.Errorf("unhandled facet kind %s", facet.Kind())
	}
}

func arrayValueQuery(table, column, alias string) string {
	return fmt.Sprintf("SELECT DISTINCT %s FROM(SELECT array_col AS %s FROM %s, UNNEST(%s) AS array_col WITH OFFSET AS offset ORDER BY offset)",
		alias, alias, table, column)
}

// AssembleFilters turns value query results into facet filters. With two
// result sets the ids and names are paired by position.
func AssembleFilters(results [][]Row) models.FacetFilters {
	filters := make(models.FacetFilters, 0)
	switch len(results) {
	case 1:
		for _, row := range results[0] {
			if filter, ok := rowFilter(row["id"], row["name"]); ok {
				filters = append(filters, filter)
			}
		}
	case 2:
		ids, names := results[0], results[1]
		for i, row := range ids {
			var name interface{}
			if i < len(names) {
				name = names[i]["name"]
			}
			if filter, ok := rowFilter(row["id"], name); ok {
				filters = append(filters, filter)
			}
		}
	}
	return filters
}

func rowFilter(id, name interface{}) (models.FacetFilter, bool) {
	if id == nil {
		return models.FacetFilter{}, false
	}
	filter := models.FacetFilter{ID: fmt.Sprint(id), Name: fmt.Sprint(id)}
	if name != nil {
		filter.Name = fmt.Sprint(name)
	}
	return filter, filter.ID != ""
}

// NumericBounds reads the min and max columns of a numeric value query.
func NumericBounds(rows []Row) (lo, hi float64, ok bool) {
	if len(rows) == 0 {
		return 0, 0, false
	}
	lo, okLo := toFloat(rows[0]["min"])
	hi, okHi := toFloat(rows[0]["max"])
	return lo, hi, okLo && okHi
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
