package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/scportal/search-api/internal/models"
)

// AccessionColumn is the study accession column of the analytics table.
const AccessionColumn = "study_accession"

// ValueSuffix is appended to a facet identifier to alias its matched value column.
const ValueSuffix = "_val"

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	tablePattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// AnalyticsQuery is a facet query against the analytics table, kept as clause
// lists until rendered.
type AnalyticsQuery struct {
	Table  string
	With   []string
	Select []string
	From   []string
	Where  []string
}

// String renders the query in the analytics engine's SQL dialect.
func (q AnalyticsQuery) String() string {
	var b strings.Builder
	if len(q.With) > 0 {
		b.WriteString("WITH ")
		b.WriteString(strings.Join(q.With, ", "))
		b.WriteString(" ")
	}
	b.WriteString("SELECT DISTINCT ")
	b.WriteString(strings.Join(append([]string{AccessionColumn}, q.Select...), ", "))
	b.WriteString(" FROM ")
	b.WriteString(strings.Join(append([]string{q.Table}, q.From...), ", "))
	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.Where, " AND "))
	}
	return b.String()
}

// BuildAnalyticsQuery composes one query matching every selection. Array
// columns are joined through a literal array CTE and a single UNNEST so that
// several array facets do not multiply rows.
func BuildAnalyticsQuery(table string, selections []models.FacetSelection) (AnalyticsQuery, error) {
	if !tablePattern.MatchString(table) {
		return AnalyticsQuery{}, fmt.Errorf("invalid analytics table %q", table)
	}
	query := AnalyticsQuery{Table: table}
	for _, selection := range selections {
		facet := selection.Facet
		if facet == nil {
			return AnalyticsQuery{}, fmt.Errorf("facet selection %s has no facet", selection.ID)
		}
		id := facet.Identifier
		if !identifierPattern.MatchString(id) {
			return AnalyticsQuery{}, fmt.Errorf("invalid facet identifier %q", id)
		}
		column := facet.BigQueryIDColumn
		if !identifierPattern.MatchString(column) {
			return AnalyticsQuery{}, fmt.Errorf("invalid column %q for facet %s", column, id)
		}
		alias := id + ValueSuffix

		switch facet.Kind() {
		case models.KindArrayCategorical:
			cte := id + "_filters"
			query.With = append(query.With, fmt.Sprintf("%s AS (SELECT [%s] AS %s_value)", cte, quoteList(selection.FilterIDs()), id))
			query.From = append(query.From, cte, fmt.Sprintf("UNNEST(%s.%s_value) AS %s", cte, id, alias))
			query.Where = append(query.Where, fmt.Sprintf("%s IN UNNEST(%s)", alias, column))
			query.Select = append(query.Select, alias)
		case models.KindNumeric:
			if selection.Range == nil {
				return AnalyticsQuery{}, fmt.Errorf("numeric facet %s has no range", id)
			}
			minValue, maxValue := selection.Range.Min, selection.Range.Max
			if facet.MustConvert() {
				column = *facet.BigQueryConversionColumn
				if !identifierPattern.MatchString(column) {
					return AnalyticsQuery{}, fmt.Errorf("invalid conversion column %q for facet %s", column, id)
				}
				unit := selection.Range.Unit
				if unit == "" {
					unit = facet.UnitName()
				}
				minValue, maxValue = ToSeconds(minValue, unit), ToSeconds(maxValue, unit)
			}
			query.Where = append(query.Where, fmt.Sprintf("%s BETWEEN %s AND %s", column, formatNumber(minValue), formatNumber(maxValue)))
			query.Select = append(query.Select, fmt.Sprintf("%s AS %s", column, alias))
		case models.KindCategorical:
			query.Where = append(query.Where, fmt.Sprintf("%s IN (%s)", column, quoteList(selection.FilterIDs())))
			query.Select = append(query.Select, fmt.Sprintf("%s AS %s", column, alias))
		default:
			return AnalyticsQuery{}, fmt.Errorf("unhandled facet kind %s", facet.Kind())
		}
	}
	return query, nil
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, value := range values {
		quoted[i] = quoteLiteral(value)
	}
	return strings.Join(quoted, ", ")
}

func quoteLiteral(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
