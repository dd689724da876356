package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

// FacetQuery is one facet identifier and its raw filter tokens from the facets parameter.
type FacetQuery struct {
	ID     string
	Tokens []string
}

// ParseFacetQuery splits a facets parameter of the form
// "facet_id:value+facet_id_2:value_2,value_3". Segments may be separated by
// '+' or by a space, since '+' decodes to a space in query strings.
func ParseFacetQuery(raw string) ([]FacetQuery, error) {
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '+' || r == ' '
	})
	queries := make([]FacetQuery, 0, len(segments))
	for _, segment := range segments {
		id, values, ok := strings.Cut(segment, ":")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, appErrors.Clone(appErrors.ErrInvalidFacetQuery, fmt.Sprintf("malformed facet query %q", segment))
		}
		var tokens []string
		for _, value := range strings.Split(values, ",") {
			if value = strings.TrimSpace(value); value != "" {
				tokens = append(tokens, value)
			}
		}
		queries = append(queries, FacetQuery{ID: strings.TrimSpace(id), Tokens: tokens})
	}
	return queries, nil
}

// MatchFilters resolves raw tokens against a facet. A nil selection with a nil
// error means the facet contributes nothing to the query.
func MatchFilters(facet *models.SearchFacet, tokens []string) (*models.FacetSelection, error) {
	if facet == nil {
		return nil, nil
	}
	switch facet.Kind() {
	case models.KindNumeric:
		return matchNumeric(facet, tokens)
	case models.KindCategorical, models.KindArrayCategorical:
		return matchCategorical(facet, tokens), nil
	default:
		return nil, fmt.Errorf("unhandled facet kind %s", facet.Kind())
	}
}

func matchCategorical(facet *models.SearchFacet, tokens []string) *models.FacetSelection {
	requested := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		requested[token] = struct{}{}
	}
	var matched []models.FacetFilter
	for _, filter := range facet.Filters {
		if _, ok := requested[filter.ID]; ok {
			matched = append(matched, filter)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return &models.FacetSelection{ID: facet.Identifier, Facet: facet, Filters: matched}
}

func matchNumeric(facet *models.SearchFacet, tokens []string) (*models.FacetSelection, error) {
	values := append([]string(nil), tokens...)
	var unit string
	if len(values) > 2 && IsTimeUnit(values[len(values)-1]) {
		unit = values[len(values)-1]
		values = values[:len(values)-1]
	}
	if len(values) < 2 {
		return nil, appErrors.Clone(appErrors.ErrInvalidFacetQuery, fmt.Sprintf("facet %s requires a min and max value", facet.Identifier))
	}
	minValue, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFacetQuery.Code, appErrors.ErrInvalidFacetQuery.Status,
			fmt.Sprintf("invalid minimum %q for facet %s", values[0], facet.Identifier))
	}
	maxValue, err := strconv.ParseFloat(values[1], 64)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFacetQuery.Code, appErrors.ErrInvalidFacetQuery.Status,
			fmt.Sprintf("invalid maximum %q for facet %s", values[1], facet.Identifier))
	}

	facetMin, facetMax := facet.Bounds()
	if unit != "" && facet.MustConvert() {
		facetMin = ConvertTime(facetMin, facet.UnitName(), unit)
		facetMax = ConvertTime(facetMax, facet.UnitName(), unit)
	}
	if unit == "" {
		unit = facet.UnitName()
	}

	// Either bound inside the facet range is enough to match.
	if withinRange(minValue, facetMin, facetMax) || withinRange(maxValue, facetMin, facetMax) {
		return &models.FacetSelection{
			ID:    facet.Identifier,
			Facet: facet,
			Range: &models.NumericRange{Min: minValue, Max: maxValue, Unit: unit},
		}, nil
	}
	return nil, nil
}

func withinRange(value, lo, hi float64) bool {
	return value >= lo && value <= hi
}

// FacetLookup resolves facet identifiers.
type FacetLookup func(identifier string) (*models.SearchFacet, bool)

// ResolveFacets parses the facets parameter and matches every known facet.
// Unknown facets and facets that match nothing are skipped.
func ResolveFacets(raw string, lookup FacetLookup) ([]models.FacetSelection, error) {
	queries, err := ParseFacetQuery(raw)
	if err != nil {
		return nil, err
	}
	selections := make([]models.FacetSelection, 0, len(queries))
	for _, query := range queries {
		facet, ok := lookup(query.ID)
		if !ok {
			continue
		}
		selection, err := MatchFilters(facet, query.Tokens)
		if err != nil {
			return nil, err
		}
		if selection != nil {
			selections = append(selections, *selection)
		}
	}
	return selections, nil
}

// FilterFacetFilters returns the facet filters whose display name contains
// query, ignoring case.
func FilterFacetFilters(facet *models.SearchFacet, query string) []models.FacetFilter {
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]models.FacetFilter, 0)
	for _, filter := range facet.Filters {
		if strings.Contains(strings.ToLower(filter.Name), needle) {
			matches = append(matches, filter)
		}
	}
	return matches
}
