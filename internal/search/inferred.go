package search

import (
	"sort"

	"github.com/scportal/search-api/internal/models"
)

// ConvertFiltersForInferredSearch turns the selected filters' display names
// into keyword lists keyed by facet identifier, with any free-text terms under
// KeywordsKey. Numeric facets cannot be expressed as keywords, so any numeric
// selection yields an empty map.
func ConvertFiltersForInferredSearch(terms []string, selections []models.FacetSelection) map[string][]string {
	converted := make(map[string][]string, len(selections)+1)
	for _, selection := range selections {
		if selection.Facet != nil && selection.Facet.IsNumeric() {
			return map[string][]string{}
		}
		if selection.Range != nil {
			return map[string][]string{}
		}
		if names := selection.FilterNames(); len(names) > 0 {
			converted[selection.ID] = names
		}
	}
	if len(terms) > 0 {
		converted[KeywordsKey] = append([]string(nil), terms...)
	}
	return converted
}

// InferredTermList flattens an inferred term map into the list used to weigh inferred matches.
func InferredTermList(termsByFacet map[string][]string) []string {
	var list []string
	seen := make(map[string]struct{})
	for _, key := range sortedKeys(termsByFacet) {
		for _, term := range termsByFacet[key] {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			list = append(list, term)
		}
	}
	return list
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
