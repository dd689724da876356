package search

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/scportal/search-api/internal/models"
)

// Row is one analytics result row keyed by column alias.
type Row map[string]interface{}

// FacetWeightKey is the JSON key carrying a study's facet match count.
const FacetWeightKey = "facet_search_weight"

// StudyFacetMatches records which filters of which facets matched one study.
type StudyFacetMatches struct {
	Facets map[string][]interface{}
	Weight int

	seen map[string]struct{}
}

// MarshalJSON flattens the matches into {facet_id: [...], facet_search_weight: n}.
func (m *StudyFacetMatches) MarshalJSON() ([]byte, error) {
	payload := make(map[string]interface{}, len(m.Facets)+1)
	for facet, matches := range m.Facets {
		payload[facet] = matches
	}
	payload[FacetWeightKey] = m.Weight
	return json.Marshal(payload)
}

// FacetIDs returns the matched facet identifiers, sorted.
func (m *StudyFacetMatches) FacetIDs() []string {
	ids := make([]string, 0, len(m.Facets))
	for id := range m.Facets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *StudyFacetMatches) add(facetID, key string, match interface{}) {
	dedupe := facetID + "\x00" + key
	if _, ok := m.seen[dedupe]; ok {
		return
	}
	m.seen[dedupe] = struct{}{}
	m.Facets[facetID] = append(m.Facets[facetID], match)
	m.Weight++
}

// FacetMatches maps study accessions to their facet matches.
type FacetMatches map[string]*StudyFacetMatches

// Accessions returns the matched accessions, sorted.
func (f FacetMatches) Accessions() []string {
	accessions := make([]string, 0, len(f))
	for accession := range f {
		accessions = append(accessions, accession)
	}
	sort.Strings(accessions)
	return accessions
}

// Weight returns the facet match weight for an accession.
func (f FacetMatches) Weight(accession string) int {
	if m, ok := f[accession]; ok {
		return m.Weight
	}
	return 0
}

// TrackFacetMatches maps analytics rows back to the selections that produced
// them. A repeated (accession, facet, filter) combination counts once.
func TrackFacetMatches(rows []Row, selections []models.FacetSelection) FacetMatches {
	byID := make(map[string]models.FacetSelection, len(selections))
	for _, selection := range selections {
		byID[selection.ID] = selection
	}

	matches := make(FacetMatches)
	for _, row := range rows {
		accession := fmt.Sprint(row[AccessionColumn])
		if row[AccessionColumn] == nil || accession == "" {
			continue
		}
		for column, value := range row {
			if column == AccessionColumn {
				continue
			}
			selection, ok := byID[strings.TrimSuffix(column, ValueSuffix)]
			if !ok {
				continue
			}
			key, match, ok := resolveMatch(selection, value)
			if !ok {
				continue
			}
			studyMatches, exists := matches[accession]
			if !exists {
				studyMatches = &StudyFacetMatches{Facets: make(map[string][]interface{}), seen: make(map[string]struct{})}
				matches[accession] = studyMatches
			}
			studyMatches.add(selection.ID, key, match)
		}
	}
	return matches
}

func resolveMatch(selection models.FacetSelection, value interface{}) (string, interface{}, bool) {
	if selection.Range != nil {
		r := *selection.Range
		return fmt.Sprintf("%v:%v:%s", r.Min, r.Max, r.Unit), r, true
	}
	if value == nil {
		return "", nil, false
	}
	id := fmt.Sprint(value)
	for _, filter := range selection.Filters {
		if filter.ID == id {
			return filter.ID, filter, true
		}
	}
	return "", nil, false
}
