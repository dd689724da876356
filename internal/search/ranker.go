package search

import (
	"sort"

	"github.com/scportal/search-api/internal/models"
)

// SortType names the ordering applied to primary search results.
type SortType string

const (
	SortNone      SortType = "none"
	SortWhitelist SortType = "whitelist"
	SortKeyword   SortType = "keyword"
	SortAccession SortType = "accession"
	SortFacet     SortType = "facet"
	SortRecent    SortType = "recent"
	SortPopular   SortType = "popular"
)

// accessionFallbackIndex places description-only accession matches after identity matches.
const accessionFallbackIndex = 9999

// RankState captures which search paths fired for a request.
type RankState struct {
	HasWhitelist       bool
	HasTerms           bool
	AllTermsAccessions bool
	HasFacets          bool
	HasCandidates      bool
	Order              models.SearchOrder
}

// ChooseSortType applies the sort precedence. Later rules override earlier
// ones: whitelist, then keyword or accession, then facet, then an explicit order.
func ChooseSortType(state RankState) SortType {
	sortType := SortNone
	if state.HasWhitelist && !state.HasTerms {
		sortType = SortWhitelist
	}
	if state.HasTerms {
		sortType = SortKeyword
		if state.AllTermsAccessions {
			sortType = SortAccession
		}
	}
	if state.HasCandidates && state.HasFacets {
		sortType = SortFacet
	}
	switch state.Order {
	case models.OrderRecent:
		sortType = SortRecent
	case models.OrderPopular:
		sortType = SortPopular
	}
	return sortType
}

// RankInput carries the data each sort type needs.
type RankInput struct {
	SortType     SortType
	TermList     []string
	Accessions   []string
	Whitelist    []string
	FacetMatches FacetMatches
}

// Rank returns a stably sorted copy of studies.
func Rank(studies []models.Study, in RankInput) []models.Study {
	ranked := append([]models.Study(nil), studies...)
	switch in.SortType {
	case SortWhitelist:
		index := positions(in.Whitelist)
		sortByFloat(ranked, func(s *models.Study) float64 {
			if i, ok := index[s.Accession]; ok {
				return float64(i)
			}
			return float64(len(in.Whitelist))
		}, false)
	case SortKeyword:
		sortByFloat(ranked, func(s *models.Study) float64 {
			return s.SearchWeight(in.TermList).Total
		}, true)
	case SortAccession:
		index := positions(in.Accessions)
		sortByFloat(ranked, func(s *models.Study) float64 {
			if i, ok := index[s.Accession]; ok {
				return float64(i)
			}
			return accessionFallbackIndex - s.SearchWeight(in.TermList).Total
		}, false)
	case SortFacet:
		sortByFloat(ranked, func(s *models.Study) float64 {
			return float64(in.FacetMatches.Weight(s.Accession))
		}, true)
	case SortRecent:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
		})
	case SortPopular:
		sortByFloat(ranked, func(s *models.Study) float64 {
			return float64(s.ViewCount)
		}, true)
	default:
		sortByFloat(ranked, func(s *models.Study) float64 {
			return s.ViewOrder
		}, false)
	}
	return ranked
}

// RankInferred orders inferred matches by their weight against the inferred term list.
func RankInferred(studies []models.Study, inferredTerms []string) []models.Study {
	ranked := append([]models.Study(nil), studies...)
	sortByFloat(ranked, func(s *models.Study) float64 {
		return s.SearchWeight(inferredTerms).Total
	}, true)
	return ranked
}

func sortByFloat(studies []models.Study, key func(*models.Study) float64, descending bool) {
	keys := make(map[string]float64, len(studies))
	for i := range studies {
		keys[studies[i].Accession] = key(&studies[i])
	}
	sort.SliceStable(studies, func(i, j int) bool {
		a, b := keys[studies[i].Accession], keys[studies[j].Accession]
		if descending {
			return a > b
		}
		return a < b
	})
}

func positions(values []string) map[string]int {
	index := make(map[string]int, len(values))
	for i, value := range values {
		if _, ok := index[value]; !ok {
			index[value] = i
		}
	}
	return index
}

// DedupeByAccession keeps the first study for each accession.
func DedupeByAccession(studies []models.Study) []models.Study {
	seen := make(map[string]struct{}, len(studies))
	result := make([]models.Study, 0, len(studies))
	for _, study := range studies {
		if _, ok := seen[study.Accession]; ok {
			continue
		}
		seen[study.Accession] = struct{}{}
		result = append(result, study)
	}
	return result
}

// Paginate returns the requested page and the total page count. Pages start at 1.
func Paginate(studies []models.Study, page, perPage int) ([]models.Study, int) {
	if perPage <= 0 {
		perPage = len(studies)
		if perPage == 0 {
			return []models.Study{}, 0
		}
	}
	if page < 1 {
		page = 1
	}
	totalPages := (len(studies) + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start >= len(studies) {
		return []models.Study{}, totalPages
	}
	end := start + perPage
	if end > len(studies) {
		end = len(studies)
	}
	return studies[start:end], totalPages
}
