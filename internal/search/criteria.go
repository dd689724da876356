package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// KeywordsKey holds free-text terms in an inferred term map.
const KeywordsKey = "keywords"

// studyDocument is the text indexed for keyword search.
const studyDocument = `to_tsvector('english', coalesce(name, '') || ' ' || coalesce(description, ''))`

// Criteria describes one text match against the studies table.
type Criteria struct {
	Context           QueryContext
	Terms             []string
	Pattern           string
	BaseStudyIDs      []string
	IncludeAccessions []string
	ExcludeAccessions []string
}

// GenerateCriteria builds the criteria for a keyword or phrase search scoped to
// the candidate studies. Accessions are always matched by identity.
// Unrecognised contexts fall back to keyword matching.
func GenerateCriteria(terms []string, baseStudyIDs []string, accessions []string, context QueryContext) Criteria {
	criteria := Criteria{
		Context:           context,
		Terms:             terms,
		BaseStudyIDs:      baseStudyIDs,
		IncludeAccessions: accessions,
	}
	switch context {
	case ContextPhrase:
		criteria.Pattern = AlternationPattern(terms)
	default:
		criteria.Context = ContextKeyword
	}
	return criteria
}

// GenerateInferredCriteria builds one regex criteria per inferred term list,
// each excluding accessions already found. Callers intersect the matches so a
// study must satisfy every facet. Keys are processed in sorted order.
func GenerateInferredCriteria(termsByFacet map[string][]string, baseStudyIDs []string, excludeAccessions []string) []Criteria {
	keys := make([]string, 0, len(termsByFacet))
	for key, terms := range termsByFacet {
		if len(terms) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	criteria := make([]Criteria, 0, len(keys))
	for _, key := range keys {
		terms := termsByFacet[key]
		criteria = append(criteria, Criteria{
			Context:           ContextInferred,
			Terms:             terms,
			Pattern:           AlternationPattern(terms),
			BaseStudyIDs:      baseStudyIDs,
			ExcludeAccessions: excludeAccessions,
		})
	}
	return criteria
}

// AlternationPattern escapes each term for literal matching and joins them as alternatives.
func AlternationPattern(terms []string) string {
	escaped := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		escaped = append(escaped, regexp.QuoteMeta(term))
	}
	return strings.Join(escaped, "|")
}

// Where renders the criteria as a SQL predicate with placeholders numbered from
// startArg, returning the predicate and its arguments.
func (c Criteria) Where(startArg int) (string, []interface{}) {
	var (
		args       []interface{}
		predicates []string
	)
	next := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", startArg+len(args)-1)
	}

	if c.BaseStudyIDs != nil {
		predicates = append(predicates, fmt.Sprintf("id = ANY(%s)", next(pq.Array(c.BaseStudyIDs))))
	}

	var match string
	switch c.Context {
	case ContextPhrase, ContextInferred:
		if c.Pattern != "" {
			p := next(c.Pattern)
			match = fmt.Sprintf("name ~* %s OR description ~* %s", p, p)
		}
	default:
		queries := make([]string, 0, len(c.Terms))
		for _, term := range c.Terms {
			queries = append(queries, fmt.Sprintf("plainto_tsquery('english', %s)", next(term)))
		}
		if len(queries) > 0 {
			match = fmt.Sprintf("%s @@ (%s)", studyDocument, strings.Join(queries, " || "))
		}
	}

	var alternatives []string
	if match != "" {
		alternatives = append(alternatives, match)
	}
	if len(c.IncludeAccessions) > 0 {
		alternatives = append(alternatives, fmt.Sprintf("accession = ANY(%s)", next(pq.Array(c.IncludeAccessions))))
	}
	if len(alternatives) == 0 {
		predicates = append(predicates, "FALSE")
	} else {
		predicates = append(predicates, "("+strings.Join(alternatives, " OR ")+")")
	}

	if len(c.ExcludeAccessions) > 0 {
		predicates = append(predicates, fmt.Sprintf("accession <> ALL(%s)", next(pq.Array(c.ExcludeAccessions))))
	}
	return strings.Join(predicates, " AND "), args
}

// IntersectAccessions returns the accessions present in every set, in the
// order of the first set.
func IntersectAccessions(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, set := range sets {
		seen := make(map[string]struct{}, len(set))
		for _, accession := range set {
			if _, dup := seen[accession]; dup {
				continue
			}
			seen[accession] = struct{}{}
			counts[accession]++
		}
	}
	var result []string
	emitted := make(map[string]struct{})
	for _, accession := range sets[0] {
		if _, done := emitted[accession]; done {
			continue
		}
		if counts[accession] == len(sets) {
			result = append(result, accession)
			emitted[accession] = struct{}{}
		}
	}
	return result
}
