package models

import (
	"regexp"
	"strings"

	"github.com/lib/pq"
)

var quotableTerm = regexp.MustCompile(`[\s-]`)

// PresetSearch is a stored query whose accession whitelist is always ranked first.
type PresetSearch struct {
	ID                 string         `db:"id" json:"-"`
	Name               string         `db:"name" json:"name"`
	Identifier         string         `db:"identifier" json:"identifier"`
	AccessionWhitelist pq.StringArray `db:"accession_whitelist" json:"accession_whitelist"`
	SearchTerms        pq.StringArray `db:"search_terms" json:"search_terms"`
	FacetFilters       pq.StringArray `db:"facet_filters" json:"facet_filters"`
	Public             bool           `db:"public" json:"public"`
}

// KeywordQueryString renders the stored terms as a search string, quoting
// terms that contain whitespace or dashes.
func (p *PresetSearch) KeywordQueryString() string {
	terms := make([]string, 0, len(p.SearchTerms))
	for _, term := range p.SearchTerms {
		if quotableTerm.MatchString(term) {
			term = `"` + term + `"`
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}

// FacetQueryString renders the stored facet filters as a facets parameter.
func (p *PresetSearch) FacetQueryString() string {
	return strings.Join(p.FacetFilters, "+")
}

// HasWhitelist reports whether the preset pins a list of accessions.
func (p *PresetSearch) HasWhitelist() bool {
	return p != nil && len(p.AccessionWhitelist) > 0
}

// WhitelistIndex returns the position of an accession in the whitelist or -1.
func (p *PresetSearch) WhitelistIndex(accession string) int {
	for i, candidate := range p.AccessionWhitelist {
		if candidate == accession {
			return i
		}
	}
	return -1
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// URLSafeIdentifier lowercases a display name and collapses other characters to dashes.
func URLSafeIdentifier(name string) string {
	return strings.TrimSuffix(nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
