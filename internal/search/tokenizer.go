package search

import "strings"

// QueryContext selects how free text is matched against studies.
type QueryContext string

const (
	ContextKeyword  QueryContext = "keyword"
	ContextPhrase   QueryContext = "phrase"
	ContextInferred QueryContext = "inferred"
)

// SplitTerms breaks a raw search string into quoted phrases and bare keywords.
//
// The string is split on double quotes. A piece that still has whitespace at
// either edge sat outside a pair of quotes and is split further on whitespace;
// a piece without edge whitespace is kept whole as a phrase.
func SplitTerms(raw string) []string {
	if !strings.Contains(raw, `"`) {
		return strings.Fields(raw)
	}
	var terms []string
	for _, piece := range strings.Split(raw, `"`) {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		if piece != strings.TrimSpace(piece) {
			terms = append(terms, strings.Fields(piece)...)
			continue
		}
		terms = append(terms, piece)
	}
	return terms
}

// DetectContext returns phrase when the raw terms contain quotes.
func DetectContext(raw string) QueryContext {
	if strings.Contains(raw, `"`) {
		return ContextPhrase
	}
	return ContextKeyword
}
