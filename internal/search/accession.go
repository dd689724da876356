package search

import (
	"regexp"
	"strings"
)

var (
	accessionSanitizer = regexp.MustCompile(`[^SCP\d+$]`)
	accessionFormat    = regexp.MustCompile(`^SCP\d+$`)
)

// SanitizeAccession strips characters that cannot appear in an accession and
// returns the result when it is well formed.
func SanitizeAccession(raw string) (string, bool) {
	candidate := accessionSanitizer.ReplaceAllString(raw, "")
	if !accessionFormat.MatchString(candidate) {
		return "", false
	}
	return candidate, true
}

// IsAccession reports whether the token is already a well formed accession.
func IsAccession(token string) bool {
	return accessionFormat.MatchString(token)
}

// AccessionsFromTerms returns the terms that look like accessions, in input order.
func AccessionsFromTerms(terms []string) []string {
	var accessions []string
	for _, term := range terms {
		if IsAccession(term) {
			accessions = append(accessions, term)
		}
	}
	return accessions
}

// ParseAccessionList splits a comma separated accession parameter. It
// returns the sanitized accessions and every token that failed sanitizing.
func ParseAccessionList(raw string) (valid []string, invalid []string) {
	seen := make(map[string]struct{})
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		accession, ok := SanitizeAccession(token)
		if !ok {
			invalid = append(invalid, token)
			continue
		}
		if _, dup := seen[accession]; dup {
			continue
		}
		seen[accession] = struct{}{}
		valid = append(valid, accession)
	}
	return valid, invalid
}
