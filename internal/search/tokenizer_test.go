package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTermsMixedPhraseAndKeywords(t *testing.T) {
	assert.Equal(t, []string{"hello world", "foo", "bar"}, SplitTerms(`"hello world" foo bar`))
	assert.Equal(t, []string{"foo", "bar baz", "qux"}, SplitTerms(`foo "bar baz" qux`))
	assert.Equal(t, []string{"API Test Study", "testing"}, SplitTerms(`"API Test Study" testing`))
}

func TestSplitTermsWithoutQuotes(t *testing.T) {
	assert.Equal(t, []string{"blood", "HIV", "human"}, SplitTerms("  blood HIV   human "))
	assert.Empty(t, SplitTerms("   "))
}

func TestSplitTermsNeverReturnsBlankEntries(t *testing.T) {
	inputs := []string{`""`, `" " "a"`, `"a"  "b" c`, `x ""  y`}
	for _, input := range inputs {
		for _, term := range SplitTerms(input) {
			assert.NotEmpty(t, strings.TrimSpace(term), "input %q", input)
		}
	}
}

func TestSplitTermsPreservesEveryWord(t *testing.T) {
	input := `alpha "beta gamma" delta "epsilon"`
	terms := SplitTerms(input)
	assert.Equal(t, []string{"alpha", "beta gamma", "delta", "epsilon"}, terms)
	assert.Equal(t, strings.Fields(strings.ReplaceAll(input, `"`, "")), strings.Fields(strings.Join(terms, " ")))
}

func TestDetectContext(t *testing.T) {
	assert.Equal(t, ContextPhrase, DetectContext(`"single cell"`))
	assert.Equal(t, ContextKeyword, DetectContext("single cell"))
}
