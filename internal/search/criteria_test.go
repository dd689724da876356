package search

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestGenerateCriteriaKeyword(t *testing.T) {
	criteria := GenerateCriteria([]string{"blood", "SCP1"}, []string{"s1", "s2"}, []string{"SCP1"}, ContextKeyword)
	where, args := criteria.Where(1)

	assert.Equal(t, "id = ANY($1) AND ("+studyDocument+" @@ (plainto_tsquery('english', $2) || plainto_tsquery('english', $3)) OR accession = ANY($4))", where)
	assert.Equal(t, []interface{}{pq.Array([]string{"s1", "s2"}), "blood", "SCP1", pq.Array([]string{"SCP1"})}, args)
}

func TestGenerateCriteriaPhraseEscapesTerms(t *testing.T) {
	criteria := GenerateCriteria([]string{"T cell (CD4+)", "blood"}, nil, nil, ContextPhrase)
	assert.Equal(t, `T cell \(CD4\+\)|blood`, criteria.Pattern)

	where, args := criteria.Where(1)
	assert.Equal(t, "(name ~* $1 OR description ~* $1)", where)
	assert.Equal(t, []interface{}{`T cell \(CD4\+\)|blood`}, args)
}

func TestGenerateCriteriaUnknownContextFallsBackToKeyword(t *testing.T) {
	criteria := GenerateCriteria([]string{"blood"}, nil, nil, QueryContext("fuzzy"))
	assert.Equal(t, ContextKeyword, criteria.Context)
}

func TestGenerateInferredCriteriaExcludesFoundAccessions(t *testing.T) {
	criteria := GenerateInferredCriteria(map[string][]string{
		"species": {"Homo sapiens"},
		"disease": {"HIV infectious disease", "disease or disorder"},
		"empty":   nil,
	}, []string{"s1"}, []string{"SCP1"})

	if assert.Len(t, criteria, 2) {
		assert.Equal(t, ContextInferred, criteria[0].Context)
		assert.Equal(t, "HIV infectious disease|disease or disorder", criteria[0].Pattern)
		assert.Equal(t, "Homo sapiens", criteria[1].Pattern)

		where, _ := criteria[1].Where(3)
		assert.Equal(t, "id = ANY($3) AND (name ~* $4 OR description ~* $4) AND accession <> ALL($5)", where)
	}
}

func TestIntersectAccessions(t *testing.T) {
	assert.Equal(t, []string{"B", "C"}, IntersectAccessions([][]string{{"A", "B", "C"}, {"B", "C", "D"}}))
	assert.Empty(t, IntersectAccessions([][]string{{"A"}, {"B"}}))
	assert.Nil(t, IntersectAccessions(nil))
	assert.Equal(t, []string{"A"}, IntersectAccessions([][]string{{"A", "A"}}))
}
