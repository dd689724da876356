package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/scportal/search-api/internal/models"
)

// GeneRepository looks up expressed genes within studies.
type GeneRepository struct {
	db *sqlx.DB
}

// NewGeneRepository constructs the repository.
func NewGeneRepository(db *sqlx.DB) *GeneRepository {
	return &GeneRepository{db: db}
}

// FindInStudies matches names case-insensitively against gene names and
// exactly against gene ids.
func (r *GeneRepository) FindInStudies(ctx context.Context, studyIDs []string, names []string) ([]models.Gene, error) {
	if len(studyIDs) == 0 || len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, name := range names {
		lowered[i] = strings.ToLower(name)
	}
	const query = `SELECT id, study_id, name, searchable_name, gene_id FROM genes
WHERE study_id = ANY($1) AND (searchable_name = ANY($2) OR gene_id = ANY($3))
ORDER BY study_id ASC, name ASC`
	var genes []models.Gene
	if err := r.db.SelectContext(ctx, &genes, query, pq.Array(studyIDs), pq.Array(lowered), pq.Array(names)); err != nil {
		return nil, fmt.Errorf("find genes: %w", err)
	}
	return genes, nil
}
