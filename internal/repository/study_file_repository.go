package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/scportal/search-api/internal/models"
)

const studyFileQuery = `SELECT f.id, f.study_id, s.accession, s.bucket_id, f.name, f.upload_file_name, f.file_type,
f.description, f.remote_location, f.upload_file_size, f.bundle_parent_id
FROM study_files f
JOIN studies s ON s.id = f.study_id
WHERE f.queued_for_deletion = FALSE AND f.study_id = ANY($1)`

// StudyFileRepository reads downloadable study files.
type StudyFileRepository struct {
	db *sqlx.DB
}

// NewStudyFileRepository constructs the repository.
func NewStudyFileRepository(db *sqlx.DB) *StudyFileRepository {
	return &StudyFileRepository{db: db}
}

// FindByStudies returns the top-level files of the given studies, optionally
// limited to file types, with bundled files attached to their parents.
// Bundled files are kept regardless of their own type.
func (r *StudyFileRepository) FindByStudies(ctx context.Context, studyIDs []string, fileTypes []string) ([]models.StudyFile, error) {
	if len(studyIDs) == 0 {
		return nil, nil
	}
	query := studyFileQuery
	args := []interface{}{pq.Array(studyIDs)}
	if len(fileTypes) > 0 {
		query += " AND (f.bundle_parent_id IS NOT NULL OR f.file_type = ANY($2))"
		args = append(args, pq.Array(fileTypes))
	}
	query += " ORDER BY s.accession ASC, f.file_type ASC, f.name ASC"

	var rows []models.StudyFile
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list study files: %w", err)
	}
	return attachBundles(rows), nil
}

// attachBundles nests bundled files under their parents, dropping bundled
// files whose parent was not selected.
func attachBundles(rows []models.StudyFile) []models.StudyFile {
	children := make(map[string][]models.StudyFile)
	parents := make([]models.StudyFile, 0, len(rows))
	for _, row := range rows {
		if row.IsBundled() {
			children[*row.BundleParentID] = append(children[*row.BundleParentID], row)
			continue
		}
		parents = append(parents, row)
	}
	for i := range parents {
		parents[i].BundledFiles = children[parents[i].ID]
	}
	return parents
}
