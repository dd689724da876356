package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/scportal/search-api/internal/models"
	"github.com/scportal/search-api/internal/search"
)

const studyColumns = `id, accession, name, description, public, detached, queued_for_deletion, user_id, branding_group_id, bucket_id, view_count, view_order, cell_count, gene_count, created_at`

// StudyRepository reads studies for search and download.
type StudyRepository struct {
	db *sqlx.DB
}

// NewStudyRepository constructs the repository.
func NewStudyRepository(db *sqlx.DB) *StudyRepository {
	return &StudyRepository{db: db}
}

// viewableClause restricts studies to those the user may see. Anonymous
// callers see public studies, admins see everything not queued for deletion,
// and other users also see studies they own or that are shared with them.
func viewableClause(user *models.User, startArg int) (string, []interface{}) {
	switch {
	case user == nil:
		return "queued_for_deletion = FALSE AND public = TRUE", nil
	case user.Admin:
		return "queued_for_deletion = FALSE", nil
	default:
		return fmt.Sprintf("queued_for_deletion = FALSE AND (public = TRUE OR user_id = $%d OR id IN (SELECT study_id FROM study_shares WHERE email = $%d))", startArg, startArg+1),
			[]interface{}{user.ID, user.Email}
	}
}

// Viewable returns every study the user may see, in default view order.
func (r *StudyRepository) Viewable(ctx context.Context, user *models.User) ([]models.Study, error) {
	where, args := viewableClause(user, 1)
	query := fmt.Sprintf("SELECT %s FROM studies WHERE %s ORDER BY view_order ASC", studyColumns, where)
	var studies []models.Study
	if err := r.db.SelectContext(ctx, &studies, query, args...); err != nil {
		return nil, fmt.Errorf("list viewable studies: %w", err)
	}
	return studies, nil
}

// FindByCriteria runs a keyword, phrase or inferred text match.
func (r *StudyRepository) FindByCriteria(ctx context.Context, criteria search.Criteria) ([]models.Study, error) {
	where, args := criteria.Where(1)
	query := fmt.Sprintf("SELECT %s FROM studies WHERE %s ORDER BY view_order ASC", studyColumns, where)
	var studies []models.Study
	if err := r.db.SelectContext(ctx, &studies, query, args...); err != nil {
		return nil, fmt.Errorf("find studies by %s criteria: %w", criteria.Context, err)
	}
	return studies, nil
}

// ExistingAccessions returns which of the given accessions belong to live studies.
func (r *StudyRepository) ExistingAccessions(ctx context.Context, accessions []string) ([]string, error) {
	if len(accessions) == 0 {
		return nil, nil
	}
	const query = `SELECT accession FROM studies WHERE accession = ANY($1) AND queued_for_deletion = FALSE`
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(accessions)); err != nil {
		return nil, fmt.Errorf("check study accessions: %w", err)
	}
	return found, nil
}

// ViewableByAccessions returns the requested studies the user may see.
func (r *StudyRepository) ViewableByAccessions(ctx context.Context, user *models.User, accessions []string) ([]models.Study, error) {
	if len(accessions) == 0 {
		return nil, nil
	}
	where, args := viewableClause(user, 2)
	query := fmt.Sprintf("SELECT %s FROM studies WHERE accession = ANY($1) AND %s ORDER BY accession ASC", studyColumns, where)
	args = append([]interface{}{pq.Array(accessions)}, args...)
	var studies []models.Study
	if err := r.db.SelectContext(ctx, &studies, query, args...); err != nil {
		return nil, fmt.Errorf("find studies by accession: %w", err)
	}
	return studies, nil
}
