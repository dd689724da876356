package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/scportal/search-api/internal/search"
)

// AnalyticsRepository runs facet queries against the BigQuery cell metadata table.
type AnalyticsRepository struct {
	client  *bigquery.Client
	dataset string
	logger  *zap.Logger
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(client *bigquery.Client, dataset string, logger *zap.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{client: client, dataset: dataset, logger: logger}
}

// Query runs the SQL and returns every row keyed by column name. The query
// text and job id are logged on failure.
func (r *AnalyticsRepository) Query(ctx context.Context, sql string) ([]search.Row, error) {
	if r.client == nil {
		return nil, fmt.Errorf("analytics client not configured")
	}
	start := time.Now()
	q := r.client.Query(sql)
	q.DefaultProjectID = r.client.Project()
	q.DefaultDatasetID = r.dataset

	job, err := q.Run(ctx)
	if err != nil {
		r.logFailure(sql, "", err)
		return nil, fmt.Errorf("run analytics query: %w", err)
	}

	it, err := job.Read(ctx)
	if err != nil {
		r.logFailure(sql, job.ID(), err)
		return nil, fmt.Errorf("read analytics job %s: %w", job.ID(), err)
	}

	var rows []search.Row
	for {
		var values map[string]bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			r.logFailure(sql, job.ID(), err)
			return nil, fmt.Errorf("iterate analytics job %s: %w", job.ID(), err)
		}
		row := make(search.Row, len(values))
		for column, value := range values {
			row[column] = value
		}
		rows = append(rows, row)
	}

	if r.logger != nil {
		r.logger.Debug("analytics query completed",
			zap.String("job_id", job.ID()),
			zap.Int("rows", len(rows)),
			zap.Duration("duration", time.Since(start)))
	}
	return rows, nil
}

// Ping checks that the configured dataset is reachable.
func (r *AnalyticsRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("analytics client not configured")
	}
	_, err := r.client.Dataset(r.dataset).Metadata(ctx)
	return err
}

func (r *AnalyticsRepository) logFailure(sql, jobID string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Error("analytics query failed",
		zap.String("query", sql),
		zap.String("job_id", jobID),
		zap.Error(err))
}
