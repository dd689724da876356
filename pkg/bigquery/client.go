package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/scportal/search-api/pkg/config"
)

// NewClient returns a BigQuery client for the cell metadata dataset. Without a
// credentials file the client falls back to application default credentials.
func NewClient(ctx context.Context, cfg config.BigQueryConfig) (*bigquery.Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("bigquery project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return client, nil
}

// TableName qualifies the configured table with its dataset.
func TableName(cfg config.BigQueryConfig) string {
	if cfg.Dataset == "" {
		return cfg.Table
	}
	return cfg.Dataset + "." + cfg.Table
}
