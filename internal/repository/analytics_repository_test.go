package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func newBigQueryStub(t *testing.T, handler http.HandlerFunc) *bigquery.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := bigquery.NewClient(context.Background(), "scp-test",
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAnalyticsRepositoryPing(t *testing.T) {
	var requested string
	client := newBigQueryStub(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		if !strings.HasSuffix(r.URL.Path, "/datasets/cell_metadata") {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"datasetReference":{"projectId":"scp-test","datasetId":"cell_metadata"}}`))
	})

	repo := NewAnalyticsRepository(client, "cell_metadata", zap.NewNop())
	require.NoError(t, repo.Ping(context.Background()))
	assert.Contains(t, requested, "/projects/scp-test/datasets/cell_metadata")

	missing := NewAnalyticsRepository(client, "gone", zap.NewNop())
	assert.Error(t, missing.Ping(context.Background()))
}

func TestAnalyticsRepositoryWithoutClient(t *testing.T) {
	repo := NewAnalyticsRepository(nil, "cell_metadata", nil)

	_, err := repo.Query(context.Background(), "SELECT 1")
	assert.Error(t, err)
	assert.Error(t, repo.Ping(context.Background()))
}
