package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	ok := ReadinessCheck{Name: "postgres", Ping: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "bigquery", Ping: func(context.Context) error { return errors.New("dial tcp: timeout") }}

	c, rec := newTestContext("/ready")
	NewMetricsHandler(nil, ok).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext("/ready")
	NewMetricsHandler(nil, ok, down).Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "dial tcp: timeout", body.Checks["bigquery"])
}

func TestMetricsHandlerSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordSearch("facet")
	metrics.RecordQuotaRejection()

	c, rec := newTestContext("/metrics/summary")
	NewMetricsHandler(metrics).Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body.Data["searches_total"])
	assert.Equal(t, float64(1), body.Data["download_quota_rejections"])
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordSearch("keyword")

	c, rec := newTestContext("/metrics")
	NewMetricsHandler(metrics).Prometheus(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "search_requests_total")
}
