package models

import "time"

// SystemMetrics is a JSON snapshot of the service's instrumentation.
type SystemMetrics struct {
	CacheHitRatio              float64   `json:"cache_hit_ratio"`
	CacheHits                  uint64    `json:"cache_hits"`
	CacheMisses                uint64    `json:"cache_misses"`
	RequestsTotal              uint64    `json:"requests_total"`
	AverageRequestDurationMs   float64   `json:"average_request_duration_ms"`
	DBQueryCount               uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs   float64   `json:"average_db_query_duration_ms"`
	SearchesTotal              uint64    `json:"searches_total"`
	AnalyticsQueryCount        uint64    `json:"analytics_query_count"`
	AverageAnalyticsDurationMs float64   `json:"average_analytics_duration_ms"`
	BulkDownloadBytes          uint64    `json:"bulk_download_bytes"`
	DownloadQuotaRejections    uint64    `json:"download_quota_rejections"`
	Goroutines                 int       `json:"goroutines"`
	GeneratedAt                time.Time `json:"generated_at"`
}
