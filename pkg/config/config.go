package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultDailyDownloadQuota is used when no admin override is stored (2 TiB).
const DefaultDailyDownloadQuota int64 = 2 * 1024 * 1024 * 1024 * 1024

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Search    SearchConfig
	BigQuery  BigQueryConfig
	Download  DownloadConfig
	Storage   StorageConfig
	Jobs      JobsConfig
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
	ApplicationName  string
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// JWTConfig holds the shared secret used to validate portal-issued access tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SearchConfig tunes the study search pipeline.
type SearchConfig struct {
	PageSize         int
	FacetCacheTTL    time.Duration
	EnableFacetCache bool
	EnableInferred   bool
	PortalBaseURL    string
}

// BigQueryConfig points the facet search at the cell metadata table.
type BigQueryConfig struct {
	ProjectID       string
	Dataset         string
	Table           string
	CredentialsFile string
	QueryTimeout    time.Duration
}

// DownloadConfig governs bulk download manifests and auth codes.
type DownloadConfig struct {
	DailyQuotaBytes    int64
	AuthCodeTTL        time.Duration
	SignedURLTTL       time.Duration
	SigningConcurrency int
}

// StorageConfig selects how bucket objects are signed. When S3 credentials are
// absent the gateway signer is used instead.
type StorageConfig struct {
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	GatewayBaseURL string
	GatewaySecret  string
}

// JobsConfig schedules background maintenance with cron expressions.
type JobsConfig struct {
	QuotaResetEnabled    bool
	QuotaResetSchedule   string
	FacetRefreshEnabled  bool
	FacetRefreshSchedule string
	Timeout              time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
}

// S3Enabled reports whether static S3 credentials are configured.
func (s StorageConfig) S3Enabled() bool {
	return s.S3AccessKey != "" && s.S3SecretKey != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime:  parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 30*time.Second),
		ApplicationName:  v.GetString("DB_APPLICATION_NAME"),
	}

	cfg.Redis = RedisConfig{
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	pageSize := v.GetInt("SEARCH_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 25
	}
	cfg.Search = SearchConfig{
		PageSize:         pageSize,
		FacetCacheTTL:    parseDuration(v.GetString("SEARCH_FACET_CACHE_TTL"), 10*time.Minute),
		EnableFacetCache: v.GetBool("SEARCH_ENABLE_FACET_CACHE"),
		EnableInferred:   v.GetBool("SEARCH_ENABLE_INFERRED"),
		PortalBaseURL:    strings.TrimRight(v.GetString("SEARCH_PORTAL_BASE_URL"), "/"),
	}

	cfg.BigQuery = BigQueryConfig{
		ProjectID:       v.GetString("BIGQUERY_PROJECT_ID"),
		Dataset:         v.GetString("BIGQUERY_DATASET"),
		Table:           v.GetString("BIGQUERY_TABLE"),
		CredentialsFile: v.GetString("BIGQUERY_CREDENTIALS_FILE"),
		QueryTimeout:    parseDuration(v.GetString("BIGQUERY_QUERY_TIMEOUT"), 30*time.Second),
	}

	quota := v.GetInt64("DOWNLOAD_DAILY_QUOTA_BYTES")
	if quota <= 0 {
		quota = DefaultDailyDownloadQuota
	}
	concurrency := v.GetInt("DOWNLOAD_SIGNING_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 16
	}
	cfg.Download = DownloadConfig{
		DailyQuotaBytes:    quota,
		AuthCodeTTL:        parseDuration(v.GetString("DOWNLOAD_AUTH_CODE_TTL"), 1800*time.Second),
		SignedURLTTL:       parseDuration(v.GetString("DOWNLOAD_SIGNED_URL_TTL"), 24*time.Hour),
		SigningConcurrency: concurrency,
	}

	cfg.Storage = StorageConfig{
		S3Region:       v.GetString("DOWNLOAD_S3_REGION"),
		S3Endpoint:     v.GetString("DOWNLOAD_S3_ENDPOINT"),
		S3AccessKey:    v.GetString("DOWNLOAD_S3_ACCESS_KEY"),
		S3SecretKey:    v.GetString("DOWNLOAD_S3_SECRET_KEY"),
		GatewayBaseURL: strings.TrimRight(v.GetString("DOWNLOAD_GATEWAY_BASE_URL"), "/"),
		GatewaySecret:  v.GetString("DOWNLOAD_GATEWAY_SECRET"),
	}

	cfg.Jobs = JobsConfig{
		QuotaResetEnabled:    v.GetBool("ENABLE_QUOTA_RESET"),
		QuotaResetSchedule:   v.GetString("QUOTA_RESET_SCHEDULE"),
		FacetRefreshEnabled:  v.GetBool("ENABLE_FACET_REFRESH"),
		FacetRefreshSchedule: v.GetString("FACET_REFRESH_SCHEDULE"),
		Timeout:              parseDuration(v.GetString("JOB_TIMEOUT"), 10*time.Minute),
		MaxRetries:           v.GetInt("JOB_MAX_RETRIES"),
		RetryDelay:           parseDuration(v.GetString("JOB_RETRY_DELAY"), time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "single_cell_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("DB_APPLICATION_NAME", "scp-search-api")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEARCH_PAGE_SIZE", 25)
	v.SetDefault("SEARCH_FACET_CACHE_TTL", "10m")
	v.SetDefault("SEARCH_ENABLE_FACET_CACHE", true)
	v.SetDefault("SEARCH_ENABLE_INFERRED", true)
	v.SetDefault("SEARCH_PORTAL_BASE_URL", "http://localhost:3000/single_cell")

	v.SetDefault("BIGQUERY_PROJECT_ID", "")
	v.SetDefault("BIGQUERY_DATASET", "cell_metadata")
	v.SetDefault("BIGQUERY_TABLE", "alexandria_convention")
	v.SetDefault("BIGQUERY_CREDENTIALS_FILE", "")
	v.SetDefault("BIGQUERY_QUERY_TIMEOUT", "30s")

	v.SetDefault("DOWNLOAD_DAILY_QUOTA_BYTES", DefaultDailyDownloadQuota)
	v.SetDefault("DOWNLOAD_AUTH_CODE_TTL", "1800s")
	v.SetDefault("DOWNLOAD_SIGNED_URL_TTL", "24h")
	v.SetDefault("DOWNLOAD_SIGNING_CONCURRENCY", 16)
	v.SetDefault("DOWNLOAD_S3_REGION", "us-east-1")
	v.SetDefault("DOWNLOAD_S3_ENDPOINT", "")
	v.SetDefault("DOWNLOAD_S3_ACCESS_KEY", "")
	v.SetDefault("DOWNLOAD_S3_SECRET_KEY", "")
	v.SetDefault("DOWNLOAD_GATEWAY_BASE_URL", "http://localhost:8080/files")
	v.SetDefault("DOWNLOAD_GATEWAY_SECRET", "dev_gateway_secret")

	v.SetDefault("ENABLE_QUOTA_RESET", false)
	v.SetDefault("QUOTA_RESET_SCHEDULE", "0 0 * * *")
	v.SetDefault("ENABLE_FACET_REFRESH", false)
	v.SetDefault("FACET_REFRESH_SCHEDULE", "30 2 * * *")
	v.SetDefault("JOB_TIMEOUT", "10m")
	v.SetDefault("JOB_MAX_RETRIES", 2)
	v.SetDefault("JOB_RETRY_DELAY", "1m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
