package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/scportal/search-api/api/swagger"
	"github.com/scportal/search-api/internal/handler"
	"github.com/scportal/search-api/internal/middleware"
	"github.com/scportal/search-api/internal/repository"
	"github.com/scportal/search-api/internal/service"
	bq "github.com/scportal/search-api/pkg/bigquery"
	"github.com/scportal/search-api/pkg/cache"
	"github.com/scportal/search-api/pkg/config"
	"github.com/scportal/search-api/pkg/database"
	"github.com/scportal/search-api/pkg/logger"
	corsmiddleware "github.com/scportal/search-api/pkg/middleware/cors"
	reqidmiddleware "github.com/scportal/search-api/pkg/middleware/requestid"
	"github.com/scportal/search-api/pkg/storage"
)

// @title Single Cell Portal Search API
// @version 1.0.0
// @description Study search, facet catalogue and bulk download manifests
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	bigqueryClient, err := bq.NewClient(ctx, cfg.BigQuery)
	if err != nil {
		logr.Warn("bigquery unavailable; facet search will fail", zap.Error(err))
	} else {
		defer bigqueryClient.Close()
	}

	signer, err := storage.NewSigner(ctx, cfg.Storage, cfg.Download.SignedURLTTL)
	if err != nil {
		logr.Fatal("failed to init url signer", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	analyticsTable := bq.TableName(cfg.BigQuery)

	studyRepo := repository.NewStudyRepository(db)
	studyFileRepo := repository.NewStudyFileRepository(db)
	facetRepo := repository.NewSearchFacetRepository(db)
	presetRepo := repository.NewPresetSearchRepository(db)
	brandingRepo := repository.NewBrandingGroupRepository(db)
	geneRepo := repository.NewGeneRepository(db)
	userRepo := repository.NewUserRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	authCodeRepo := repository.NewAuthCodeRepository(redisClient)
	analyticsRepo := repository.NewAnalyticsRepository(bigqueryClient, cfg.BigQuery.Dataset, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Search.FacetCacheTTL, logr, cfg.Search.EnableFacetCache)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	facetSvc := service.NewFacetService(facetRepo, analyticsRepo, cacheSvc, metricsSvc, logr, analyticsTable, cfg.Search.FacetCacheTTL)
	geneSvc := service.NewGeneSearchService(geneRepo, metricsSvc)
	searchSvc := service.NewSearchService(service.SearchDependencies{
		Studies:   studyRepo,
		Presets:   presetRepo,
		Branding:  brandingRepo,
		Facets:    facetSvc,
		Analytics: analyticsRepo,
		Genes:     geneSvc,
		Files:     studyFileRepo,
		Metrics:   metricsSvc,
		Logger:    logr,
	}, service.SearchConfig{
		Table:          analyticsTable,
		QueryTimeout:   cfg.BigQuery.QueryTimeout,
		PageSize:       cfg.Search.PageSize,
		EnableInferred: cfg.Search.EnableInferred,
		PortalBaseURL:  cfg.Search.PortalBaseURL,
	})
	authCodeSvc := service.NewAuthCodeService(authCodeRepo, userRepo, cfg.Download.AuthCodeTTL, logr)
	bulkDownloadSvc := service.NewBulkDownloadService(studyRepo, studyFileRepo, userRepo, configRepo, signer, metricsSvc, logr, service.BulkDownloadConfig{
		DailyQuotaBytes:    cfg.Download.DailyQuotaBytes,
		SigningConcurrency: cfg.Download.SigningConcurrency,
	})
	quotaResetSvc := service.NewQuotaResetService(userRepo, logr)
	configurationSvc := service.NewConfigurationService(configRepo, validate, logr, service.ConfigurationServiceConfig{
		DailyQuotaBytes: cfg.Download.DailyQuotaBytes,
	})

	scheduler := service.NewScheduler(logr, service.SchedulerConfig{
		Timeout:    cfg.Jobs.Timeout,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
	})
	if cfg.Jobs.QuotaResetEnabled {
		if err := scheduler.Register("quota_reset", cfg.Jobs.QuotaResetSchedule, func(ctx context.Context) error {
			_, err := quotaResetSvc.Reset(ctx)
			return err
		}); err != nil {
			logr.Fatal("invalid quota reset schedule", zap.Error(err))
		}
	}
	if cfg.Jobs.FacetRefreshEnabled {
		if err := scheduler.Register("facet_refresh", cfg.Jobs.FacetRefreshSchedule, func(ctx context.Context) error {
			_, err := facetSvc.RefreshFilters(ctx)
			return err
		}); err != nil {
			logr.Fatal("invalid facet refresh schedule", zap.Error(err))
		}
	}
	scheduler.Start()

	searchHandler := handler.NewSearchHandler(searchSvc, facetSvc, userRepo)
	downloadHandler := handler.NewDownloadHandler(authCodeSvc, bulkDownloadSvc, userRepo, validate)
	configurationHandler := handler.NewConfigurationHandler(configurationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc,
		handler.ReadinessCheck{Name: "postgres", Ping: db.PingContext},
		handler.ReadinessCheck{Name: "redis", Ping: cacheRepo.Ping},
		handler.ReadinessCheck{Name: "bigquery", Ping: analyticsRepo.Ping},
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", middleware.JWT(tokenSvc), middleware.RequireAdmin(), metricsHandler.Summary)

	configRoutes := api.Group("/configuration")
	configRoutes.Use(middleware.JWT(tokenSvc), middleware.RequireAdmin())
	configRoutes.GET("", configurationHandler.List)
	configRoutes.GET("/:key", configurationHandler.Get)
	configRoutes.PUT("/:key", configurationHandler.Update)

	searchRoutes := api.Group("/search")
	jsonOnly := middleware.Negotiate(gin.MIMEJSON)
	searchRoutes.GET("", jsonOnly, middleware.OptionalJWT(tokenSvc), searchHandler.Index)
	searchRoutes.GET("/facets", jsonOnly, searchHandler.Facets)
	searchRoutes.GET("/facet_filters", jsonOnly, searchHandler.FacetFilters)
	searchRoutes.POST("/auth_code", jsonOnly, middleware.JWT(tokenSvc), downloadHandler.CreateAuthCode)
	searchRoutes.GET("/bulk_download_size", jsonOnly, middleware.OptionalJWT(tokenSvc), downloadHandler.BulkDownloadSize)
	searchRoutes.GET("/bulk_download", middleware.Negotiate(gin.MIMEPlain, gin.MIMEJSON), downloadHandler.BulkDownload)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
