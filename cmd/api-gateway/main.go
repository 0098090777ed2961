package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fieldset/cmms-api/api/swagger"
	"github.com/fieldset/cmms-api/internal/handler"
	"github.com/fieldset/cmms-api/internal/middleware"
	"github.com/fieldset/cmms-api/internal/models"
	"github.com/fieldset/cmms-api/internal/report"
	"github.com/fieldset/cmms-api/internal/repository"
	"github.com/fieldset/cmms-api/internal/service"
	"github.com/fieldset/cmms-api/pkg/cache"
	"github.com/fieldset/cmms-api/pkg/config"
	"github.com/fieldset/cmms-api/pkg/database"
	"github.com/fieldset/cmms-api/pkg/export"
	"github.com/fieldset/cmms-api/pkg/logger"
	corsmiddleware "github.com/fieldset/cmms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fieldset/cmms-api/pkg/middleware/requestid"
	"github.com/fieldset/cmms-api/pkg/storage"
)

// @title CMMS Reporting API
// @version 1.0.0
// @description Report generation service for CMMS form and submission data
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("report storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	registry := report.DefaultRegistry()
	datasets := repository.NewDatasetRepository(db)
	engine := report.NewEngine(registry, datasets, export.NewRegistry(), report.Config{
		DefaultTitle: cfg.Reports.DefaultTitle,
		MaxTableRows: cfg.Reports.MaxSlideTableRows,
	}, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret}, logr)
	templateSvc := service.NewReportTemplateService(repository.NewReportTemplateRepository(db), logr)
	reportSvc := service.NewReportService(engine, registry, datasets, export.NewRegistry(),
		redisClient, service.ReportServiceConfig{
			CacheEnabled: cfg.Catalog.CacheEnabled,
			CacheTTL:     cfg.Catalog.CacheTTL,
		}, metricsSvc, logr).WithTemplates(templateSvc)
	jobSvc := service.NewReportJobService(repository.NewReportJobRepository(db), engine, store,
		signer, metricsSvc, logr, service.ReportJobConfig{
			Workers:         cfg.Reports.WorkerConcurrency,
			CleanupInterval: cfg.Reports.CleanupInterval,
			RetentionTTL:    cfg.Reports.SignedURLTTL,
			DownloadPrefix:  cfg.APIPrefix + "/export/",
		}).WithTemplates(templateSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobSvc.Start(ctx)
	defer jobSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	reports := handler.NewReportHandler(reportSvc, jobSvc)
	api := r.Group(cfg.APIPrefix)
	{
		// Downloads authenticate through the signed token itself.
		api.GET("/export/:token", reports.Download)

		authed := api.Group("", middleware.JWT(authSvc))
		authed.GET("/reports/entities", reports.ListEntities)
		authed.GET("/reports/entities/:entity/columns", reports.EntityColumns)

		generate := authed.Group("", middleware.RequireRoles(
			models.RoleAdmin, models.RoleSiteManager, models.RoleSupervisor))
		generate.POST("/reports/generate", reports.Generate)
		generate.POST("/reports/jobs", reports.CreateJob)
		generate.GET("/reports/jobs/:id", reports.GetJob)

		templates := handler.NewReportTemplateHandler(templateSvc)
		generate.POST("/reports/templates", templates.Create)
		generate.GET("/reports/templates", templates.List)
		generate.GET("/reports/templates/:id", templates.Get)
		generate.PUT("/reports/templates/:id", templates.Update)
		generate.DELETE("/reports/templates/:id", templates.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
