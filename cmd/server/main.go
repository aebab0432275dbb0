package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/traceability-backend/config"
	"github.com/ikkim/traceability-backend/internal/app/controller"
	"github.com/ikkim/traceability-backend/internal/app/repository"
	"github.com/ikkim/traceability-backend/internal/app/service"
	"github.com/ikkim/traceability-backend/internal/db"
	"github.com/ikkim/traceability-backend/internal/metrics"
	"github.com/ikkim/traceability-backend/internal/router"
	"github.com/ikkim/traceability-backend/internal/scheduler"
	"github.com/ikkim/traceability-backend/internal/storage"
	"github.com/ikkim/traceability-backend/internal/websocket"
	"github.com/ikkim/traceability-backend/pkg/logger"
	"github.com/ikkim/traceability-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting traceability backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(db.GetDB()); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Optional infrastructure
	var progress service.ProgressStore
	if cfg.Redis.Enabled() {
		rdb, err := redis.Connect(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Warn("Import progress tracking disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer rdb.Close()
			progress = redis.NewProgressStore[service.ImportProgress](rdb, cfg.Redis.ProgressTTL)
		}
	}

	var archive controller.Archiver
	if cfg.S3.Enabled() {
		client := storage.NewS3Client(cfg.S3.Region, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		archive = storage.NewImportArchive(client, cfg.S3.Bucket, cfg.S3.Prefix)
		logger.Info("Import uploads will be archived", map[string]interface{}{
			"bucket": cfg.S3.Bucket,
			"prefix": cfg.S3.Prefix,
		})
	}

	m := metrics.New()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(cfg.CORS.AllowedOrigins)
	go hub.Run(hubCtx)

	// Repositories and services
	store := repository.NewStore(db.NewGateway(db.GetDB()))

	catalogService := service.NewCatalogService(store)
	associationService := service.NewAssociationService(store)
	verificationService := service.NewVerificationService(store.Codes(), store.Products())
	importService := service.NewImportService(store, service.ImportOptions{
		ChunkSize:      cfg.Import.ChunkSize,
		ChunkPacing:    cfg.Import.ChunkPacing,
		ErrorSampleCap: cfg.Import.ErrorSampleCap,
	}, progress, hub)

	// Controllers
	codeController := controller.NewCodeController(catalogService, associationService, verificationService, m)
	productController := controller.NewProductController(catalogService)
	importController := controller.NewImportController(importService, archive, hub, m, cfg.Import.MaxUploadBytes)

	integrity := scheduler.NewIntegrityScheduler(cfg.Scheduler.IntegrityScanSpec, catalogService, m)
	if err := integrity.Start(); err != nil {
		logger.Fatal("Failed to start integrity scheduler", err)
	}
	defer integrity.Stop()

	engine := router.NewRouter(codeController, productController, importController, m, cfg).Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully", nil)
}
