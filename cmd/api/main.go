package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dentaflow/clinic-platform/internal/api/router"
	"github.com/dentaflow/clinic-platform/internal/backup"
	"github.com/dentaflow/clinic-platform/internal/billing"
	"github.com/dentaflow/clinic-platform/internal/catalog"
	appconfig "github.com/dentaflow/clinic-platform/internal/config"
	"github.com/dentaflow/clinic-platform/internal/dashboard"
	"github.com/dentaflow/clinic-platform/internal/observability/metrics"
	"github.com/dentaflow/clinic-platform/internal/patients"
	"github.com/dentaflow/clinic-platform/internal/reports"
	"github.com/dentaflow/clinic-platform/internal/visits"
	"github.com/dentaflow/clinic-platform/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	clinicMetrics := metrics.New(registry)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, dashboard cache disabled", "error", err)
			redisClient = nil
		}
	}

	var s3Client backup.S3Client
	if cfg.BackupS3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("failed to load AWS config, backup S3 mirror disabled", "error", err)
		} else {
			s3Client = s3.NewFromConfig(awsCfg)
		}
	}

	patientsRepo := patients.NewPostgresRepository(pool)
	catalogRepo := catalog.NewPostgresRepository(pool)
	visitsRepo := visits.NewPostgresRepository(pool)
	billingRepo := billing.NewPostgresRepository(pool)
	dashboardRepo := dashboard.NewPostgresRepository(pool)
	reportsRepo := reports.NewPostgresRepository(pool)

	backupService := backup.NewService(backup.Config{
		DB:     pool,
		Dir:    cfg.BackupDir,
		S3:     s3Client,
		Bucket: cfg.BackupS3Bucket,
		Logger: logger,
	})

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)

	r := router.New(&router.Config{
		Logger:             logger,
		PatientsHandler:    patients.NewHandler(patientsRepo, logger),
		ServicesHandler:    catalog.NewHandler(catalogRepo, catalog.KindService, logger),
		MedicationsHandler: catalog.NewHandler(catalogRepo, catalog.KindMedication, logger),
		VisitsHandler:      visits.NewHandler(visitsRepo, logger, clinicMetrics),
		BillingHandler:     billing.NewHandler(billingRepo, logger),
		DashboardHandler:   dashboard.NewHandler(dashboardRepo, dashboardCache, logger, clinicMetrics),
		ReportsHandler:     reports.NewHandler(reportsRepo, logger, cfg.InactiveCutoffDays),
		BackupHandler:      backup.NewHandler(backupService, logger, clinicMetrics),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
