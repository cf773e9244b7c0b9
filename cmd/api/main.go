package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dmoran/clinica-backend/internal/api/router"
	"github.com/dmoran/clinica-backend/internal/appointments"
	appconfig "github.com/dmoran/clinica-backend/internal/config"
	"github.com/dmoran/clinica-backend/internal/importer"
	"github.com/dmoran/clinica-backend/internal/observability/metrics"
	"github.com/dmoran/clinica-backend/internal/patients"
	"github.com/dmoran/clinica-backend/internal/payments"
	"github.com/dmoran/clinica-backend/internal/reports"
	"github.com/dmoran/clinica-backend/internal/services"
	"github.com/dmoran/clinica-backend/pkg/logging"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info("starting clinica-backend API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize stores. Without a database URL the server runs fully in
	// memory, which is how local development and the test suite work.
	var (
		patientRepo     patients.Repository
		serviceRepo     services.Repository
		appointmentRepo appointments.Repository
		paymentRepo     payments.Repository
		reportsRepo     *reports.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		patientRepo = patients.NewPostgresRepository(pool)
		serviceRepo = services.NewPostgresRepository(pool)
		appointmentRepo = appointments.NewPostgresRepository(pool)
		paymentRepo = payments.NewPostgresRepository(pool)
		reportsRepo = reports.NewRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		patientRepo = patients.NewInMemoryRepository()
		serviceRepo = services.NewInMemoryRepository()
		appointmentRepo = appointments.NewInMemoryRepository()
		paymentRepo = payments.NewInMemoryRepository()
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	importMetrics := metrics.NewImportMetrics(registry)

	// Import run store: Redis when configured so progress polls can land on
	// any instance, in-memory otherwise.
	var runStore importer.RunStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		runStore = importer.NewRedisRunStore(client, cfg.ImportSessionTTL, nil)
		logger.Info("import run store backed by redis", "addr", cfg.RedisAddr)
	}

	// Import pipeline
	executor := importer.NewExecutor(
		patientRepo,
		serviceRepo,
		appointmentRepo,
		paymentRepo,
		importMetrics,
		cfg.ImportRowPause,
		logger,
	)
	manager := importer.NewManager(executor, runStore, cfg.ImportSessionTTL, cfg.ImportMaxRows, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		PatientsHandler:     patients.NewHandler(patientRepo, logger),
		ServicesHandler:     services.NewHandler(serviceRepo, logger),
		AppointmentsHandler: appointments.NewHandler(appointmentRepo, logger),
		PaymentsHandler:     payments.NewHandler(paymentRepo, logger),
		ImportHandler:       importer.NewHandler(manager, logger),
		OperatorJWTSecret:   cfg.OperatorJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	if reportsRepo != nil {
		routerCfg.ReportsHandler = reports.NewHandler(reportsRepo, logger)
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
