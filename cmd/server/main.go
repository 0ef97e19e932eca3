package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"alcyxob/runplan/internal/api"
	"alcyxob/runplan/internal/config"
	"alcyxob/runplan/internal/metrics"
	"alcyxob/runplan/internal/planner"
	"alcyxob/runplan/internal/repository/mongo"
	"alcyxob/runplan/internal/service"
	"alcyxob/runplan/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// @title Race Training Plan API
// @version 1.0
// @description Generates periodized race training plans and reconciles them with activity telemetry.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("could not load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("starting plan engine", slog.String("address", cfg.Server.Address))

	if cfg.JWT.Secret == "" {
		logger.Error("jwt.secret must be set")
		os.Exit(1)
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Error("could not connect to MongoDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", slog.Any("error", err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// --- Ensure Indexes ---
	// The unique (userId, date) index must exist before the first generation.
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), time.Minute)
	err = mongo.EnsureIndexes(indexCtx, appDB)
	cancelIndexes()
	if err != nil {
		logger.Error("could not ensure indexes", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database indexes ensured", slog.String("database", cfg.Database.Name))

	// --- Initialize Storage ---
	var archive storage.FileStorage
	if cfg.S3.BucketName != "" {
		archive, err = storage.NewS3Storage(context.Background(), cfg.S3, logger)
		if err != nil {
			logger.Error("failed to initialize S3 storage", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("s3.bucket_name not set, raw activity payloads will not be archived")
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// --- Initialize Repositories ---
	raceRepo := mongo.NewMongoRaceRepository(appDB)
	planRepo := mongo.NewMongoTrainingPlanRepository(appDB)
	dayRepo := mongo.NewMongoTrainingDayRepository(appDB)
	lockRepo := mongo.NewMongoPlanLockRepository(appDB)

	// --- Initialize Services ---
	distributor, err := buildDistributor(cfg.Planner)
	if err != nil {
		logger.Error("invalid planner configuration", slog.Any("error", err))
		os.Exit(1)
	}
	planService := service.NewPlanService(raceRepo, planRepo, dayRepo, lockRepo, service.PlanServiceConfig{
		Distributor:            distributor,
		DefaultAthleteAge:      cfg.Planner.DefaultAthleteAge,
		DefaultBaselineMileage: cfg.Planner.DefaultBaselineMileage,
		LockTTL:                cfg.Planner.LockTTL,
	}, logger, m)
	dayService := service.NewTrainingDayService(planRepo, dayRepo, archive, logger, m, nil)
	reconcileService := service.NewReconcileService(dayRepo, archive, logger, m, nil)

	// --- Initialize Gin Engine ---
	if strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default() // Includes Logger and Recovery middleware

	api.SetupRoutes(router, api.RouteConfig{
		JWTSecret:    cfg.JWT.Secret,
		IngestAPIKey: cfg.Ingest.APIKey,
		Metrics:      m,
	}, planService, dayService, reconcileService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // generation writes a whole plan
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ListenAndServe error", slog.Any("error", err))
			os.Exit(1)
		}
	}()
	logger.Info("server listening", slog.String("address", cfg.Server.Address))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}
	logger.Info("server exiting")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func buildDistributor(cfg config.PlannerConfig) (*planner.Distributor, error) {
	pattern := planner.DefaultPattern
	if len(cfg.WeeklyPattern) > 0 {
		p, err := planner.ParsePattern(cfg.WeeklyPattern)
		if err != nil {
			return nil, err
		}
		pattern = p
	}
	longRun := planner.DefaultLongRunPolicy
	if cfg.LongRunShare > 0 {
		longRun.Share = cfg.LongRunShare
	}
	if cfg.LongRunCap > 0 {
		longRun.Cap = cfg.LongRunCap
	}
	return planner.NewDistributor(pattern, longRun, planner.DefaultZonePolicy)
}
