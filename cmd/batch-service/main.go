package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batch-runner/internal/batch/catalog"
	"batch-runner/internal/batch/config"
	delivery "batch-runner/internal/batch/delivery/http"
	"batch-runner/internal/batch/events"
	"batch-runner/internal/batch/repository"
	"batch-runner/internal/batch/runner"
	"batch-runner/internal/batch/service"
	"batch-runner/pkg/logger"
	"batch-runner/pkg/postgres"
	"batch-runner/pkg/redis"
	"batch-runner/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the batch execution service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Batch Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize the execution event publisher
	publisher := events.NewNopPublisher()
	if cfg.Events.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
		}
		defer redisClient.Close()
		publisher = events.NewRedisPublisher(redisClient.Client, cfg.Events.StreamMaxLen, appLogger)
	}

	// Initialize the failure alert notifier
	var notifier telegram.Notifier
	if cfg.Alerting.Enabled {
		notifier, err = telegram.NewClient(cfg.Alerting.TelegramBotToken, cfg.Alerting.TelegramChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize repositories
	executionRepo := repository.NewExecutionRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	// Initialize the job catalog and runner
	jobCatalog := catalog.New(cfg.Batch.Jobs)
	commandBuilder := runner.NewCommandBuilder(cfg.Batch.CommandBuilder, cfg.Batch.ScriptExtension)
	processRunner := runner.NewProcessRunner(appLogger)

	// Initialize services
	executionSvc := service.NewExecutionService(jobCatalog, executionRepo, commandBuilder, processRunner, publisher, notifier, appLogger)
	historySvc := service.NewHistoryService(executionRepo, userRepo, appLogger)

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	batchHandler := delivery.NewBatchHandler(executionSvc, historySvc, appLogger)
	apiV1 := e.Group("/api/v1")
	batchGroup := apiV1.Group("/batch", delivery.Identity())

	rps := cfg.Batch.ExecuteRateRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Batch.ExecuteBurst
	if burst <= 0 {
		burst = 10
	}
	batchHandler.RegisterRoutes(batchGroup, delivery.RateLimit(rps, burst))

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "batch-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-batch.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing batch-service CLI: %s\n", err)
		os.Exit(1)
	}
}
