package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/VictorTelvoice/telsim-sub001/internal/config"
	"github.com/VictorTelvoice/telsim-sub001/internal/infrastructure/database"
	httpServer "github.com/VictorTelvoice/telsim-sub001/internal/infrastructure/http"
	stripeprovider "github.com/VictorTelvoice/telsim-sub001/internal/infrastructure/provider/stripe"
	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
	"github.com/VictorTelvoice/telsim-sub001/internal/worker"
	"github.com/VictorTelvoice/telsim-sub001/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Service.Environment != "production",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize HTTP server and the webhook retry worker
	httpSrv := httpServer.NewServer(cfg, zapLogger, repos)

	billing := stripeprovider.NewStripeProvider(cfg.Service.StripeSecretKey, zapLogger)
	reconciler := usecase.NewReconciler(repos.User, repos.Slot, repos.Subscription, billing, zapLogger)
	webhookWorker := worker.NewWebhookProcessor(repos.Webhook, reconciler, &cfg.Worker, zapLogger)

	go webhookWorker.Start(ctx)

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")

	cancel()

	if err := httpSrv.Shutdown(context.Background()); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
