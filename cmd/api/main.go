package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/api"
	"github.com/seatguard/seatguard/internal/audit"
	"github.com/seatguard/seatguard/internal/config"
	"github.com/seatguard/seatguard/internal/db"
	"github.com/seatguard/seatguard/internal/metrics"
	"github.com/seatguard/seatguard/internal/seats"
	"github.com/seatguard/seatguard/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Database
	database, err := db.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(cfg.Database.URL, "up"); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	repo := db.NewRepository(database)

	// Redis
	cache := redis.NewClient(cfg.Redis.URL)
	defer cache.Close()

	// Seat admission pipeline
	collector := metrics.NewCollector()
	auditLog := audit.NewLogger(repo, collector, logger)
	counter := seats.NewCounter(repo, repo, cache, collector, logger)
	seatSvc := seats.NewService(repo, repo, auditLog, counter, collector, cfg.Seats.GracePeriod, logger)

	// API Server
	server := api.NewServer(cfg, repo, cache, seatSvc, auditLog, collector, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
