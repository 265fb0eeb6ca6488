package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/audit"
	"github.com/seatguard/seatguard/internal/config"
	"github.com/seatguard/seatguard/internal/db"
	"github.com/seatguard/seatguard/internal/metrics"
	"github.com/seatguard/seatguard/internal/seats"
	"github.com/seatguard/seatguard/internal/storage/redis"
)

// The sweeper runs the liveness monitor in its own process, coordinating
// with the API servers only through the shared database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	database, err := db.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	repo := db.NewRepository(database)

	cache := redis.NewClient(cfg.Redis.URL)
	defer cache.Close()

	collector := metrics.NewCollector()
	auditLog := audit.NewLogger(repo, collector, logger)
	counter := seats.NewCounter(repo, repo, cache, collector, logger)

	monitor := seats.NewMonitor(
		repo, repo, auditLog, counter, collector,
		cfg.Seats.HeartbeatTimeout, cfg.Seats.GracePeriod, cfg.Seats.SweepInterval,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go monitor.Run(ctx)

	writer := metrics.NewRemoteWriter(cfg.Metrics, collector, logger)
	go writer.Start(ctx)

	logger.Info("Sweeper started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down sweeper...")
	cancel()
	logger.Info("Sweeper exited")
}
