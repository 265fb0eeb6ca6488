package handlers

import (
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/audit"
	"github.com/seatguard/seatguard/internal/config"
	"github.com/seatguard/seatguard/internal/db"
	"github.com/seatguard/seatguard/internal/metrics"
	"github.com/seatguard/seatguard/internal/seats"
	"github.com/seatguard/seatguard/internal/storage/redis"
)

type Handler struct {
	repo    *db.Repository
	seats   *seats.Service
	audit   *audit.Logger
	cache   *redis.Client
	metrics *metrics.Collector
	config  *config.Config
	logger  *zap.Logger
}

func NewHandler(repo *db.Repository, seatSvc *seats.Service, auditLog *audit.Logger, cache *redis.Client, collector *metrics.Collector, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		repo:    repo,
		seats:   seatSvc,
		audit:   auditLog,
		cache:   cache,
		metrics: collector,
		config:  cfg,
		logger:  logger,
	}
}
