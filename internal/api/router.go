package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/api/handlers"
	"github.com/seatguard/seatguard/internal/api/middleware"
	"github.com/seatguard/seatguard/internal/audit"
	"github.com/seatguard/seatguard/internal/config"
	"github.com/seatguard/seatguard/internal/db"
	"github.com/seatguard/seatguard/internal/metrics"
	"github.com/seatguard/seatguard/internal/seats"
	"github.com/seatguard/seatguard/internal/storage/redis"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
}

func NewServer(cfg *config.Config, repo *db.Repository, cache *redis.Client, seatSvc *seats.Service, auditLog *audit.Logger, collector *metrics.Collector, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	server := &Server{
		Config: cfg,
		Router: router,
	}

	h := handlers.NewHandler(repo, seatSvc, auditLog, cache, collector, cfg, logger)
	server.setupRoutes(h, collector)
	return server
}

func (s *Server) setupRoutes(h *handlers.Handler, collector *metrics.Collector) {
	// Health and scrape endpoints
	s.Router.GET("/health", h.Health)
	s.Router.GET("/ready", h.Ready)
	s.Router.GET("/metrics", gin.WrapH(collector.Handler()))

	// Auth routes
	auth := s.Router.Group("/api/v1/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
	}

	// API routes (protected)
	api := s.Router.Group("/api/v1")
	api.Use(middleware.AuthRequired(s.Config.Auth.JWTSecret))

	// Session lifecycle
	{
		api.POST("/sessions",
			middleware.AdmitRateLimit(s.Config.Seats.AdmitRatePerMin, s.Config.Seats.AdmitBurst),
			h.Admit,
		)
		api.POST("/sessions/heartbeat", h.Heartbeat)
		api.DELETE("/sessions", h.Disconnect)
		api.GET("/sessions", h.ListSessions)
	}

	// Seat quotas and visibility
	{
		api.GET("/seats", h.GetSeatQuotas)
		api.PUT("/seats", h.UpdateSeatQuotas)
		api.GET("/events", h.ListEvents)
		api.GET("/stats", h.GetStats)
	}
}
