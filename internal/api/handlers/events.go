package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
)

// ListEvents serves the audit trail with optional kind/role/user/since
// filters.
func (h *Handler) ListEvents(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	filters := core.EventFilters{
		Kind:   c.Query("kind"),
		Role:   c.Query("role"),
		UserID: c.Query("user_id"),
	}

	if s := c.Query("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since timestamp, expected RFC3339"})
			return
		}
		filters.Since = &since
	}

	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filters.Limit = limit
	}

	events, err := h.audit.Query(c.Request.Context(), tenantID, filters)
	if err != nil {
		h.logger.Error("Failed to query events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// GetStats serves audit-derived admission statistics, cached briefly in
// redis when available.
func (h *Handler) GetStats(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	windowDays := 7
	if w := c.Query("window_days"); w != "" {
		parsed, err := strconv.Atoi(w)
		if err != nil || parsed < 1 || parsed > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid window_days"})
			return
		}
		windowDays = parsed
	}

	if h.cache != nil {
		if stats, err := h.cache.GetCachedStats(c.Request.Context(), tenantID, windowDays); err == nil {
			c.JSON(http.StatusOK, stats)
			return
		}
	}

	stats, err := h.audit.Stats(c.Request.Context(), tenantID, windowDays)
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheStats(c.Request.Context(), tenantID, windowDays, stats); err != nil {
			h.logger.Debug("Failed to cache stats", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, stats)
}
