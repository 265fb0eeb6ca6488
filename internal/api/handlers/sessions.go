package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/db"
	"github.com/seatguard/seatguard/internal/seats"
)

type AdmitRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Role        string `json:"role" binding:"required"`
	ClientLabel string `json:"client_label,omitempty"`
}

type SessionKeyRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// Admit requests a seat for a new session. Rejections are 403 with the
// reason and snapshot; registry outages fail closed as 503.
func (h *Handler) Admit(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := core.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + req.Role})
		return
	}

	result, err := h.seats.Admit(c.Request.Context(), seats.AdmitRequest{
		TenantID: tenantID,
		UserID:   req.UserID,
		Role:     role,
		Origin: core.Origin{
			RemoteAddr:  c.ClientIP(),
			ClientLabel: req.ClientLabel,
		},
		TokenHash: c.GetString("token_hash"),
	})
	if err != nil {
		if errors.Is(err, db.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		h.logger.Error("Admission failed",
			zap.Error(err),
			zap.String("tenant_id", tenantID),
			zap.String("user_id", req.UserID),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Seat registry unavailable"})
		return
	}

	if !result.Admitted {
		c.JSON(http.StatusForbidden, result)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Heartbeat refreshes a session's liveness. A session already reclaimed is
// reported as alive=false, not an error.
func (h *Handler) Heartbeat(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req SessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := core.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + req.Role})
		return
	}

	alive, err := h.seats.Heartbeat(c.Request.Context(), tenantID, req.UserID, role)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Seat registry unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alive": alive})
}

func (h *Handler) Disconnect(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req SessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := core.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + req.Role})
		return
	}

	if _, err := h.seats.Disconnect(c.Request.Context(), tenantID, req.UserID, role); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Seat registry unavailable"})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) ListSessions(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	conns, err := h.repo.ListActiveConnections(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": conns,
		"count":    len(conns),
	})
}
