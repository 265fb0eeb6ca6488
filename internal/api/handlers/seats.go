package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/db"
)

// GetSeatQuotas returns the tenant's per-role quotas and the cached active
// counts maintained by the seat counter.
func (h *Handler) GetSeatQuotas(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	tenant, err := h.repo.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, db.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tenant"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seats_enforced": tenant.SeatsEnforced,
		"quotas": gin.H{
			"developer":   tenant.DeveloperQuota,
			"stakeholder": tenant.StakeholderQuota,
			"admin":       tenant.AdminQuota,
		},
		"active": tenant.ActiveCounts(),
	})
}

type UpdateSeatQuotasRequest struct {
	SeatsEnforced    *bool `json:"seats_enforced"`
	DeveloperQuota   *int  `json:"developer_quota"`
	StakeholderQuota *int  `json:"stakeholder_quota"`
	AdminQuota       *int  `json:"admin_quota"`
}

func (h *Handler) UpdateSeatQuotas(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req UpdateSeatQuotasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, q := range []*int{req.DeveloperQuota, req.StakeholderQuota, req.AdminQuota} {
		if q != nil && *q < core.QuotaUnlimited {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quota must be non-negative or -1 for unlimited"})
			return
		}
	}

	tenant, err := h.repo.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, db.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tenant"})
		return
	}

	if req.SeatsEnforced != nil {
		tenant.SeatsEnforced = *req.SeatsEnforced
	}
	if req.DeveloperQuota != nil {
		tenant.DeveloperQuota = *req.DeveloperQuota
	}
	if req.StakeholderQuota != nil {
		tenant.StakeholderQuota = *req.StakeholderQuota
	}
	if req.AdminQuota != nil {
		tenant.AdminQuota = *req.AdminQuota
	}

	if err := h.repo.UpdateSeatQuotas(c.Request.Context(), tenant); err != nil {
		h.logger.Error("Failed to update seat quotas", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quotas"})
		return
	}

	h.metrics.SetSeatQuota(tenant)

	c.JSON(http.StatusOK, tenant)
}
