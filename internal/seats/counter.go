package seats

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/metrics"
)

// Counter recomputes per-role active tallies as a full aggregate over the
// registry, never as an incremental delta, so concurrent or repeated
// recalculations always converge on the registry's current state.
type Counter struct {
	registry Registry
	tenants  TenantStore
	cache    CountCache
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewCounter returns a seat counter. cache may be nil.
func NewCounter(registry Registry, tenants TenantStore, cache CountCache, collector *metrics.Collector, logger *zap.Logger) *Counter {
	return &Counter{
		registry: registry,
		tenants:  tenants,
		cache:    cache,
		metrics:  collector,
		logger:   logger,
	}
}

// Recalculate derives the tenant's active seat counts from the registry and
// writes them to the tenant record and, best-effort, the cache.
func (c *Counter) Recalculate(ctx context.Context, tenantID string) (core.SeatCounts, error) {
	byRole, err := c.registry.CountsByRole(ctx, tenantID)
	if err != nil {
		return core.SeatCounts{}, fmt.Errorf("aggregate seat counts: %w", err)
	}

	var counts core.SeatCounts
	for role, n := range byRole {
		counts.Set(role, n)
	}

	if err := c.tenants.WriteSeatCounts(ctx, tenantID, counts); err != nil {
		return counts, fmt.Errorf("write seat counts: %w", err)
	}

	c.metrics.SetActiveSeats(tenantID, counts)

	if c.cache != nil {
		if err := c.cache.CacheSeatCounts(ctx, tenantID, counts); err != nil {
			c.logger.Warn("Failed to cache seat counts",
				zap.Error(err),
				zap.String("tenant_id", tenantID),
			)
		}
	}

	return counts, nil
}
