package seats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/metrics"
)

// Monitor reclaims seats from sessions whose heartbeat has gone silent past
// the timeout. It coordinates with admissions only through the registry, so
// it can run in a separate process.
type Monitor struct {
	registry Registry
	tenants  TenantStore
	audit    AuditLog
	counter  *Counter
	metrics  *metrics.Collector
	logger   *zap.Logger

	timeout  time.Duration
	grace    time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewMonitor(registry Registry, tenants TenantStore, audit AuditLog, counter *Counter, collector *metrics.Collector, timeout, grace, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		tenants:  tenants,
		audit:    audit,
		counter:  counter,
		metrics:  collector,
		logger:   logger,
		timeout:  timeout,
		grace:    grace,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Starting liveness monitor",
		zap.Duration("timeout", m.timeout),
		zap.Duration("interval", m.interval),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping liveness monitor")
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error("Liveness sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep evicts every session last seen before now minus the heartbeat
// timeout, logs a timeout event per evicted session with the post-eviction
// snapshot, and recounts the affected tenants. Idempotent: a record already
// removed by a graceful disconnect simply does not appear in the result.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	start := m.now()

	evicted, err := m.registry.SweepStale(ctx, start.Add(-m.timeout), start.Add(-m.grace))
	if err != nil {
		return 0, err
	}
	if len(evicted) == 0 {
		m.metrics.RecordSweepDuration(time.Since(start).Seconds())
		return 0, nil
	}

	type slot struct {
		tenantID string
		role     core.Role
	}
	bySlot := make(map[slot][]core.Connection)
	tenants := make(map[string]struct{})
	for _, conn := range evicted {
		key := slot{conn.TenantID, conn.Role}
		bySlot[key] = append(bySlot[key], conn)
		tenants[conn.TenantID] = struct{}{}
	}

	for key, conns := range bySlot {
		quota := -1
		if tenant, err := m.tenants.GetTenant(ctx, key.tenantID); err == nil {
			quota = tenant.QuotaFor(key.role)
		} else {
			m.logger.Warn("Failed to load tenant for timeout snapshot",
				zap.Error(err),
				zap.String("tenant_id", key.tenantID),
			)
		}

		countAfter, err := m.registry.CountActive(ctx, key.tenantID, key.role)
		if err != nil {
			m.logger.Warn("Failed to snapshot post-eviction count", zap.Error(err))
			countAfter = -1
		}

		for _, conn := range conns {
			m.audit.Record(ctx, core.Event{
				TenantID:    conn.TenantID,
				UserID:      conn.UserID,
				Role:        conn.Role,
				Kind:        core.EventTimeout,
				Reason:      "heartbeat timeout",
				RemoteAddr:  conn.RemoteAddr,
				ClientLabel: conn.ClientLabel,
				SeatQuota:   quota,
				ActiveCount: countAfter,
			})
		}

		m.metrics.RecordEvictions(key.tenantID, key.role, len(conns))
	}

	for tenantID := range tenants {
		if _, err := m.counter.Recalculate(ctx, tenantID); err != nil {
			m.logger.Warn("Seat recount after sweep failed",
				zap.Error(err),
				zap.String("tenant_id", tenantID),
			)
		}
	}

	m.metrics.RecordSweepDuration(time.Since(start).Seconds())
	m.logger.Info("Liveness sweep completed",
		zap.Int("evicted", len(evicted)),
		zap.Duration("duration", time.Since(start)),
	)

	return len(evicted), nil
}
