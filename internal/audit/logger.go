// Package audit maintains the append-only trail of admission decisions.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/metrics"
)

// EventStore persists seat events. *db.Repository implements it.
type EventStore interface {
	AppendEvent(ctx context.Context, e *core.Event) error
	QueryEvents(ctx context.Context, tenantID string, filters core.EventFilters) ([]core.Event, error)
	EventCounts(ctx context.Context, tenantID string, since time.Time) (map[core.EventKind]map[core.Role]int, error)
}

// Logger writes seat events best-effort: a failed append is logged and
// counted but never surfaces to the admission path.
type Logger struct {
	store   EventStore
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewLogger returns an audit logger over store. collector may be nil.
func NewLogger(store EventStore, collector *metrics.Collector, logger *zap.Logger) *Logger {
	return &Logger{
		store:   store,
		logger:  logger,
		metrics: collector,
		now:     time.Now,
	}
}

// Record appends one event, filling in ID and timestamp when unset.
func (l *Logger) Record(ctx context.Context, e core.Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}

	if err := l.store.AppendEvent(ctx, &e); err != nil {
		l.logger.Warn("Failed to append seat event",
			zap.Error(err),
			zap.String("tenant_id", e.TenantID),
			zap.String("user_id", e.UserID),
			zap.String("kind", string(e.Kind)),
		)
		if l.metrics != nil {
			l.metrics.RecordAuditWriteFailure(e.TenantID)
		}
	}
}

func (l *Logger) Query(ctx context.Context, tenantID string, filters core.EventFilters) ([]core.Event, error) {
	return l.store.QueryEvents(ctx, tenantID, filters)
}

// Stats aggregates the trail over the last windowDays days.
func (l *Logger) Stats(ctx context.Context, tenantID string, windowDays int) (*core.EventStats, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	since := l.now().AddDate(0, 0, -windowDays)

	counts, err := l.store.EventCounts(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	stats := &core.EventStats{
		WindowDays: windowDays,
		ByRole:     make(map[core.Role]core.RoleStats),
	}

	for kind, byRole := range counts {
		for role, n := range byRole {
			rs := stats.ByRole[role]
			switch kind {
			case core.EventConnect:
				stats.Connects += n
				rs.Connects += n
			case core.EventDisconnect:
				stats.Disconnects += n
			case core.EventRejected:
				stats.Rejections += n
				rs.Rejections += n
			case core.EventTimeout:
				stats.Timeouts += n
				rs.Timeouts += n
			case core.EventHeartbeat:
				stats.Heartbeats += n
			}
			stats.ByRole[role] = rs
		}
	}

	if attempts := stats.Connects + stats.Rejections; attempts > 0 {
		stats.RejectionRate = float64(stats.Rejections) / float64(attempts)
	}

	return stats, nil
}
