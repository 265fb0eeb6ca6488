// Package seats implements seat admission control, liveness sweeping and
// seat counting on top of a durable connection registry.
package seats

import (
	"context"
	"time"

	"github.com/seatguard/seatguard/internal/core"
)

// Registry is the durable source of truth for live sessions, keyed by
// (tenant, user, role). *db.Repository implements it; tests use an
// in-memory version.
type Registry interface {
	// UpsertConnection atomically creates or refreshes the slot for the
	// tuple. Two concurrent upserts for the same key never produce two
	// records.
	UpsertConnection(ctx context.Context, tenantID, userID string, role core.Role, sessionToken, tokenHash string, origin core.Origin, now time.Time) (*core.Connection, error)
	// CloseConnection removes the live record; returns false (not an
	// error) when none existed. A closed record stays findable through
	// FindRecentConnection until it falls out of the grace window.
	CloseConnection(ctx context.Context, tenantID, userID string, role core.Role, now time.Time) (bool, error)
	// TouchConnection refreshes last_seen; false when the session is gone.
	TouchConnection(ctx context.Context, tenantID, userID string, role core.Role, now time.Time) (bool, error)
	CountActive(ctx context.Context, tenantID string, role core.Role) (int, error)
	CountsByRole(ctx context.Context, tenantID string) (map[core.Role]int, error)
	// FindRecentConnection returns the user's most recent record, live or
	// recently closed, seen after since; nil when absent.
	FindRecentConnection(ctx context.Context, tenantID, userID string, since time.Time) (*core.Connection, error)
	// SweepStale deletes and returns live records last seen before cutoff
	// and purges closed records last seen before purgeBefore.
	SweepStale(ctx context.Context, cutoff, purgeBefore time.Time) ([]core.Connection, error)
	ListActiveConnections(ctx context.Context, tenantID string) ([]core.Connection, error)
}

// TenantStore provides the quota configuration and receives recalculated
// seat counts.
type TenantStore interface {
	GetTenant(ctx context.Context, id string) (*core.Tenant, error)
	WriteSeatCounts(ctx context.Context, tenantID string, counts core.SeatCounts) error
}

// AuditLog records admission-relevant events. Implementations are
// best-effort: a failed write must never surface to the admission path.
type AuditLog interface {
	Record(ctx context.Context, e core.Event)
}

// CountCache mirrors recalculated seat counts to a fast store for
// reporting. Optional; a nil cache is skipped.
type CountCache interface {
	CacheSeatCounts(ctx context.Context, tenantID string, counts core.SeatCounts) error
}
