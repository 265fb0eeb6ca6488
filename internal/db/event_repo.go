package db

import (
	"context"
	"fmt"
	"time"

	"github.com/seatguard/seatguard/internal/core"
)

// AppendEvent writes one audit record. The table is append-only; no update
// or delete statements exist for it in this codebase.
func (r *Repository) AppendEvent(ctx context.Context, e *core.Event) error {
	query := `
        INSERT INTO seat_events (
            id, tenant_id, user_id, role, kind, reused, reason,
            remote_addr, client_label, seat_quota, active_count, created_at
        ) VALUES (
            :id, :tenant_id, :user_id, :role, :kind, :reused, :reason,
            :remote_addr, :client_label, :seat_quota, :active_count, :created_at
        )`

	_, err := r.db.NamedExecContext(ctx, query, e)
	return err
}

func (r *Repository) QueryEvents(ctx context.Context, tenantID string, filters core.EventFilters) ([]core.Event, error) {
	query := `SELECT * FROM seat_events WHERE tenant_id = $1`
	args := []interface{}{tenantID}

	if filters.Kind != "" {
		args = append(args, filters.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filters.Role != "" {
		args = append(args, filters.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filters.UserID != "" {
		args = append(args, filters.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filters.Since != nil {
		args = append(args, *filters.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	limit := filters.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	events := []core.Event{}
	err := r.db.SelectContext(ctx, &events, query, args...)
	return events, err
}

// EventCounts returns per (kind, role) totals since the cutoff. The audit
// stats endpoint derives rates from these.
func (r *Repository) EventCounts(ctx context.Context, tenantID string, since time.Time) (map[core.EventKind]map[core.Role]int, error) {
	rows := []struct {
		Kind  core.EventKind `db:"kind"`
		Role  core.Role      `db:"role"`
		Count int            `db:"count"`
	}{}
	query := `
        SELECT kind, role, COUNT(*) AS count
        FROM seat_events
        WHERE tenant_id = $1 AND created_at >= $2
        GROUP BY kind, role`

	if err := r.db.SelectContext(ctx, &rows, query, tenantID, since); err != nil {
		return nil, err
	}

	counts := make(map[core.EventKind]map[core.Role]int)
	for _, row := range rows {
		if counts[row.Kind] == nil {
			counts[row.Kind] = make(map[core.Role]int)
		}
		counts[row.Kind][row.Role] = row.Count
	}
	return counts, nil
}
