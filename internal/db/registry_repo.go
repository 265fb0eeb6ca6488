package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/seatguard/seatguard/internal/core"
)

const connectionColumns = `tenant_id, user_id, role, session_token, token_hash,
       remote_addr, client_label, status, connected_at, last_seen, closed_at`

// UpsertConnection atomically creates or revives the slot for
// (tenant, user, role). The ON CONFLICT clause guarantees a single row per
// tuple even under concurrent admissions; last_seen never moves backwards.
func (r *Repository) UpsertConnection(ctx context.Context, tenantID, userID string, role core.Role, sessionToken, tokenHash string, origin core.Origin, now time.Time) (*core.Connection, error) {
	var conn core.Connection
	query := `
        INSERT INTO connections (
            tenant_id, user_id, role, session_token, token_hash,
            remote_addr, client_label, status, connected_at, last_seen
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, 'live', $8, $8
        ) ON CONFLICT (tenant_id, user_id, role) DO UPDATE SET
            session_token = EXCLUDED.session_token,
            token_hash = EXCLUDED.token_hash,
            remote_addr = EXCLUDED.remote_addr,
            client_label = EXCLUDED.client_label,
            status = 'live',
            connected_at = CASE WHEN connections.status = 'live'
                THEN connections.connected_at ELSE EXCLUDED.connected_at END,
            last_seen = GREATEST(connections.last_seen, EXCLUDED.last_seen),
            closed_at = NULL
        RETURNING ` + connectionColumns

	err := r.db.GetContext(ctx, &conn, query,
		tenantID, userID, role, sessionToken, tokenHash,
		origin.RemoteAddr, origin.ClientLabel, now,
	)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// CloseConnection soft-closes the live slot so a grace-window reconnect can
// still find it. Returns false when no live record existed.
func (r *Repository) CloseConnection(ctx context.Context, tenantID, userID string, role core.Role, now time.Time) (bool, error) {
	query := `
        UPDATE connections
        SET status = 'closed', closed_at = $4
        WHERE tenant_id = $1 AND user_id = $2 AND role = $3 AND status = 'live'`

	res, err := r.db.ExecContext(ctx, query, tenantID, userID, role, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// TouchConnection refreshes last_seen for a live session. Returns false when
// the session was not found, e.g. already reclaimed by the sweep.
func (r *Repository) TouchConnection(ctx context.Context, tenantID, userID string, role core.Role, now time.Time) (bool, error) {
	query := `
        UPDATE connections
        SET last_seen = GREATEST(last_seen, $4)
        WHERE tenant_id = $1 AND user_id = $2 AND role = $3 AND status = 'live'`

	res, err := r.db.ExecContext(ctx, query, tenantID, userID, role, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) CountActive(ctx context.Context, tenantID string, role core.Role) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM connections WHERE tenant_id = $1 AND role = $2 AND status = 'live'`
	err := r.db.GetContext(ctx, &count, query, tenantID, role)
	return count, err
}

func (r *Repository) CountsByRole(ctx context.Context, tenantID string) (map[core.Role]int, error) {
	rows := []struct {
		Role  core.Role `db:"role"`
		Count int       `db:"count"`
	}{}
	query := `
        SELECT role, COUNT(*) AS count
        FROM connections
        WHERE tenant_id = $1 AND status = 'live'
        GROUP BY role`

	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, err
	}

	counts := make(map[core.Role]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// FindRecentConnection returns the user's most recent record, live or
// recently closed, whose last_seen falls after since. Returns nil when the
// user has no record inside the window.
func (r *Repository) FindRecentConnection(ctx context.Context, tenantID, userID string, since time.Time) (*core.Connection, error) {
	var conn core.Connection
	query := `
        SELECT ` + connectionColumns + `
        FROM connections
        WHERE tenant_id = $1 AND user_id = $2 AND last_seen > $3
        ORDER BY last_seen DESC
        LIMIT 1`

	err := r.db.GetContext(ctx, &conn, query, tenantID, userID, since)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// SweepStale deletes and returns every live connection whose last_seen is
// strictly before cutoff, and purges closed rows that have fallen out of the
// grace window. Safe to run concurrently with upserts and removals: each
// row's fate depends only on its own last_seen.
func (r *Repository) SweepStale(ctx context.Context, cutoff, purgeBefore time.Time) ([]core.Connection, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	evicted := []core.Connection{}
	query := `
        DELETE FROM connections
        WHERE status = 'live' AND last_seen < $1
        RETURNING ` + connectionColumns

	if err := tx.SelectContext(ctx, &evicted, query, cutoff); err != nil {
		return nil, err
	}

	purge := `DELETE FROM connections WHERE status = 'closed' AND last_seen < $1`
	if _, err := tx.ExecContext(ctx, purge, purgeBefore); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return evicted, nil
}

func (r *Repository) ListActiveConnections(ctx context.Context, tenantID string) ([]core.Connection, error) {
	conns := []core.Connection{}
	query := `
        SELECT ` + connectionColumns + `
        FROM connections
        WHERE tenant_id = $1 AND status = 'live'
        ORDER BY connected_at DESC`

	err := r.db.SelectContext(ctx, &conns, query, tenantID)
	return conns, err
}
