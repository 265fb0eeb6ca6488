package seats

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/metrics"
)

// memRegistry is an in-memory Registry with the same atomicity guarantees
// as the postgres implementation: one record per (tenant, user, role),
// monotonic last_seen, soft-closed rows visible to FindRecentConnection.
type memRegistry struct {
	mu    sync.Mutex
	conns map[string]*core.Connection
	err   error
}

func newMemRegistry() *memRegistry {
	return &memRegistry{conns: make(map[string]*core.Connection)}
}

func regKey(tenantID, userID string, role core.Role) string {
	return tenantID + "|" + userID + "|" + string(role)
}

func (r *memRegistry) UpsertConnection(ctx context.Context, tenantID, userID string, role core.Role, sessionToken, tokenHash string, origin core.Origin, now time.Time) (*core.Connection, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := regKey(tenantID, userID, role)
	conn, ok := r.conns[key]
	if !ok {
		conn = &core.Connection{
			TenantID:    tenantID,
			UserID:      userID,
			Role:        role,
			ConnectedAt: now,
			LastSeen:    now,
		}
		r.conns[key] = conn
	}

	if conn.Status != core.ConnectionLive {
		conn.ConnectedAt = now
	}
	conn.SessionToken = sessionToken
	conn.TokenHash = tokenHash
	conn.RemoteAddr = origin.RemoteAddr
	conn.ClientLabel = origin.ClientLabel
	conn.Status = core.ConnectionLive
	conn.ClosedAt = nil
	if now.After(conn.LastSeen) {
		conn.LastSeen = now
	}

	copied := *conn
	return &copied, nil
}

func (r *memRegistry) CloseConnection(ctx context.Context, tenantID, userID string, role core.Role, now time.Time) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[regKey(tenantID, userID, role)]
	if !ok || conn.Status != core.ConnectionLive {
		return false, nil
	}
	conn.Status = core.ConnectionClosed
	closedAt := now
	conn.ClosedAt = &closedAt
	return true, nil
}

func (r *memRegistry) TouchConnection(ctx context.Context, tenantID, userID string, role core.Role, now time.Time) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[regKey(tenantID, userID, role)]
	if !ok || conn.Status != core.ConnectionLive {
		return false, nil
	}
	if now.After(conn.LastSeen) {
		conn.LastSeen = now
	}
	return true, nil
}

func (r *memRegistry) CountActive(ctx context.Context, tenantID string, role core.Role) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, conn := range r.conns {
		if conn.TenantID == tenantID && conn.Role == role && conn.Status == core.ConnectionLive {
			count++
		}
	}
	return count, nil
}

func (r *memRegistry) CountsByRole(ctx context.Context, tenantID string) (map[core.Role]int, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[core.Role]int)
	for _, conn := range r.conns {
		if conn.TenantID == tenantID && conn.Status == core.ConnectionLive {
			counts[conn.Role]++
		}
	}
	return counts, nil
}

func (r *memRegistry) FindRecentConnection(ctx context.Context, tenantID, userID string, since time.Time) (*core.Connection, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *core.Connection
	for _, conn := range r.conns {
		if conn.TenantID != tenantID || conn.UserID != userID {
			continue
		}
		if !conn.LastSeen.After(since) {
			continue
		}
		if best == nil || conn.LastSeen.After(best.LastSeen) {
			best = conn
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (r *memRegistry) SweepStale(ctx context.Context, cutoff, purgeBefore time.Time) ([]core.Connection, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []core.Connection
	for key, conn := range r.conns {
		switch conn.Status {
		case core.ConnectionLive:
			if conn.LastSeen.Before(cutoff) {
				evicted = append(evicted, *conn)
				delete(r.conns, key)
			}
		case core.ConnectionClosed:
			if conn.LastSeen.Before(purgeBefore) {
				delete(r.conns, key)
			}
		}
	}
	return evicted, nil
}

func (r *memRegistry) ListActiveConnections(ctx context.Context, tenantID string) ([]core.Connection, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var conns []core.Connection
	for _, conn := range r.conns {
		if conn.TenantID == tenantID && conn.Status == core.ConnectionLive {
			conns = append(conns, *conn)
		}
	}
	return conns, nil
}

// get returns the stored record for direct assertions.
func (r *memRegistry) get(tenantID, userID string, role core.Role) *core.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[regKey(tenantID, userID, role)]
	if !ok {
		return nil
	}
	copied := *conn
	return &copied
}

type memTenants struct {
	mu      sync.Mutex
	tenants map[string]*core.Tenant
	written map[string]core.SeatCounts
	getErr  error
}

func newMemTenants(tenants ...*core.Tenant) *memTenants {
	m := &memTenants{
		tenants: make(map[string]*core.Tenant),
		written: make(map[string]core.SeatCounts),
	}
	for _, t := range tenants {
		m.tenants[t.ID.String()] = t
	}
	return m
}

var errTenantMissing = errors.New("tenant not found")

func (m *memTenants) GetTenant(ctx context.Context, id string) (*core.Tenant, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, errTenantMissing
	}
	copied := *t
	return &copied, nil
}

func (m *memTenants) WriteSeatCounts(ctx context.Context, tenantID string, counts core.SeatCounts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[tenantID] = counts
	if t, ok := m.tenants[tenantID]; ok {
		t.DeveloperActive = counts.Developer
		t.StakeholderActive = counts.Stakeholder
		t.AdminActive = counts.Admin
	}
	return nil
}

func (m *memTenants) writtenCounts(tenantID string) core.SeatCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written[tenantID]
}

type memAudit struct {
	mu     sync.Mutex
	events []core.Event
}

func (a *memAudit) Record(ctx context.Context, e core.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *memAudit) byKind(kind core.EventKind) []core.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []core.Event
	for _, e := range a.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	registry *memRegistry
	tenants  *memTenants
	audit    *memAudit
	counter  *Counter
	svc      *Service
}

func newTestEnv(tenant *core.Tenant) *testEnv {
	registry := newMemRegistry()
	tenants := newMemTenants(tenant)
	auditLog := &memAudit{}
	collector := metrics.NewCollector()
	logger := zap.NewNop()

	counter := NewCounter(registry, tenants, nil, collector, logger)
	svc := NewService(registry, tenants, auditLog, counter, collector, 5*time.Minute, logger)

	return &testEnv{
		registry: registry,
		tenants:  tenants,
		audit:    auditLog,
		counter:  counter,
		svc:      svc,
	}
}
