package seats

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/metrics"
)

func newTestMonitor(env *testEnv, timeout, grace time.Duration) *Monitor {
	return NewMonitor(
		env.registry, env.tenants, env.audit, env.counter, metrics.NewCollector(),
		timeout, grace, time.Second,
		zap.NewNop(),
	)
}

func TestSweep_EvictsSilentSessions(t *testing.T) {
	tenant := testTenant(5, true)
	env := newTestEnv(tenant)
	ctx := context.Background()
	tid := tenant.ID.String()

	base := time.Now()

	// X last heartbeated 130s ago, Y 60s ago. With a 120s timeout only X
	// is past the cutoff.
	env.svc.now = func() time.Time { return base.Add(-130 * time.Second) }
	if _, err := env.svc.Admit(ctx, admitReq(tid, "x", core.RoleDeveloper)); err != nil {
		t.Fatalf("admit x: %v", err)
	}
	env.svc.now = func() time.Time { return base.Add(-60 * time.Second) }
	if _, err := env.svc.Admit(ctx, admitReq(tid, "y", core.RoleDeveloper)); err != nil {
		t.Fatalf("admit y: %v", err)
	}

	monitor := newTestMonitor(env, 2*time.Minute, 5*time.Minute)
	monitor.now = func() time.Time { return base }

	evicted, err := monitor.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}

	if env.registry.get(tid, "x", core.RoleDeveloper) != nil {
		t.Error("x should have been reclaimed")
	}
	if conn := env.registry.get(tid, "y", core.RoleDeveloper); conn == nil || conn.Status != core.ConnectionLive {
		t.Error("y should still be live")
	}

	timeouts := env.audit.byKind(core.EventTimeout)
	if len(timeouts) != 1 {
		t.Fatalf("expected 1 timeout event, got %d", len(timeouts))
	}
	ev := timeouts[0]
	if ev.UserID != "x" {
		t.Errorf("timeout event for %q, want x", ev.UserID)
	}
	if ev.Reason != "heartbeat timeout" {
		t.Errorf("timeout reason = %q", ev.Reason)
	}
	if ev.SeatQuota != 5 || ev.ActiveCount != 1 {
		t.Errorf("timeout snapshot = (%d, %d), want (5, 1)", ev.SeatQuota, ev.ActiveCount)
	}

	// The reclaimed seat is reflected in the tenant's counts.
	if got := env.tenants.writtenCounts(tid); got.Developer != 1 {
		t.Errorf("developer count after sweep = %d, want 1", got.Developer)
	}
}

func TestSweep_Idempotent(t *testing.T) {
	tenant := testTenant(5, true)
	env := newTestEnv(tenant)
	ctx := context.Background()
	tid := tenant.ID.String()

	base := time.Now()
	env.svc.now = func() time.Time { return base.Add(-10 * time.Minute) }
	if _, err := env.svc.Admit(ctx, admitReq(tid, "x", core.RoleDeveloper)); err != nil {
		t.Fatalf("admit: %v", err)
	}

	monitor := newTestMonitor(env, 2*time.Minute, 5*time.Minute)
	monitor.now = func() time.Time { return base }

	first, err := monitor.Sweep(ctx)
	if err != nil || first != 1 {
		t.Fatalf("first sweep: evicted=%d err=%v", first, err)
	}
	second, err := monitor.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second != 0 {
		t.Errorf("second sweep evicted %d, want 0", second)
	}
	if got := len(env.audit.byKind(core.EventTimeout)); got != 1 {
		t.Errorf("timeout events after double sweep = %d, want 1", got)
	}
}

func TestSweep_SkipsGracefullyDisconnected(t *testing.T) {
	tenant := testTenant(5, true)
	env := newTestEnv(tenant)
	ctx := context.Background()
	tid := tenant.ID.String()

	base := time.Now()
	env.svc.now = func() time.Time { return base.Add(-10 * time.Minute) }
	if _, err := env.svc.Admit(ctx, admitReq(tid, "x", core.RoleDeveloper)); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, err := env.svc.Disconnect(ctx, tid, "x", core.RoleDeveloper); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	monitor := newTestMonitor(env, 2*time.Minute, 5*time.Minute)
	monitor.now = func() time.Time { return base }

	evicted, err := monitor.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if evicted != 0 {
		t.Errorf("evicted = %d, want 0 (already disconnected)", evicted)
	}
	if got := len(env.audit.byKind(core.EventTimeout)); got != 0 {
		t.Errorf("timeout events = %d, want 0", got)
	}

	// The closed row is past the grace window and gets purged.
	if env.registry.get(tid, "x", core.RoleDeveloper) != nil {
		t.Error("closed row past the grace window should have been purged")
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	tenant := testTenant(5, true)
	env := newTestEnv(tenant)

	monitor := newTestMonitor(env, 2*time.Minute, 5*time.Minute)
	monitor.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
