package seats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/core"
	"github.com/seatguard/seatguard/internal/metrics"
)

// Service is the admission controller: it decides whether a new session
// gets a seat, and handles heartbeats and disconnects. Storage failures
// fail closed — no seat is granted while the registry is unreachable.
type Service struct {
	registry Registry
	tenants  TenantStore
	audit    AuditLog
	counter  *Counter
	metrics  *metrics.Collector
	locks    *keyedMutex
	grace    time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(registry Registry, tenants TenantStore, audit AuditLog, counter *Counter, collector *metrics.Collector, grace time.Duration, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		tenants:  tenants,
		audit:    audit,
		counter:  counter,
		metrics:  collector,
		locks:    newKeyedMutex(),
		grace:    grace,
		logger:   logger,
		now:      time.Now,
	}
}

type AdmitRequest struct {
	TenantID  string
	UserID    string
	Role      core.Role
	Origin    core.Origin
	TokenHash string
}

type AdmitResult struct {
	Admitted     bool   `json:"admitted"`
	SessionToken string `json:"session_token,omitempty"`
	Reused       bool   `json:"reused,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Quota        int    `json:"quota"`
	ActiveCount  int    `json:"active_count"`
}

// Admit runs the admission algorithm: grace-window reconnects reuse their
// prior slot without a quota check; unlimited or unenforced quotas admit
// unconditionally; otherwise the count-then-upsert sequence runs under the
// per-(tenant, role) lock so concurrent admissions cannot overshoot the
// quota.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*AdmitResult, error) {
	now := s.now()

	tenant, err := s.tenants.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	quota := tenant.QuotaFor(req.Role)

	recent, err := s.registry.FindRecentConnection(ctx, req.TenantID, req.UserID, now.Add(-s.grace))
	if err != nil {
		return nil, fmt.Errorf("grace lookup: %w", err)
	}
	if recent != nil && recent.Role == req.Role {
		// Reconnect within the grace window replaces the user's own
		// prior slot, so the quota is not consulted.
		return s.occupySlot(ctx, req, quota, true, now)
	}

	if !tenant.SeatsEnforced || quota == core.QuotaUnlimited {
		return s.occupySlot(ctx, req, quota, false, now)
	}

	unlock := s.locks.Lock(req.TenantID + "/" + string(req.Role))
	defer unlock()

	count, err := s.registry.CountActive(ctx, req.TenantID, req.Role)
	if err != nil {
		return nil, fmt.Errorf("count active seats: %w", err)
	}

	if count >= quota {
		reason := fmt.Sprintf("seat quota reached for role %s (%d/%d)", req.Role, count, quota)
		s.audit.Record(ctx, core.Event{
			TenantID:    req.TenantID,
			UserID:      req.UserID,
			Role:        req.Role,
			Kind:        core.EventRejected,
			Reason:      reason,
			RemoteAddr:  req.Origin.RemoteAddr,
			ClientLabel: req.Origin.ClientLabel,
			SeatQuota:   quota,
			ActiveCount: count,
		})
		s.metrics.RecordAdmission(req.TenantID, req.Role, metrics.ResultRejected)
		s.logger.Info("Admission rejected",
			zap.String("tenant_id", req.TenantID),
			zap.String("user_id", req.UserID),
			zap.String("role", string(req.Role)),
			zap.Int("quota", quota),
			zap.Int("active", count),
		)
		return &AdmitResult{
			Admitted:    false,
			Reason:      reason,
			Quota:       quota,
			ActiveCount: count,
		}, nil
	}

	return s.occupySlot(ctx, req, quota, false, now)
}

func (s *Service) occupySlot(ctx context.Context, req AdmitRequest, quota int, reused bool, now time.Time) (*AdmitResult, error) {
	token := uuid.New().String()

	if _, err := s.registry.UpsertConnection(ctx, req.TenantID, req.UserID, req.Role, token, req.TokenHash, req.Origin, now); err != nil {
		return nil, fmt.Errorf("register connection: %w", err)
	}

	count, err := s.registry.CountActive(ctx, req.TenantID, req.Role)
	if err != nil {
		// The seat is already granted; -1 marks a snapshot that could
		// not be taken.
		s.logger.Warn("Failed to snapshot active count", zap.Error(err))
		count = -1
	}

	s.audit.Record(ctx, core.Event{
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		Role:        req.Role,
		Kind:        core.EventConnect,
		Reused:      reused,
		RemoteAddr:  req.Origin.RemoteAddr,
		ClientLabel: req.Origin.ClientLabel,
		SeatQuota:   quota,
		ActiveCount: count,
	})

	result := metrics.ResultAdmitted
	if reused {
		result = metrics.ResultReused
	}
	s.metrics.RecordAdmission(req.TenantID, req.Role, result)

	s.recount(ctx, req.TenantID)

	return &AdmitResult{
		Admitted:     true,
		SessionToken: token,
		Reused:       reused,
		Quota:        quota,
		ActiveCount:  count,
	}, nil
}

// Heartbeat refreshes a live session's last-seen timestamp. Returns false,
// without error, when the session was already reclaimed.
func (s *Service) Heartbeat(ctx context.Context, tenantID, userID string, role core.Role) (bool, error) {
	alive, err := s.registry.TouchConnection(ctx, tenantID, userID, role, s.now())
	if err != nil {
		return false, fmt.Errorf("refresh heartbeat: %w", err)
	}
	if !alive {
		return false, nil
	}

	s.metrics.RecordHeartbeat(tenantID, role)
	quota, count := s.snapshot(ctx, tenantID, role)
	s.audit.Record(ctx, core.Event{
		TenantID:    tenantID,
		UserID:      userID,
		Role:        role,
		Kind:        core.EventHeartbeat,
		SeatQuota:   quota,
		ActiveCount: count,
	})

	return true, nil
}

// Disconnect releases the user's seat. Absent sessions are a benign no-op.
func (s *Service) Disconnect(ctx context.Context, tenantID, userID string, role core.Role) (bool, error) {
	removed, err := s.registry.CloseConnection(ctx, tenantID, userID, role, s.now())
	if err != nil {
		return false, fmt.Errorf("close connection: %w", err)
	}
	if !removed {
		return false, nil
	}

	s.metrics.RecordDisconnect(tenantID, role)
	quota, count := s.snapshot(ctx, tenantID, role)
	s.audit.Record(ctx, core.Event{
		TenantID:    tenantID,
		UserID:      userID,
		Role:        role,
		Kind:        core.EventDisconnect,
		SeatQuota:   quota,
		ActiveCount: count,
	})

	s.recount(ctx, tenantID)

	return true, nil
}

// snapshot captures (quota, active count) for an event record, best-effort.
func (s *Service) snapshot(ctx context.Context, tenantID string, role core.Role) (int, int) {
	quota, count := -1, -1
	if tenant, err := s.tenants.GetTenant(ctx, tenantID); err == nil {
		quota = tenant.QuotaFor(role)
	}
	if n, err := s.registry.CountActive(ctx, tenantID, role); err == nil {
		count = n
	}
	return quota, count
}

func (s *Service) recount(ctx context.Context, tenantID string) {
	if _, err := s.counter.Recalculate(ctx, tenantID); err != nil {
		s.logger.Warn("Seat recount failed",
			zap.Error(err),
			zap.String("tenant_id", tenantID),
		)
	}
}
