package core

import (
	"time"
)

type EventKind string

const (
	EventConnect    EventKind = "connect"
	EventDisconnect EventKind = "disconnect"
	EventHeartbeat  EventKind = "heartbeat"
	EventTimeout    EventKind = "timeout"
	EventRejected   EventKind = "rejected"
)

// Event is one append-only audit record. The quota and active count are
// snapshots taken at decision time and are never recomputed afterwards.
type Event struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Role        Role      `json:"role" db:"role"`
	Kind        EventKind `json:"kind" db:"kind"`
	Reused      bool      `json:"reused" db:"reused"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
	RemoteAddr  string    `json:"remote_addr,omitempty" db:"remote_addr"`
	ClientLabel string    `json:"client_label,omitempty" db:"client_label"`
	SeatQuota   int       `json:"seat_quota" db:"seat_quota"`
	ActiveCount int       `json:"active_count" db:"active_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type EventFilters struct {
	Kind   string
	Role   string
	UserID string
	Since  *time.Time
	Limit  int
}

// EventStats is the aggregate the stats endpoint serves.
type EventStats struct {
	WindowDays    int              `json:"window_days"`
	Connects      int              `json:"connects"`
	Disconnects   int              `json:"disconnects"`
	Rejections    int              `json:"rejections"`
	Timeouts      int              `json:"timeouts"`
	Heartbeats    int              `json:"heartbeats"`
	RejectionRate float64          `json:"rejection_rate"`
	ByRole        map[Role]RoleStats `json:"by_role"`
}

type RoleStats struct {
	Connects   int `json:"connects"`
	Rejections int `json:"rejections"`
	Timeouts   int `json:"timeouts"`
}
