package core

import (
	"time"
)

type Role string

const (
	RoleDeveloper   Role = "developer"
	RoleStakeholder Role = "stakeholder"
	RoleAdmin       Role = "admin"
)

// Roles lists every role a seat can be held under.
var Roles = []Role{RoleDeveloper, RoleStakeholder, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleDeveloper, RoleStakeholder, RoleAdmin:
		return true
	}
	return false
}

type ConnectionStatus string

const (
	ConnectionLive   ConnectionStatus = "live"
	ConnectionClosed ConnectionStatus = "closed"
)

// Origin is the transport metadata recorded with a session.
type Origin struct {
	RemoteAddr  string `json:"remote_addr" db:"remote_addr"`
	ClientLabel string `json:"client_label" db:"client_label"`
}

// Connection is one live (or very recently closed) session slot.
// At most one row exists per (tenant, user, role); a reconnect for the
// same tuple replaces the record instead of duplicating it.
type Connection struct {
	TenantID     string           `json:"tenant_id" db:"tenant_id"`
	UserID       string           `json:"user_id" db:"user_id"`
	Role         Role             `json:"role" db:"role"`
	SessionToken string           `json:"session_token" db:"session_token"`
	TokenHash    string           `json:"-" db:"token_hash"`
	RemoteAddr   string           `json:"remote_addr" db:"remote_addr"`
	ClientLabel  string           `json:"client_label" db:"client_label"`
	Status       ConnectionStatus `json:"status" db:"status"`
	ConnectedAt  time.Time        `json:"connected_at" db:"connected_at"`
	LastSeen     time.Time        `json:"last_seen" db:"last_seen"`
	ClosedAt     *time.Time       `json:"closed_at,omitempty" db:"closed_at"`
}

// SeatCounts is the per-role active tally derived from the registry.
type SeatCounts struct {
	Developer   int `json:"developer"`
	Stakeholder int `json:"stakeholder"`
	Admin       int `json:"admin"`
}

func (c SeatCounts) For(role Role) int {
	switch role {
	case RoleDeveloper:
		return c.Developer
	case RoleStakeholder:
		return c.Stakeholder
	case RoleAdmin:
		return c.Admin
	}
	return 0
}

func (c *SeatCounts) Set(role Role, n int) {
	switch role {
	case RoleDeveloper:
		c.Developer = n
	case RoleStakeholder:
		c.Stakeholder = n
	case RoleAdmin:
		c.Admin = n
	}
}
