package core

import (
	"time"

	"github.com/google/uuid"
)

// QuotaUnlimited is the sentinel meaning a role has no seat cap.
const QuotaUnlimited = -1

type Tenant struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	Email  string    `json:"email" db:"email"`
	APIKey string    `json:"-" db:"api_key"`

	// Seat quotas per role; QuotaUnlimited disables the cap for that role.
	SeatsEnforced    bool `json:"seats_enforced" db:"seats_enforced"`
	DeveloperQuota   int  `json:"developer_quota" db:"developer_quota"`
	StakeholderQuota int  `json:"stakeholder_quota" db:"stakeholder_quota"`
	AdminQuota       int  `json:"admin_quota" db:"admin_quota"`

	// Cached active counts, maintained by the seat counter only.
	DeveloperActive   int `json:"developer_active" db:"developer_active"`
	StakeholderActive int `json:"stakeholder_active" db:"stakeholder_active"`
	AdminActive       int `json:"admin_active" db:"admin_active"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (t *Tenant) QuotaFor(role Role) int {
	switch role {
	case RoleDeveloper:
		return t.DeveloperQuota
	case RoleStakeholder:
		return t.StakeholderQuota
	case RoleAdmin:
		return t.AdminQuota
	}
	return 0
}

func (t *Tenant) ActiveCounts() SeatCounts {
	return SeatCounts{
		Developer:   t.DeveloperActive,
		Stakeholder: t.StakeholderActive,
		Admin:       t.AdminActive,
	}
}
