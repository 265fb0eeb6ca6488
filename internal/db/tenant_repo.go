package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/seatguard/seatguard/internal/core"
)

var ErrTenantNotFound = errors.New("tenant not found")

const tenantColumns = `id, name, email, api_key, seats_enforced,
       developer_quota, stakeholder_quota, admin_quota,
       developer_active, stakeholder_active, admin_active,
       is_active, created_at, updated_at`

func (r *Repository) CreateTenant(ctx context.Context, tenant *core.Tenant, hashedPassword string) error {
	query := `
        INSERT INTO tenants (
            id, name, email, api_key, seats_enforced,
            developer_quota, stakeholder_quota, admin_quota,
            is_active, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )`

	_, err := r.db.ExecContext(ctx, query,
		tenant.ID, tenant.Name, tenant.Email, tenant.APIKey, tenant.SeatsEnforced,
		tenant.DeveloperQuota, tenant.StakeholderQuota, tenant.AdminQuota,
		tenant.IsActive, tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		return err
	}

	passwordQuery := `
        INSERT INTO tenant_passwords (tenant_id, password_hash)
        VALUES ($1, $2)`
	_, err = r.db.ExecContext(ctx, passwordQuery, tenant.ID, hashedPassword)
	return err
}

func (r *Repository) GetTenant(ctx context.Context, id string) (*core.Tenant, error) {
	var tenant core.Tenant
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	err := r.db.GetContext(ctx, &tenant, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *Repository) GetTenantByEmail(ctx context.Context, email string) (*core.Tenant, string, error) {
	var row struct {
		core.Tenant
		PasswordHash string `db:"password_hash"`
	}
	query := `
        SELECT t.*, tp.password_hash
        FROM tenants t
        JOIN tenant_passwords tp ON t.id = tp.tenant_id
        WHERE t.email = $1`

	err := r.db.GetContext(ctx, &row, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrTenantNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return &row.Tenant, row.PasswordHash, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE email = $1)`
	err := r.db.GetContext(ctx, &exists, query, email)
	return exists, err
}

// UpdateSeatQuotas rewrites the tenant's per-role quotas and enforcement
// flag. Cached active counts are untouched; only the seat counter writes
// those.
func (r *Repository) UpdateSeatQuotas(ctx context.Context, tenant *core.Tenant) error {
	query := `
        UPDATE tenants SET
            seats_enforced = $2,
            developer_quota = $3,
            stakeholder_quota = $4,
            admin_quota = $5,
            updated_at = $6
        WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query,
		tenant.ID, tenant.SeatsEnforced,
		tenant.DeveloperQuota, tenant.StakeholderQuota, tenant.AdminQuota,
		time.Now(),
	)
	return err
}

// WriteSeatCounts stores the recalculated per-role active tallies on the
// tenant record.
func (r *Repository) WriteSeatCounts(ctx context.Context, tenantID string, counts core.SeatCounts) error {
	query := `
        UPDATE tenants SET
            developer_active = $2,
            stakeholder_active = $3,
            admin_active = $4,
            updated_at = $5
        WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query,
		tenantID, counts.Developer, counts.Stakeholder, counts.Admin, time.Now(),
	)
	return err
}
