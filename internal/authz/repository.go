package authz

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads the persisted role, permission and assignment state the
// Resolver needs. Implementations must read current rows on every call so
// revocation takes effect on the next request.
type Repository interface {
	IsOwner(ctx context.Context, userID int64) (bool, error)
	FindStaffProfile(ctx context.Context, userID int64) (*StaffProfile, error)
	GetPermissions(ctx context.Context, staffID int64) (*PermissionSet, error)
	ListBranchAssignments(ctx context.Context, staffID int64) ([]BranchAssignment, error)
}

// PGRepository implements Repository against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// IsOwner reports whether the user holds the tenant-level owner flag.
func (r *PGRepository) IsOwner(ctx context.Context, userID int64) (bool, error) {
	var isOwner bool
	err := r.pool.QueryRow(ctx,
		`SELECT is_owner FROM users WHERE id = $1 AND is_active`, userID,
	).Scan(&isOwner)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return isOwner, nil
}

// FindStaffProfile fetches the active-or-not staff profile for a user.
// Returns nil when no profile exists.
func (r *PGRepository) FindStaffProfile(ctx context.Context, userID int64) (*StaffProfile, error) {
	var p StaffProfile
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, role, is_active FROM staff_profiles WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Role, &p.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetPermissions fetches the stored permission flags for a staff profile.
// Returns nil when no row exists; the resolver treats that as all-false.
func (r *PGRepository) GetPermissions(ctx context.Context, staffID int64) (*PermissionSet, error) {
	var p PermissionSet
	err := r.pool.QueryRow(ctx,
		`SELECT can_view_members, can_manage_members, can_access_ledger,
		        can_access_payments, can_access_analytics, can_change_settings
		   FROM staff_permissions WHERE staff_id = $1`, staffID,
	).Scan(&p.CanViewMembers, &p.CanManageMembers, &p.CanAccessLedger,
		&p.CanAccessPayments, &p.CanAccessAnalytics, &p.CanChangeSettings)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListBranchAssignments returns the branches assigned to a staff profile.
func (r *PGRepository) ListBranchAssignments(ctx context.Context, staffID int64) ([]BranchAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT branch_id, is_primary FROM staff_branches WHERE staff_id = $1 ORDER BY is_primary DESC, branch_id`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []BranchAssignment
	for rows.Next() {
		var a BranchAssignment
		if err := rows.Scan(&a.BranchID, &a.IsPrimary); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
