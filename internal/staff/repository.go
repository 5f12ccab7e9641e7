package staff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/platform/db"
)

var (
	// ErrNotFound indicates the staff member does not exist.
	ErrNotFound = errors.New("staff: not found")
	// ErrDuplicateEmail indicates the user email is already taken.
	ErrDuplicateEmail = errors.New("staff: email already in use")
	// ErrDuplicateAssignment indicates the staff member already has the branch.
	ErrDuplicateAssignment = errors.New("staff: branch already assigned")
)

const uniqueViolation = "23505"

// NewStaff carries everything needed to create a staff member.
type NewStaff struct {
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         authz.StaffRole
	Permissions  authz.PermissionSet
	BranchID     uuid.UUID
}

// Repository defines persistence operations for staff management.
type Repository interface {
	List(ctx context.Context) ([]Staff, error)
	Get(ctx context.Context, id int64) (Staff, error)
	Create(ctx context.Context, input NewStaff) (Staff, error)
	Update(ctx context.Context, id int64, fullName, phone string, role authz.StaffRole) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetPermissions(ctx context.Context, id int64, perms authz.PermissionSet) error
	AssignBranch(ctx context.Context, id int64, branchID uuid.UUID) error
	UnassignBranch(ctx context.Context, id int64, branchID uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Staff, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.user_id, s.full_name, u.email, s.phone, s.role, s.is_active,
		        COALESCE(p.can_view_members, false), COALESCE(p.can_manage_members, false),
		        COALESCE(p.can_access_ledger, false), COALESCE(p.can_access_payments, false),
		        COALESCE(p.can_access_analytics, false), COALESCE(p.can_change_settings, false),
		        s.created_at, s.updated_at
		   FROM staff_profiles s
		   JOIN users u ON u.id = s.user_id
		   LEFT JOIN staff_permissions p ON p.staff_id = s.id
		  ORDER BY s.full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.UserID, &s.FullName, &s.Email, &s.Phone, &s.Role, &s.IsActive,
			&s.Permissions.CanViewMembers, &s.Permissions.CanManageMembers,
			&s.Permissions.CanAccessLedger, &s.Permissions.CanAccessPayments,
			&s.Permissions.CanAccessAnalytics, &s.Permissions.CanChangeSettings,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		assignments, err := r.listAssignments(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Branches = assignments
	}
	return result, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Staff, error) {
	var s Staff
	err := r.pool.QueryRow(ctx,
		`SELECT s.id, s.user_id, s.full_name, u.email, s.phone, s.role, s.is_active,
		        COALESCE(p.can_view_members, false), COALESCE(p.can_manage_members, false),
		        COALESCE(p.can_access_ledger, false), COALESCE(p.can_access_payments, false),
		        COALESCE(p.can_access_analytics, false), COALESCE(p.can_change_settings, false),
		        s.created_at, s.updated_at
		   FROM staff_profiles s
		   JOIN users u ON u.id = s.user_id
		   LEFT JOIN staff_permissions p ON p.staff_id = s.id
		  WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.FullName, &s.Email, &s.Phone, &s.Role, &s.IsActive,
		&s.Permissions.CanViewMembers, &s.Permissions.CanManageMembers,
		&s.Permissions.CanAccessLedger, &s.Permissions.CanAccessPayments,
		&s.Permissions.CanAccessAnalytics, &s.Permissions.CanChangeSettings,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Staff{}, ErrNotFound
		}
		return Staff{}, err
	}
	assignments, err := r.listAssignments(ctx, s.ID)
	if err != nil {
		return Staff{}, err
	}
	s.Branches = assignments
	return s, nil
}

// Create inserts the user account, profile, permission row and initial
// branch assignment in one transaction.
func (r *repository) Create(ctx context.Context, input NewStaff) (Staff, error) {
	now := time.Now().UTC()
	var staffID, userID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, is_owner, is_active, created_at, updated_at)
			 VALUES ($1, $2, false, true, $3, $3) RETURNING id`,
			input.Email, input.PasswordHash, now,
		).Scan(&userID)
		if err != nil {
			return mapUnique(err, ErrDuplicateEmail)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO staff_profiles (user_id, full_name, phone, role, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, true, $5, $5) RETURNING id`,
			userID, input.FullName, input.Phone, input.Role, now,
		).Scan(&staffID)
		if err != nil {
			return err
		}
		p := input.Permissions
		if _, err := tx.Exec(ctx,
			`INSERT INTO staff_permissions (staff_id, can_view_members, can_manage_members,
			        can_access_ledger, can_access_payments, can_access_analytics, can_change_settings, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			staffID, p.CanViewMembers, p.CanManageMembers, p.CanAccessLedger,
			p.CanAccessPayments, p.CanAccessAnalytics, p.CanChangeSettings, now); err != nil {
			return err
		}
		// The first assignment is primary.
		_, err = tx.Exec(ctx,
			`INSERT INTO staff_branches (staff_id, branch_id, is_primary, created_at)
			 VALUES ($1, $2, true, $3)`,
			staffID, input.BranchID, now)
		return err
	})
	if err != nil {
		return Staff{}, err
	}
	return r.Get(ctx, staffID)
}

func (r *repository) Update(ctx context.Context, id int64, fullName, phone string, role authz.StaffRole) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staff_profiles SET full_name = $2, phone = $3, role = $4, updated_at = NOW() WHERE id = $1`,
		id, fullName, phone, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive flips staff and linked user activity together so a deactivated
// staff member can neither authorize nor log in again.
func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx,
			`UPDATE staff_profiles SET is_active = $2, updated_at = NOW() WHERE id = $1 RETURNING user_id`,
			id, active,
		).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, userID, active)
		return err
	})
}

func (r *repository) SetPermissions(ctx context.Context, id int64, p authz.PermissionSet) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO staff_permissions (staff_id, can_view_members, can_manage_members,
		        can_access_ledger, can_access_payments, can_access_analytics, can_change_settings, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (staff_id) DO UPDATE SET
		        can_view_members = EXCLUDED.can_view_members,
		        can_manage_members = EXCLUDED.can_manage_members,
		        can_access_ledger = EXCLUDED.can_access_ledger,
		        can_access_payments = EXCLUDED.can_access_payments,
		        can_access_analytics = EXCLUDED.can_access_analytics,
		        can_change_settings = EXCLUDED.can_change_settings,
		        updated_at = NOW()`,
		id, p.CanViewMembers, p.CanManageMembers, p.CanAccessLedger,
		p.CanAccessPayments, p.CanAccessAnalytics, p.CanChangeSettings)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignBranch adds a branch assignment. The first assignment for a staff
// member becomes primary when none exists.
func (r *repository) AssignBranch(ctx context.Context, id int64, branchID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var hasPrimary bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM staff_branches WHERE staff_id = $1 AND is_primary)`, id,
		).Scan(&hasPrimary); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO staff_branches (staff_id, branch_id, is_primary, created_at)
			 VALUES ($1, $2, $3, NOW())`,
			id, branchID, !hasPrimary)
		return mapUnique(err, ErrDuplicateAssignment)
	})
}

func (r *repository) UnassignBranch(ctx context.Context, id int64, branchID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM staff_branches WHERE staff_id = $1 AND branch_id = $2`, id, branchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) listAssignments(ctx context.Context, staffID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT branch_id, is_primary FROM staff_branches WHERE staff_id = $1 ORDER BY is_primary DESC, branch_id`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.BranchID, &a.IsPrimary); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func mapUnique(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return sentinel
	}
	return err
}
