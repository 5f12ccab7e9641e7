// Package staff manages branch operator accounts: profiles, permission
// flags and branch assignments. Changes here become effective on the very
// next request because the authorization gateway re-reads persisted state.
package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/authz"
)

// Staff represents a staff member with their effective configuration.
type Staff struct {
	ID          int64                `json:"id"`
	UserID      int64                `json:"user_id"`
	FullName    string               `json:"full_name"`
	Email       string               `json:"email"`
	Phone       string               `json:"phone"`
	Role        authz.StaffRole      `json:"role"`
	IsActive    bool                 `json:"is_active"`
	Permissions authz.PermissionSet  `json:"permissions"`
	Branches    []Assignment         `json:"branches"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Assignment links a staff member to a branch.
type Assignment struct {
	BranchID  uuid.UUID `json:"branch_id"`
	IsPrimary bool      `json:"is_primary"`
}
