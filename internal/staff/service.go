package staff

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/shared"
)

var (
	// ErrInvalidRole indicates an unknown staff role value.
	ErrInvalidRole = errors.New("staff: invalid role")
	// ErrBranchOutOfScope indicates the acting staff may not touch the
	// target branch. Reported identically for unknown branches.
	ErrBranchOutOfScope = errors.New("staff: branch outside acting scope")
)

// Service handles staff lifecycle operations.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService builds a Service instance.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput is the validated request to add a staff member.
type CreateInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	Role     authz.StaffRole
	BranchID uuid.UUID
}

// List returns every staff member with permissions and assignments.
func (s *Service) List(ctx context.Context) ([]Staff, error) {
	return s.repo.List(ctx)
}

// Get fetches a single staff member.
func (s *Service) Get(ctx context.Context, id int64) (Staff, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a staff member with the default permission set for the role
// and a primary assignment to the given branch. The branch must lie within
// the acting decision's scope.
func (s *Service) Create(ctx context.Context, decision authz.Decision, input CreateInput) (Staff, error) {
	if !authz.ValidStaffRole(input.Role) {
		return Staff{}, ErrInvalidRole
	}
	if !decision.Scope.Contains(input.BranchID) {
		return Staff{}, ErrBranchOutOfScope
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Staff{}, err
	}

	created, err := s.repo.Create(ctx, NewStaff{
		FullName:     strings.TrimSpace(input.FullName),
		Email:        strings.TrimSpace(strings.ToLower(input.Email)),
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: string(hash),
		Role:         input.Role,
		Permissions:  DefaultPermissions(input.Role),
		BranchID:     input.BranchID,
	})
	if err != nil {
		return Staff{}, err
	}
	s.record(ctx, decision, shared.ActionStaffCreated, created.ID, map[string]any{
		"role": string(created.Role), "branch_id": input.BranchID.String(),
	})
	return created, nil
}

// Update edits profile fields and the stored role.
func (s *Service) Update(ctx context.Context, decision authz.Decision, id int64, fullName, phone string, role authz.StaffRole) error {
	if !authz.ValidStaffRole(role) {
		return ErrInvalidRole
	}
	if err := s.repo.Update(ctx, id, strings.TrimSpace(fullName), strings.TrimSpace(phone), role); err != nil {
		return err
	}
	s.record(ctx, decision, shared.ActionStaffUpdated, id, map[string]any{"role": string(role)})
	return nil
}

// Deactivate disables the staff member. Takes effect on their next request.
func (s *Service) Deactivate(ctx context.Context, decision authz.Decision, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, decision, shared.ActionStaffDeactivated, id, nil)
	return nil
}

// Reactivate re-enables a previously deactivated staff member.
func (s *Service) Reactivate(ctx context.Context, decision authz.Decision, id int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.record(ctx, decision, shared.ActionStaffUpdated, id, map[string]any{"reactivated": true})
	return nil
}

// SetPermissions replaces the stored permission flags.
func (s *Service) SetPermissions(ctx context.Context, decision authz.Decision, id int64, perms authz.PermissionSet) error {
	if err := s.repo.SetPermissions(ctx, id, perms); err != nil {
		return err
	}
	s.record(ctx, decision, shared.ActionPermissionsUpdated, id, map[string]any{"permissions": perms})
	return nil
}

// AssignBranch links the staff member to a branch within the acting scope.
// At most one assignment exists per (staff, branch) pair.
func (s *Service) AssignBranch(ctx context.Context, decision authz.Decision, id int64, branchID uuid.UUID) error {
	if !decision.Scope.Contains(branchID) {
		return ErrBranchOutOfScope
	}
	if err := s.repo.AssignBranch(ctx, id, branchID); err != nil {
		return err
	}
	s.record(ctx, decision, shared.ActionBranchAssigned, id, map[string]any{"branch_id": branchID.String()})
	return nil
}

// UnassignBranch removes a branch assignment.
func (s *Service) UnassignBranch(ctx context.Context, decision authz.Decision, id int64, branchID uuid.UUID) error {
	if !decision.Scope.Contains(branchID) {
		return ErrBranchOutOfScope
	}
	if err := s.repo.UnassignBranch(ctx, id, branchID); err != nil {
		return err
	}
	s.record(ctx, decision, shared.ActionBranchUnassigned, id, map[string]any{"branch_id": branchID.String()})
	return nil
}

func (s *Service) record(ctx context.Context, decision authz.Decision, action string, staffID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  decision.Actor.UserID,
		Action:   action,
		Entity:   "staff",
		EntityID: strconv.FormatInt(staffID, 10),
		Meta:     meta,
	})
}
