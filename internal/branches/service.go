package branches

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/shared"
)

// Service orchestrates branch management. All operations are owner-only;
// the HTTP layer guards them with the owner middleware.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all branches, default branch first.
func (s *Service) List(ctx context.Context) ([]Branch, error) {
	return s.repo.List(ctx)
}

// Get fetches a single branch.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Branch, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a branch. The first branch created becomes the default.
func (s *Service) Create(ctx context.Context, actorID int64, name, address, phone string) (Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Branch{}, errors.New("branches: name required")
	}
	branch, err := s.repo.Create(ctx, Branch{
		ID:      uuid.New(),
		Name:    name,
		Address: strings.TrimSpace(address),
		Phone:   strings.TrimSpace(phone),
	})
	if err != nil {
		return Branch{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   shared.ActionBranchCreated,
			Entity:   "branch",
			EntityID: branch.ID.String(),
			Meta:     map[string]any{"name": branch.Name, "is_default": branch.IsDefault},
		})
	}
	return branch, nil
}

// Update renames or re-addresses a branch.
func (s *Service) Update(ctx context.Context, id uuid.UUID, name, address, phone string) (Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Branch{}, errors.New("branches: name required")
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(address), strings.TrimSpace(phone))
}
