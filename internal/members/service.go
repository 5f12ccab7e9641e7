package members

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/shared"
)

// ErrBranchOutOfScope indicates the target branch lies outside the acting
// decision's scope. Reported identically for branches that do not exist.
var ErrBranchOutOfScope = errors.New("members: branch outside acting scope")

// ErrInvalidPeriod indicates a subscription whose expiry does not follow
// its start.
var ErrInvalidPeriod = errors.New("members: subscription expiry precedes start")

// Service handles member lifecycle operations.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
	now   func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateInput is the validated request to register a member.
type CreateInput struct {
	BranchID uuid.UUID
	FullName string
	Email    string
	Phone    string
}

// UpdateInput edits member contact fields.
type UpdateInput struct {
	FullName string
	Email    string
	Phone    string
}

// SubscriptionInput opens a new paid period for a member.
type SubscriptionInput struct {
	Plan       string
	PriceCents int64
	StartsAt   time.Time
	ExpiresAt  time.Time
}

// List returns members visible to the decision, with pagination metadata.
func (s *Service) List(ctx context.Context, decision authz.Decision, branchID *uuid.UUID, search string, page, perPage int) ([]Member, shared.Pagination, error) {
	if branchID != nil && !decision.Scope.Contains(*branchID) {
		return nil, shared.Pagination{}, authz.ErrBranchAccessDenied
	}
	list, total, err := s.repo.List(ctx, ListFilter{
		Scope:    decision.Scope,
		BranchID: branchID,
		Search:   search,
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

// Get fetches a member. Members outside the decision's scope are reported
// as not found so identifiers cannot be probed across branches.
func (s *Service) Get(ctx context.Context, decision authz.Decision, id uuid.UUID) (Member, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if !decision.Scope.Contains(m.BranchID) {
		return Member{}, ErrNotFound
	}
	return m, nil
}

// Create registers a member at a branch within the acting scope.
func (s *Service) Create(ctx context.Context, decision authz.Decision, input CreateInput) (Member, error) {
	if !decision.Scope.Contains(input.BranchID) {
		return Member{}, ErrBranchOutOfScope
	}
	now := s.now().UTC()
	m := Member{
		ID:        uuid.New(),
		BranchID:  input.BranchID,
		FullName:  strings.TrimSpace(input.FullName),
		Email:     strings.TrimSpace(strings.ToLower(input.Email)),
		Phone:     strings.TrimSpace(input.Phone),
		IsActive:  true,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Member{}, err
	}
	s.record(ctx, decision, shared.ActionMemberCreated, m.ID, map[string]any{"branch_id": m.BranchID.String()})
	return m, nil
}

// Update edits contact fields on an in-scope member.
func (s *Service) Update(ctx context.Context, decision authz.Decision, id uuid.UUID, input UpdateInput) (Member, error) {
	m, err := s.Get(ctx, decision, id)
	if err != nil {
		return Member{}, err
	}
	m.FullName = strings.TrimSpace(input.FullName)
	m.Email = strings.TrimSpace(strings.ToLower(input.Email))
	m.Phone = strings.TrimSpace(input.Phone)
	if err := s.repo.Update(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Deactivate disables the member record.
func (s *Service) Deactivate(ctx context.Context, decision authz.Decision, id uuid.UUID) error {
	if _, err := s.Get(ctx, decision, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false)
}

// AddSubscription opens a subscription period for an in-scope member.
func (s *Service) AddSubscription(ctx context.Context, decision authz.Decision, memberID uuid.UUID, input SubscriptionInput) (Subscription, error) {
	if _, err := s.Get(ctx, decision, memberID); err != nil {
		return Subscription{}, err
	}
	if !input.ExpiresAt.After(input.StartsAt) {
		return Subscription{}, ErrInvalidPeriod
	}
	sub := Subscription{
		ID:         uuid.New(),
		MemberID:   memberID,
		Plan:       strings.TrimSpace(input.Plan),
		PriceCents: input.PriceCents,
		StartsAt:   input.StartsAt,
		ExpiresAt:  input.ExpiresAt,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// Subscriptions lists subscription periods for an in-scope member.
func (s *Service) Subscriptions(ctx context.Context, decision authz.Decision, memberID uuid.UUID) ([]Subscription, error) {
	if _, err := s.Get(ctx, decision, memberID); err != nil {
		return nil, err
	}
	return s.repo.ListSubscriptions(ctx, memberID)
}

func (s *Service) record(ctx context.Context, decision authz.Decision, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  decision.Actor.UserID,
		Action:   action,
		Entity:   "member",
		EntityID: id.String(),
		Meta:     meta,
	})
}
