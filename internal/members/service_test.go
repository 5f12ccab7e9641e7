package members

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow-app/gymflow/internal/authz"
)

type mockRepository struct {
	members map[uuid.UUID]Member
	subs    map[uuid.UUID][]Subscription
}

func newMockRepository() *mockRepository {
	return &mockRepository{members: map[uuid.UUID]Member{}, subs: map[uuid.UUID][]Subscription{}}
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]Member, int, error) {
	var out []Member
	for _, member := range m.members {
		if !filter.Scope.Contains(member.BranchID) {
			continue
		}
		if filter.BranchID != nil && member.BranchID != *filter.BranchID {
			continue
		}
		out = append(out, member)
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (Member, error) {
	member, ok := m.members[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return member, nil
}

func (m *mockRepository) Create(_ context.Context, member Member) error {
	m.members[member.ID] = member
	return nil
}

func (m *mockRepository) Update(_ context.Context, member Member) error {
	if _, ok := m.members[member.ID]; !ok {
		return ErrNotFound
	}
	m.members[member.ID] = member
	return nil
}

func (m *mockRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	member, ok := m.members[id]
	if !ok {
		return ErrNotFound
	}
	member.IsActive = active
	m.members[id] = member
	return nil
}

func (m *mockRepository) CreateSubscription(_ context.Context, sub Subscription) error {
	m.subs[sub.MemberID] = append(m.subs[sub.MemberID], sub)
	return nil
}

func (m *mockRepository) ListSubscriptions(_ context.Context, memberID uuid.UUID) ([]Subscription, error) {
	return m.subs[memberID], nil
}

func (m *mockRepository) ExpiringWithin(_ context.Context, scope authz.Scope, window time.Duration) ([]Subscription, error) {
	cutoff := time.Now().Add(window)
	var out []Subscription
	for memberID, subs := range m.subs {
		member := m.members[memberID]
		if !scope.Contains(member.BranchID) || !member.IsActive {
			continue
		}
		for _, s := range subs {
			if s.ExpiresAt.After(time.Now()) && !s.ExpiresAt.After(cutoff) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func ownerDecision() authz.Decision {
	return authz.Decision{Actor: authz.Actor{UserID: 1, Kind: authz.KindOwner}, Scope: authz.ScopeAll()}
}

func staffDecision(branches ...uuid.UUID) authz.Decision {
	return authz.Decision{
		Actor: authz.Actor{UserID: 2, Kind: authz.KindStaff, StaffID: 5, Role: authz.RoleReception, Branches: branches},
		Scope: authz.Scope{Branches: branches},
	}
}

func TestCreateWithinScope(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	branch := uuid.New()

	m, err := svc.Create(context.Background(), staffDecision(branch), CreateInput{
		BranchID: branch,
		FullName: "  Sam Member ",
		Email:    "Sam@Example.COM",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam Member", m.FullName)
	assert.Equal(t, "sam@example.com", m.Email)
	assert.True(t, m.IsActive)
	assert.Equal(t, branch, m.BranchID)
}

func TestCreateOutsideScope(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), staffDecision(uuid.New()), CreateInput{
		BranchID: uuid.New(),
		FullName: "Stranger",
	})
	assert.ErrorIs(t, err, ErrBranchOutOfScope)
	assert.Empty(t, repo.members)
}

func TestGetHidesOutOfScopeMembers(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	mine := uuid.New()
	other := uuid.New()

	created, err := svc.Create(context.Background(), ownerDecision(), CreateInput{BranchID: other, FullName: "Hidden Person"})
	require.NoError(t, err)

	// Out-of-scope lookups are indistinguishable from missing records.
	_, err = svc.Get(context.Background(), staffDecision(mine), created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), staffDecision(mine), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(context.Background(), ownerDecision(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestListRejectsRequestedBranchOutsideScope(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	foreign := uuid.New()

	_, _, err := svc.List(context.Background(), staffDecision(uuid.New()), &foreign, "", 1, 20)
	assert.ErrorIs(t, err, authz.ErrBranchAccessDenied)
}

func TestListFiltersToScope(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	visible := uuid.New()
	hidden := uuid.New()

	_, err := svc.Create(context.Background(), ownerDecision(), CreateInput{BranchID: visible, FullName: "In Scope"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), ownerDecision(), CreateInput{BranchID: hidden, FullName: "Out Of Scope"})
	require.NoError(t, err)

	list, pagination, err := svc.List(context.Background(), staffDecision(visible), nil, "", 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "In Scope", list[0].FullName)
	assert.Equal(t, 1, pagination.Total)
}

func TestAddSubscriptionValidatesPeriod(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	branch := uuid.New()

	m, err := svc.Create(context.Background(), staffDecision(branch), CreateInput{BranchID: branch, FullName: "Subber"})
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.AddSubscription(context.Background(), staffDecision(branch), m.ID, SubscriptionInput{
		Plan: "monthly", StartsAt: start, ExpiresAt: start,
	})
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	sub, err := svc.AddSubscription(context.Background(), staffDecision(branch), m.ID, SubscriptionInput{
		Plan: "monthly", PriceCents: 5000, StartsAt: start, ExpiresAt: start.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, m.ID, sub.MemberID)

	subs, err := svc.Subscriptions(context.Background(), staffDecision(branch), m.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubscriptionsHiddenOutsideScope(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	branch := uuid.New()

	m, err := svc.Create(context.Background(), ownerDecision(), CreateInput{BranchID: branch, FullName: "Subber"})
	require.NoError(t, err)

	_, err = svc.Subscriptions(context.Background(), staffDecision(uuid.New()), m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
