package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow-app/gymflow/internal/authz"
)

type mockRepository struct {
	calls   int
	active  int64
	joined  int64
	revenue int64
	expire  int64
}

func (m *mockRepository) ActiveMembers(_ context.Context, _ authz.Scope) (int64, error) {
	m.calls++
	return m.active, nil
}

func (m *mockRepository) NewMembersSince(_ context.Context, _ authz.Scope, _ time.Time) (int64, error) {
	return m.joined, nil
}

func (m *mockRepository) RevenueCentsBetween(_ context.Context, _ authz.Scope, _, _ time.Time) (int64, error) {
	return m.revenue, nil
}

func (m *mockRepository) ExpiringSubscriptions(_ context.Context, _ authz.Scope, _ time.Duration) (int64, error) {
	return m.expire, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute)), mr
}

func ownerDecision() authz.Decision {
	return authz.Decision{Actor: authz.Actor{UserID: 1, Kind: authz.KindOwner}, Scope: authz.ScopeAll()}
}

func staffDecision(branches ...uuid.UUID) authz.Decision {
	return authz.Decision{
		Actor: authz.Actor{UserID: 2, Kind: authz.KindStaff, Role: authz.RoleManager, Branches: branches},
		Scope: authz.Scope{Branches: branches},
	}
}

func TestOverviewComputesAndFormats(t *testing.T) {
	repo := &mockRepository{active: 42, joined: 5, revenue: 1250000, expire: 3}
	svc, _ := newTestService(t, repo)

	overview, err := svc.Overview(context.Background(), ownerDecision(), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(42), overview.ActiveMembers)
	assert.Equal(t, int64(5), overview.NewMembersThisMonth)
	assert.Equal(t, int64(1250000), overview.RevenueThisMonthCents)
	assert.Contains(t, overview.RevenueDisplay, "12,500.00")
	assert.Equal(t, int64(3), overview.ExpiringSoon)
}

func TestOverviewServedFromCache(t *testing.T) {
	repo := &mockRepository{active: 10}
	svc, _ := newTestService(t, repo)

	_, err := svc.Overview(context.Background(), ownerDecision(), nil)
	require.NoError(t, err)
	_, err = svc.Overview(context.Background(), ownerDecision(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	repo := &mockRepository{active: 10}
	svc, _ := newTestService(t, repo)

	_, err := svc.Overview(context.Background(), ownerDecision(), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background()))

	_, err = svc.Overview(context.Background(), ownerDecision(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestOverviewKeyedPerScope(t *testing.T) {
	repo := &mockRepository{active: 10}
	svc, _ := newTestService(t, repo)
	branch := uuid.New()

	_, err := svc.Overview(context.Background(), ownerDecision(), nil)
	require.NoError(t, err)
	_, err = svc.Overview(context.Background(), staffDecision(branch), nil)
	require.NoError(t, err)

	// Different scopes never share cache entries.
	assert.Equal(t, 2, repo.calls)
}

func TestOverviewRejectsForeignBranch(t *testing.T) {
	repo := &mockRepository{}
	svc, _ := newTestService(t, repo)
	foreign := uuid.New()

	_, err := svc.Overview(context.Background(), staffDecision(uuid.New()), &foreign)
	assert.ErrorIs(t, err, authz.ErrBranchAccessDenied)
	assert.Zero(t, repo.calls)
}
