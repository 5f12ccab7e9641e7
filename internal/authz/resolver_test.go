package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	owners      map[int64]bool
	profiles    map[int64]*StaffProfile
	permissions map[int64]*PermissionSet
	assignments map[int64][]BranchAssignment

	ownerErr      error
	profileErr    error
	permissionErr error
	assignmentErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		owners:      make(map[int64]bool),
		profiles:    make(map[int64]*StaffProfile),
		permissions: make(map[int64]*PermissionSet),
		assignments: make(map[int64][]BranchAssignment),
	}
}

func (m *mockRepo) IsOwner(ctx context.Context, userID int64) (bool, error) {
	if m.ownerErr != nil {
		return false, m.ownerErr
	}
	return m.owners[userID], nil
}

func (m *mockRepo) FindStaffProfile(ctx context.Context, userID int64) (*StaffProfile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profiles[userID], nil
}

func (m *mockRepo) GetPermissions(ctx context.Context, staffID int64) (*PermissionSet, error) {
	if m.permissionErr != nil {
		return nil, m.permissionErr
	}
	return m.permissions[staffID], nil
}

func (m *mockRepo) ListBranchAssignments(ctx context.Context, staffID int64) ([]BranchAssignment, error) {
	if m.assignmentErr != nil {
		return nil, m.assignmentErr
	}
	return m.assignments[staffID], nil
}

func TestResolveOwner(t *testing.T) {
	repo := newMockRepo()
	repo.owners[1] = true

	actor, err := NewResolver(repo, nil).Resolve(context.Background(), Identity{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, KindOwner, actor.Kind)
	assert.Empty(t, actor.Branches)
}

// Owner check precedes the staff lookup; when both records exist the
// stronger role wins.
func TestResolveOwnerPrecedesStaff(t *testing.T) {
	repo := newMockRepo()
	repo.owners[1] = true
	repo.profiles[1] = &StaffProfile{ID: 7, UserID: 1, Role: RoleReception, IsActive: true}

	actor, err := NewResolver(repo, nil).Resolve(context.Background(), Identity{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, KindOwner, actor.Kind)
}

func TestResolveActiveStaff(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	repo.profiles[2] = &StaffProfile{ID: 7, UserID: 2, Role: RoleManager, IsActive: true}
	repo.permissions[7] = &PermissionSet{CanViewMembers: true, CanManageMembers: true}
	repo.assignments[7] = []BranchAssignment{{BranchID: branch, IsPrimary: true}}

	actor, err := NewResolver(repo, nil).Resolve(context.Background(), Identity{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, KindStaff, actor.Kind)
	assert.Equal(t, int64(7), actor.StaffID)
	assert.Equal(t, RoleManager, actor.Role)
	assert.True(t, actor.Permissions.CanViewMembers)
	assert.Equal(t, []uuid.UUID{branch}, actor.Branches)
}

func TestResolveInactiveStaffFailsClosed(t *testing.T) {
	repo := newMockRepo()
	repo.profiles[2] = &StaffProfile{ID: 7, UserID: 2, Role: RoleAdmin, IsActive: false}
	repo.permissions[7] = &PermissionSet{CanViewMembers: true}

	_, err := NewResolver(repo, nil).Resolve(context.Background(), Identity{UserID: 2})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveUnknownIdentityFailsClosed(t *testing.T) {
	_, err := NewResolver(newMockRepo(), nil).Resolve(context.Background(), Identity{UserID: 99})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveMissingPermissionRowDefaultsToDeny(t *testing.T) {
	repo := newMockRepo()
	repo.profiles[2] = &StaffProfile{ID: 7, UserID: 2, Role: RoleReception, IsActive: true}

	actor, err := NewResolver(repo, nil).Resolve(context.Background(), Identity{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, PermissionSet{}, actor.Permissions)
}

func TestResolveLookupFaultsMapToUnauthenticated(t *testing.T) {
	boom := errors.New("connection refused")

	cases := []func(*mockRepo){
		func(m *mockRepo) { m.ownerErr = boom },
		func(m *mockRepo) { m.profileErr = boom },
		func(m *mockRepo) { m.permissionErr = boom },
		func(m *mockRepo) { m.assignmentErr = boom },
	}
	for _, inject := range cases {
		repo := newMockRepo()
		repo.profiles[2] = &StaffProfile{ID: 7, UserID: 2, Role: RoleManager, IsActive: true}
		inject(repo)
		_, err := NewResolver(repo, nil).Resolve(context.Background(), Identity{UserID: 2})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}
