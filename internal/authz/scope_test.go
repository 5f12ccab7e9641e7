package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeForOwner(t *testing.T) {
	owner := Actor{UserID: 1, Kind: KindOwner}

	scope, err := ScopeFor(owner, nil)
	require.NoError(t, err)
	assert.True(t, scope.All)

	branch := uuid.New()
	scope, err = ScopeFor(owner, &branch)
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.Equal(t, []uuid.UUID{branch}, scope.Branches)
	// Owner has no assignment concept; any branch id is in reach.
	assert.True(t, scope.Contains(branch))
}

func TestScopeForStaffNilRequestIsAssignmentsOnly(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	staff := Actor{UserID: 2, Kind: KindStaff, Branches: []uuid.UUID{a, b}}

	scope, err := ScopeFor(staff, nil)
	require.NoError(t, err)
	assert.False(t, scope.All, "staff scope must never be unrestricted")
	assert.ElementsMatch(t, []uuid.UUID{a, b}, scope.Branches)
	assert.False(t, scope.Contains(uuid.New()))
}

func TestScopeForStaffRequestedBranchMustBeAssigned(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	staff := Actor{UserID: 2, Kind: KindStaff, Branches: []uuid.UUID{a, b}}

	scope, err := ScopeFor(staff, &a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, scope.Branches)

	outside := uuid.New()
	_, err = ScopeFor(staff, &outside)
	assert.ErrorIs(t, err, ErrBranchAccessDenied)
}

// The admin staff role grants capabilities, not branches.
func TestScopeForStaffAdminStillBranchRestricted(t *testing.T) {
	a := uuid.New()
	admin := Actor{UserID: 3, Kind: KindStaff, Role: RoleAdmin, Branches: []uuid.UUID{a}}

	outside := uuid.New()
	_, err := ScopeFor(admin, &outside)
	assert.ErrorIs(t, err, ErrBranchAccessDenied)

	scope, err := ScopeFor(admin, nil)
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.Equal(t, []uuid.UUID{a}, scope.Branches)
}

func TestScopeForStaffWithNoAssignments(t *testing.T) {
	staff := Actor{UserID: 4, Kind: KindStaff}

	scope, err := ScopeFor(staff, nil)
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.Empty(t, scope.Branches)

	branch := uuid.New()
	_, err = ScopeFor(staff, &branch)
	assert.ErrorIs(t, err, ErrBranchAccessDenied)
}

func TestScopeCopyDoesNotAliasActorBranches(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	staff := Actor{UserID: 5, Kind: KindStaff, Branches: []uuid.UUID{a, b}}

	scope, err := ScopeFor(staff, nil)
	require.NoError(t, err)
	scope.Branches[0] = uuid.New()
	assert.Equal(t, a, staff.Branches[0])
}
