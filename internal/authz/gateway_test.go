package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	tokens map[string]Identity
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	id, ok := s.tokens[token]
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

type decisionCounter struct {
	outcomes map[string]int
}

func (c *decisionCounter) RecordDecision(outcome string) {
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

func newGateway(repo Repository, verifier CredentialVerifier) (*Gateway, *decisionCounter) {
	counter := &decisionCounter{}
	return NewGateway(verifier, NewResolver(repo, nil), NewEvaluator(nil), nil, counter), counter
}

func seedStaff(repo *mockRepo, userID, staffID int64, role StaffRole, perms PermissionSet, branches ...uuid.UUID) {
	repo.profiles[userID] = &StaffProfile{ID: staffID, UserID: userID, Role: role, IsActive: true}
	repo.permissions[staffID] = &perms
	for i, b := range branches {
		repo.assignments[staffID] = append(repo.assignments[staffID], BranchAssignment{BranchID: b, IsPrimary: i == 0})
	}
}

func TestAuthorizeOwnerOmnipotence(t *testing.T) {
	repo := newMockRepo()
	repo.owners[1] = true
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{"tok": {UserID: 1}}})

	branch := uuid.New()
	for _, c := range Capabilities() {
		decision, err := gw.Authorize(context.Background(), "tok", c, &branch)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{branch}, decision.Scope.Branches)

		decision, err = gw.Authorize(context.Background(), "tok", c, nil)
		require.NoError(t, err)
		assert.True(t, decision.Scope.All)
	}
}

func TestAuthorizeInvalidToken(t *testing.T) {
	gw, counter := newGateway(newMockRepo(), &stubVerifier{tokens: map[string]Identity{}})

	_, err := gw.Authorize(context.Background(), "bogus", CapViewMembers, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 1, counter.outcomes["unauthenticated"])
}

func TestAuthorizeInactiveStaffFailsClosed(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	repo.profiles[2] = &StaffProfile{ID: 7, UserID: 2, Role: RoleAdmin, IsActive: false}
	repo.permissions[7] = &PermissionSet{CanViewMembers: true, CanManageMembers: true}
	repo.assignments[7] = []BranchAssignment{{BranchID: branch, IsPrimary: true}}
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{"tok": {UserID: 2}}})

	for _, c := range Capabilities() {
		_, err := gw.Authorize(context.Background(), "tok", c, &branch)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}

func TestAuthorizeStaffAdminOmnipotentWithinScope(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	seedStaff(repo, 2, 7, RoleAdmin, PermissionSet{}, branch)
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{"tok": {UserID: 2}}})

	for _, c := range Capabilities() {
		decision, err := gw.Authorize(context.Background(), "tok", c, &branch)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{branch}, decision.Scope.Branches)
	}

	outside := uuid.New()
	_, err := gw.Authorize(context.Background(), "tok", CapViewMembers, &outside)
	assert.ErrorIs(t, err, ErrBranchAccessDenied)
}

func TestAuthorizePermissionDenied(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	seedStaff(repo, 2, 7, RoleReception, PermissionSet{CanViewMembers: true}, branch)
	gw, counter := newGateway(repo, &stubVerifier{tokens: map[string]Identity{"tok": {UserID: 2}}})

	_, err := gw.Authorize(context.Background(), "tok", CapAccessLedger, &branch)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, counter.outcomes["permission_denied"])
}

// Missing permission row: deny, not a crash, not an allow.
func TestAuthorizeMissingPermissionRowDenies(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	repo.profiles[2] = &StaffProfile{ID: 7, UserID: 2, Role: RoleReception, IsActive: true}
	repo.assignments[7] = []BranchAssignment{{BranchID: branch, IsPrimary: true}}
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{"tok": {UserID: 2}}})

	_, err := gw.Authorize(context.Background(), "tok", CapAccessLedger, &branch)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAuthorizeBranchContainment(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := newMockRepo()
	seedStaff(repo, 2, 7, RoleManager, PermissionSet{CanViewMembers: true}, a, b)
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{"tok": {UserID: 2}}})

	outside := uuid.New()
	_, err := gw.Authorize(context.Background(), "tok", CapViewMembers, &outside)
	assert.ErrorIs(t, err, ErrBranchAccessDenied)

	decision, err := gw.Authorize(context.Background(), "tok", CapViewMembers, nil)
	require.NoError(t, err)
	assert.False(t, decision.Scope.All)
	for _, id := range decision.Scope.Branches {
		assert.Contains(t, []uuid.UUID{a, b}, id)
	}
}

func TestAuthorizeUnknownCapabilityFailsClosed(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	seedStaff(repo, 2, 7, RoleAdmin, PermissionSet{}, branch)
	repo.owners[1] = true
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{
		"staff": {UserID: 2},
		"owner": {UserID: 1},
	}})

	_, err := gw.Authorize(context.Background(), "staff", Capability("can_launch_missiles"), &branch)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = gw.Authorize(context.Background(), "owner", Capability("can_launch_missiles"), nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

// Decisions re-read persisted state, so revocation applies immediately.
func TestAuthorizeImmediateRevocation(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	seedStaff(repo, 2, 7, RoleReception, PermissionSet{CanAccessPayments: true}, branch)
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{"tok": {UserID: 2}}})

	_, err := gw.Authorize(context.Background(), "tok", CapAccessPayments, &branch)
	require.NoError(t, err)

	// Revoke the flag.
	repo.permissions[7].CanAccessPayments = false
	_, err = gw.Authorize(context.Background(), "tok", CapAccessPayments, &branch)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Restore the flag but drop the branch assignment.
	repo.permissions[7].CanAccessPayments = true
	repo.assignments[7] = nil
	_, err = gw.Authorize(context.Background(), "tok", CapAccessPayments, &branch)
	assert.ErrorIs(t, err, ErrBranchAccessDenied)

	// Deactivate the account entirely.
	repo.assignments[7] = []BranchAssignment{{BranchID: branch, IsPrimary: true}}
	repo.profiles[2].IsActive = false
	_, err = gw.Authorize(context.Background(), "tok", CapAccessPayments, &branch)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorizeOwnerOnly(t *testing.T) {
	branch := uuid.New()
	repo := newMockRepo()
	repo.owners[1] = true
	seedStaff(repo, 2, 7, RoleAdmin, PermissionSet{}, branch)
	gw, _ := newGateway(repo, &stubVerifier{tokens: map[string]Identity{
		"owner": {UserID: 1},
		"staff": {UserID: 2},
	}})

	decision, err := gw.AuthorizeOwner(context.Background(), "owner")
	require.NoError(t, err)
	assert.True(t, decision.Scope.All)

	// A staff admin is not an Owner.
	_, err = gw.AuthorizeOwner(context.Background(), "staff")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = gw.AuthorizeOwner(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
