package staff

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gymflow-app/gymflow/internal/authz"
)

type mockRepository struct {
	nextID  int64
	byID    map[int64]Staff
	created []NewStaff
	fail    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{nextID: 1, byID: map[int64]Staff{}}
}

func (m *mockRepository) List(_ context.Context) ([]Staff, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	var out []Staff
	for _, s := range m.byID {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (Staff, error) {
	if m.fail != nil {
		return Staff{}, m.fail
	}
	s, ok := m.byID[id]
	if !ok {
		return Staff{}, ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) Create(_ context.Context, input NewStaff) (Staff, error) {
	if m.fail != nil {
		return Staff{}, m.fail
	}
	for _, existing := range m.created {
		if existing.Email == input.Email {
			return Staff{}, ErrDuplicateEmail
		}
	}
	m.created = append(m.created, input)
	s := Staff{
		ID:          m.nextID,
		UserID:      m.nextID + 100,
		FullName:    input.FullName,
		Email:       input.Email,
		Phone:       input.Phone,
		Role:        input.Role,
		IsActive:    true,
		Permissions: input.Permissions,
		Branches:    []Assignment{{BranchID: input.BranchID, IsPrimary: true}},
	}
	m.byID[s.ID] = s
	m.nextID++
	return s, nil
}

func (m *mockRepository) Update(_ context.Context, id int64, fullName, phone string, role authz.StaffRole) error {
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.FullName, s.Phone, s.Role = fullName, phone, role
	m.byID[id] = s
	return nil
}

func (m *mockRepository) SetActive(_ context.Context, id int64, active bool) error {
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.IsActive = active
	m.byID[id] = s
	return nil
}

func (m *mockRepository) SetPermissions(_ context.Context, id int64, perms authz.PermissionSet) error {
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.Permissions = perms
	m.byID[id] = s
	return nil
}

func (m *mockRepository) AssignBranch(_ context.Context, id int64, branchID uuid.UUID) error {
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	for _, a := range s.Branches {
		if a.BranchID == branchID {
			return ErrDuplicateAssignment
		}
	}
	s.Branches = append(s.Branches, Assignment{BranchID: branchID, IsPrimary: len(s.Branches) == 0})
	m.byID[id] = s
	return nil
}

func (m *mockRepository) UnassignBranch(_ context.Context, id int64, branchID uuid.UUID) error {
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	kept := s.Branches[:0]
	for _, a := range s.Branches {
		if a.BranchID != branchID {
			kept = append(kept, a)
		}
	}
	s.Branches = kept
	m.byID[id] = s
	return nil
}

func ownerDecision() authz.Decision {
	return authz.Decision{
		Actor: authz.Actor{UserID: 1, Kind: authz.KindOwner},
		Scope: authz.ScopeAll(),
	}
}

func adminDecision(branches ...uuid.UUID) authz.Decision {
	return authz.Decision{
		Actor: authz.Actor{UserID: 2, Kind: authz.KindStaff, StaffID: 9, Role: authz.RoleAdmin, Branches: branches},
		Scope: authz.Scope{Branches: branches},
	}
}

func TestCreateAppliesRoleDefaults(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	branch := uuid.New()

	created, err := svc.Create(context.Background(), ownerDecision(), CreateInput{
		FullName: "  Dana Reception  ",
		Email:    "Dana@Gym.Example",
		Password: "s3cret-pass",
		Role:     authz.RoleReception,
		BranchID: branch,
	})
	require.NoError(t, err)

	assert.Equal(t, "Dana Reception", created.FullName)
	assert.Equal(t, "dana@gym.example", created.Email)
	assert.Equal(t, DefaultPermissions(authz.RoleReception), created.Permissions)
	require.Len(t, created.Branches, 1)
	assert.True(t, created.Branches[0].IsPrimary)
	assert.Equal(t, branch, created.Branches[0].BranchID)

	require.Len(t, repo.created, 1)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("s3cret-pass")))
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), ownerDecision(), CreateInput{
		FullName: "X", Email: "x@gym.example", Password: "password1",
		Role: authz.StaffRole("janitor"), BranchID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateOutsideActingScope(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	mine := uuid.New()
	other := uuid.New()

	_, err := svc.Create(context.Background(), adminDecision(mine), CreateInput{
		FullName: "Out Of Scope", Email: "oos@gym.example", Password: "password1",
		Role: authz.RoleTrainer, BranchID: other,
	})
	assert.ErrorIs(t, err, ErrBranchOutOfScope)
	assert.Empty(t, repo.created)
}

func TestAssignBranchScopedAndUnique(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	home := uuid.New()
	second := uuid.New()
	foreign := uuid.New()

	created, err := svc.Create(context.Background(), adminDecision(home, second), CreateInput{
		FullName: "Trainer", Email: "t@gym.example", Password: "password1",
		Role: authz.RoleTrainer, BranchID: home,
	})
	require.NoError(t, err)

	require.NoError(t, svc.AssignBranch(context.Background(), adminDecision(home, second), created.ID, second))
	assert.ErrorIs(t, svc.AssignBranch(context.Background(), adminDecision(home, second), created.ID, second), ErrDuplicateAssignment)
	assert.ErrorIs(t, svc.AssignBranch(context.Background(), adminDecision(home, second), created.ID, foreign), ErrBranchOutOfScope)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Branches, 2)
}

func TestUnassignBranchRespectsScope(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	home := uuid.New()
	foreign := uuid.New()

	created, err := svc.Create(context.Background(), ownerDecision(), CreateInput{
		FullName: "Trainer", Email: "t2@gym.example", Password: "password1",
		Role: authz.RoleTrainer, BranchID: home,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UnassignBranch(context.Background(), adminDecision(home), created.ID, foreign), ErrBranchOutOfScope)

	require.NoError(t, svc.UnassignBranch(context.Background(), ownerDecision(), created.ID, home))
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Branches)
}

func TestDeactivateAndReactivate(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), ownerDecision(), CreateInput{
		FullName: "Mo Manager", Email: "mo@gym.example", Password: "password1",
		Role: authz.RoleManager, BranchID: uuid.New(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), ownerDecision(), created.ID))
	got, _ := svc.Get(context.Background(), created.ID)
	assert.False(t, got.IsActive)

	require.NoError(t, svc.Reactivate(context.Background(), ownerDecision(), created.ID))
	got, _ = svc.Get(context.Background(), created.ID)
	assert.True(t, got.IsActive)

	assert.ErrorIs(t, svc.Deactivate(context.Background(), ownerDecision(), 999), ErrNotFound)
}

func TestSetPermissionsReplacesFlags(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), ownerDecision(), CreateInput{
		FullName: "Acct", Email: "acct@gym.example", Password: "password1",
		Role: authz.RoleAccountant, BranchID: uuid.New(),
	})
	require.NoError(t, err)

	next := authz.PermissionSet{CanViewMembers: true}
	require.NoError(t, svc.SetPermissions(context.Background(), ownerDecision(), created.ID, next))

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, next, got.Permissions)
}

func TestDefaultPermissionsPerRole(t *testing.T) {
	assert.Equal(t, authz.PermissionSet{
		CanViewMembers: true, CanManageMembers: true, CanAccessLedger: true,
		CanAccessPayments: true, CanAccessAnalytics: true, CanChangeSettings: true,
	}, DefaultPermissions(authz.RoleAdmin))

	assert.Equal(t, authz.PermissionSet{CanViewMembers: true}, DefaultPermissions(authz.RoleTrainer))
	assert.Equal(t, authz.PermissionSet{}, DefaultPermissions(authz.StaffRole("nope")))
}
