// Package authz implements the authorization and branch-isolation layer.
// Every protected operation passes through the Gateway, which resolves the
// caller to an Actor, checks the requested capability and computes the set
// of branches the request may touch. Decisions are computed fresh per
// request; nothing here caches authorization state.
package authz

import "github.com/google/uuid"

// Kind distinguishes the tenant-level owner account from branch staff.
type Kind string

const (
	// KindOwner is the gym owner account. Owners bypass the permission
	// table and have no branch assignment concept.
	KindOwner Kind = "owner"
	// KindStaff is a branch-scoped operator account.
	KindStaff Kind = "staff"
)

// StaffRole is the stored role of a staff profile. A staff "admin" is
// permission-omnipotent within assigned branches; it is not an Owner.
type StaffRole string

const (
	RoleAdmin      StaffRole = "admin"
	RoleManager    StaffRole = "manager"
	RoleTrainer    StaffRole = "trainer"
	RoleReception  StaffRole = "reception"
	RoleAccountant StaffRole = "accountant"
)

// ValidStaffRole reports whether the value is one of the known roles.
func ValidStaffRole(r StaffRole) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTrainer, RoleReception, RoleAccountant:
		return true
	}
	return false
}

// Capability names an atomic permission checked per request.
type Capability string

const (
	CapViewMembers     Capability = "members.view"
	CapManageMembers   Capability = "members.manage"
	CapAccessLedger    Capability = "ledger.access"
	CapAccessPayments  Capability = "payments.access"
	CapAccessAnalytics Capability = "analytics.access"
	CapChangeSettings  Capability = "settings.change"
)

// Capabilities lists every known capability.
func Capabilities() []Capability {
	return []Capability{
		CapViewMembers,
		CapManageMembers,
		CapAccessLedger,
		CapAccessPayments,
		CapAccessAnalytics,
		CapChangeSettings,
	}
}

// KnownCapability reports whether the capability is part of the fixed set.
// Capability names are taxonomy, not free text.
func KnownCapability(c Capability) bool {
	switch c {
	case CapViewMembers, CapManageMembers, CapAccessLedger,
		CapAccessPayments, CapAccessAnalytics, CapChangeSettings:
		return true
	}
	return false
}

// PermissionSet holds the six stored capability flags of a staff profile.
// The zero value denies everything.
type PermissionSet struct {
	CanViewMembers     bool `json:"can_view_members"`
	CanManageMembers   bool `json:"can_manage_members"`
	CanAccessLedger    bool `json:"can_access_ledger"`
	CanAccessPayments  bool `json:"can_access_payments"`
	CanAccessAnalytics bool `json:"can_access_analytics"`
	CanChangeSettings  bool `json:"can_change_settings"`
}

// Allows returns the stored flag for a capability. Unknown capabilities
// report false.
func (p PermissionSet) Allows(c Capability) bool {
	switch c {
	case CapViewMembers:
		return p.CanViewMembers
	case CapManageMembers:
		return p.CanManageMembers
	case CapAccessLedger:
		return p.CanAccessLedger
	case CapAccessPayments:
		return p.CanAccessPayments
	case CapAccessAnalytics:
		return p.CanAccessAnalytics
	case CapChangeSettings:
		return p.CanChangeSettings
	}
	return false
}

// Identity is the stable reference produced by credential verification.
type Identity struct {
	UserID int64
}

// Actor is the resolved caller, rebuilt per request by the Resolver.
type Actor struct {
	UserID      int64
	Kind        Kind
	StaffID     int64
	Role        StaffRole
	Permissions PermissionSet
	Branches    []uuid.UUID
}

// IsOwner reports whether the actor holds the tenant-level owner kind.
func (a Actor) IsOwner() bool {
	return a.Kind == KindOwner
}

// BranchAssignment links a staff profile to a branch.
type BranchAssignment struct {
	BranchID  uuid.UUID
	IsPrimary bool
}

// StaffProfile is the persisted record backing a staff actor.
type StaffProfile struct {
	ID       int64
	UserID   int64
	Role     StaffRole
	IsActive bool
}

// Scope is the set of branch identifiers a request may operate within.
// Either All is true (owner without a branch filter) or Branches carries
// the explicit allow-set.
type Scope struct {
	All      bool
	Branches []uuid.UUID
}

// ScopeAll returns the unrestricted scope.
func ScopeAll() Scope {
	return Scope{All: true}
}

// ScopeOf returns a scope limited to the given branches.
func ScopeOf(branches ...uuid.UUID) Scope {
	return Scope{Branches: branches}
}

// Contains reports whether the scope admits the given branch.
func (s Scope) Contains(id uuid.UUID) bool {
	if s.All {
		return true
	}
	for _, b := range s.Branches {
		if b == id {
			return true
		}
	}
	return false
}

// Decision is the gateway output for an admitted request.
type Decision struct {
	Actor Actor
	Scope Scope
}
