package staff

import "github.com/gymflow-app/gymflow/internal/authz"

// DefaultPermissions is the permission set stored for a newly created
// staff member, keyed by role. This table is the single source of truth
// for creation-time defaults; call sites must not inline their own.
//
// The stored flags for an admin are informational only: the evaluator
// grants admins every capability from the role itself.
func DefaultPermissions(role authz.StaffRole) authz.PermissionSet {
	switch role {
	case authz.RoleAdmin:
		return authz.PermissionSet{
			CanViewMembers:     true,
			CanManageMembers:   true,
			CanAccessLedger:    true,
			CanAccessPayments:  true,
			CanAccessAnalytics: true,
			CanChangeSettings:  true,
		}
	case authz.RoleManager:
		return authz.PermissionSet{
			CanViewMembers:     true,
			CanManageMembers:   true,
			CanAccessPayments:  true,
			CanAccessAnalytics: true,
		}
	case authz.RoleTrainer:
		return authz.PermissionSet{
			CanViewMembers: true,
		}
	case authz.RoleReception:
		return authz.PermissionSet{
			CanViewMembers:    true,
			CanAccessPayments: true,
		}
	case authz.RoleAccountant:
		return authz.PermissionSet{
			CanAccessLedger:    true,
			CanAccessPayments:  true,
			CanAccessAnalytics: true,
		}
	}
	// Unknown role: deny everything.
	return authz.PermissionSet{}
}
