package authz

import "github.com/google/uuid"

// ScopeFor computes the branch scope for an actor. A nil requested branch
// means "all of mine": unrestricted for owners, the assignment set for
// staff. A concrete requested branch narrows the scope to that single
// branch and, for staff, must be an element of the assignment set.
//
// The returned scope for a staff actor never contains a branch absent from
// the actor's assignments, regardless of the staff role. Every query
// executed after scoping must apply the set as a hard filter.
func ScopeFor(actor Actor, requested *uuid.UUID) (Scope, error) {
	if actor.Kind == KindOwner {
		if requested == nil {
			return ScopeAll(), nil
		}
		return ScopeOf(*requested), nil
	}

	if requested == nil {
		// Copy so callers cannot grow the actor's assignment slice.
		allowed := make([]uuid.UUID, len(actor.Branches))
		copy(allowed, actor.Branches)
		return ScopeOf(allowed...), nil
	}

	for _, b := range actor.Branches {
		if b == *requested {
			return ScopeOf(*requested), nil
		}
	}
	return Scope{}, ErrBranchAccessDenied
}
