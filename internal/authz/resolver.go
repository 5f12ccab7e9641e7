package authz

import (
	"context"
	"log/slog"
)

// Resolver turns a verified identity into an Actor. The owner check always
// precedes the staff lookup; if both records exist the stronger role wins.
// Any lookup fault resolves to ErrUnauthenticated, never to an ambiguous
// success.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Resolve builds the Actor for an identity from current persisted state.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (Actor, error) {
	isOwner, err := r.repo.IsOwner(ctx, id.UserID)
	if err != nil {
		r.logError("owner lookup", id.UserID, err)
		return Actor{}, ErrUnauthenticated
	}
	if isOwner {
		return Actor{UserID: id.UserID, Kind: KindOwner}, nil
	}

	profile, err := r.repo.FindStaffProfile(ctx, id.UserID)
	if err != nil {
		r.logError("staff lookup", id.UserID, err)
		return Actor{}, ErrUnauthenticated
	}
	// An inactive staff account is treated identically to no account, so
	// deactivation is effective on the very next request.
	if profile == nil || !profile.IsActive {
		return Actor{}, ErrUnauthenticated
	}

	perms, err := r.repo.GetPermissions(ctx, profile.ID)
	if err != nil {
		r.logError("permission lookup", id.UserID, err)
		return Actor{}, ErrUnauthenticated
	}
	if perms == nil {
		// No permission row: default to the all-false set.
		perms = &PermissionSet{}
	}

	assignments, err := r.repo.ListBranchAssignments(ctx, profile.ID)
	if err != nil {
		r.logError("assignment lookup", id.UserID, err)
		return Actor{}, ErrUnauthenticated
	}
	actor := Actor{
		UserID:      id.UserID,
		Kind:        KindStaff,
		StaffID:     profile.ID,
		Role:        profile.Role,
		Permissions: *perms,
	}
	for _, a := range assignments {
		actor.Branches = append(actor.Branches, a.BranchID)
	}
	return actor, nil
}

func (r *Resolver) logError(stage string, userID int64, err error) {
	if r.logger != nil {
		r.logger.Error("role resolution failed", slog.String("stage", stage),
			slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
