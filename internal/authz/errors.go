package authz

import "errors"

// The three terminal authorization outcomes. None of them are retryable
// with the same credential/capability/branch combination.
var (
	// ErrUnauthenticated means no valid, active identity could be resolved.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrPermissionDenied means the identity resolved but lacks the capability.
	ErrPermissionDenied = errors.New("authz: permission denied")
	// ErrBranchAccessDenied means the requested branch is outside the actor's
	// assignment set. Callers must not learn whether the branch exists.
	ErrBranchAccessDenied = errors.New("authz: branch access denied")
)
