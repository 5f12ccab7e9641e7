package authz

import "context"

// CredentialVerifier resolves an opaque bearer credential to an identity.
// Verification is read-only: invalid, expired or malformed tokens fail with
// ErrUnauthenticated and are never retried here.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
