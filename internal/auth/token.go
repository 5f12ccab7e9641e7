package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gymflow-app/gymflow/internal/authz"
)

// TokenManager issues and verifies opaque bearer tokens backed by Redis.
// Tokens carry no claims; the payload lives server side so revocation is a
// single DEL. It implements authz.CredentialVerifier for the gateway.
type TokenManager struct {
	client *redis.Client
	ttl    time.Duration
}

type tokenPayload struct {
	UserID   int64     `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(client *redis.Client, ttl time.Duration) *TokenManager {
	return &TokenManager{client: client, ttl: ttl}
}

// Issue creates a token for the user and stores it with the configured TTL.
func (m *TokenManager) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	token := uuid.NewString()
	issuedAt := time.Now().UTC()
	payload, err := json.Marshal(tokenPayload{UserID: userID, IssuedAt: issuedAt})
	if err != nil {
		return "", time.Time{}, err
	}
	if err := m.client.Set(ctx, m.key(token), payload, m.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("auth: store token: %w", err)
	}
	return token, issuedAt.Add(m.ttl), nil
}

// Verify resolves a bearer token to an identity. Unknown or expired tokens
// fail with authz.ErrUnauthenticated, as does an unreachable store.
func (m *TokenManager) Verify(ctx context.Context, token string) (authz.Identity, error) {
	if token == "" {
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	data, err := m.client.Get(ctx, m.key(token)).Bytes()
	if err != nil {
		// Unknown token and unreachable store both deny.
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	return authz.Identity{UserID: payload.UserID}, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.client.Del(ctx, m.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) key(token string) string {
	return "token:" + token
}

var _ authz.CredentialVerifier = (*TokenManager)(nil)
