package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow-app/gymflow/internal/auth"
	"github.com/gymflow-app/gymflow/internal/authz"
)

func newTestRouter(handler *auth.Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}

func newTokenManager(t *testing.T, ttl time.Duration) (*auth.TokenManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return auth.NewTokenManager(client, ttl), mr
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, _ := newTokenManager(t, time.Hour)

	token, expiresAt, err := tokens.Issue(context.Background(), 42)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	identity, err := tokens.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
}

func TestTokenUnknownAndEmpty(t *testing.T) {
	tokens, _ := newTokenManager(t, time.Hour)

	_, err := tokens.Verify(context.Background(), "never-issued")
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)

	_, err = tokens.Verify(context.Background(), "")
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestTokenExpiry(t *testing.T) {
	tokens, mr := newTokenManager(t, time.Minute)

	token, _, err := tokens.Issue(context.Background(), 42)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = tokens.Verify(context.Background(), token)
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestTokenStoreUnreachableFailsClosed(t *testing.T) {
	tokens, mr := newTokenManager(t, time.Hour)
	token, _, err := tokens.Issue(context.Background(), 42)
	require.NoError(t, err)

	mr.Close()

	_, err = tokens.Verify(context.Background(), token)
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestTokenRevokeIdempotent(t *testing.T) {
	tokens, _ := newTokenManager(t, time.Hour)
	token, _, err := tokens.Issue(context.Background(), 42)
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(context.Background(), token))
	require.NoError(t, tokens.Revoke(context.Background(), token))
	require.NoError(t, tokens.Revoke(context.Background(), ""))

	_, err = tokens.Verify(context.Background(), token)
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}
