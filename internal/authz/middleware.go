package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/platform/httpx"
)

// Middleware wires the Gateway into chi handler chains. Handlers behind
// Require read the admitted Decision from the request context and must
// apply its Scope as a hard filter on every branch-scoped query.
type Middleware struct {
	Gateway *Gateway
	Logger  *slog.Logger
}

const branchHeader = "X-Branch-ID"

// Require admits requests holding the capability, scoped to the requested
// branch (?branch= or X-Branch-ID) or to the caller's full assignment set.
func (m Middleware) Require(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			requested, err := requestedBranch(r)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
				return
			}
			decision, err := m.Gateway.Authorize(r.Context(), token, capability, requested)
			if err != nil {
				m.respond(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithDecision(r.Context(), decision)))
		})
	}
}

// RequireOwner admits only the owner account.
func (m Middleware) RequireOwner() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			decision, err := m.Gateway.AuthorizeOwner(r.Context(), token)
			if err != nil {
				m.respond(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithDecision(r.Context(), decision)))
		})
	}
}

func (m Middleware) respond(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "permission denied")
	case errors.Is(err, ErrBranchAccessDenied):
		// Same body whether the branch is unknown or merely inaccessible.
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch access denied")
	default:
		if m.Logger != nil {
			m.Logger.Error("authorization middleware", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	}
}

// BearerToken extracts the bearer credential from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func requestedBranch(r *http.Request) (*uuid.UUID, error) {
	raw := r.URL.Query().Get("branch")
	if raw == "" {
		raw = r.Header.Get(branchHeader)
	}
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
