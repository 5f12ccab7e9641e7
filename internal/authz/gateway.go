package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// DecisionRecorder counts gateway outcomes for observability. Implemented
// by observability.Metrics; nil disables recording.
type DecisionRecorder interface {
	RecordDecision(outcome string)
}

// Gateway is the single authorization entry point: authenticate, resolve
// role and permissions, check the capability, then check branch scope. A
// request is fully admitted or fully rejected; nothing is cached across
// calls, so revocation applies on the next request.
type Gateway struct {
	verifier  CredentialVerifier
	resolver  *Resolver
	evaluator *Evaluator
	logger    *slog.Logger
	recorder  DecisionRecorder
}

// NewGateway constructs a Gateway.
func NewGateway(verifier CredentialVerifier, resolver *Resolver, evaluator *Evaluator, logger *slog.Logger, recorder DecisionRecorder) *Gateway {
	return &Gateway{
		verifier:  verifier,
		resolver:  resolver,
		evaluator: evaluator,
		logger:    logger,
		recorder:  recorder,
	}
}

// Authorize runs the full decision sequence, short-circuiting on the first
// failure. requested nil means "all branches I may see".
func (g *Gateway) Authorize(ctx context.Context, token string, capability Capability, requested *uuid.UUID) (Decision, error) {
	identity, err := g.verifier.Verify(ctx, token)
	if err != nil {
		g.record("unauthenticated")
		return Decision{}, ErrUnauthenticated
	}

	actor, err := g.resolver.Resolve(ctx, identity)
	if err != nil {
		g.record("unauthenticated")
		return Decision{}, ErrUnauthenticated
	}

	if !KnownCapability(capability) {
		// Programmer error; deny and flag it rather than crash.
		if g.logger != nil {
			g.logger.Error("capability outside taxonomy",
				slog.String("capability", string(capability)),
				slog.Int64("user_id", actor.UserID))
		}
		g.record("permission_denied")
		return Decision{}, ErrPermissionDenied
	}
	if !g.evaluator.Has(actor, capability) {
		g.record("permission_denied")
		return Decision{}, ErrPermissionDenied
	}

	scope, err := ScopeFor(actor, requested)
	if err != nil {
		if errors.Is(err, ErrBranchAccessDenied) {
			g.record("branch_denied")
			return Decision{}, ErrBranchAccessDenied
		}
		g.record("unauthenticated")
		return Decision{}, ErrUnauthenticated
	}

	g.record("admitted")
	return Decision{Actor: actor, Scope: scope}, nil
}

// AuthorizeOwner admits only tenant-level owner accounts. Used for
// owner-only affordances such as creating branches or managing staff.
func (g *Gateway) AuthorizeOwner(ctx context.Context, token string) (Decision, error) {
	identity, err := g.verifier.Verify(ctx, token)
	if err != nil {
		g.record("unauthenticated")
		return Decision{}, ErrUnauthenticated
	}
	actor, err := g.resolver.Resolve(ctx, identity)
	if err != nil {
		g.record("unauthenticated")
		return Decision{}, ErrUnauthenticated
	}
	if !actor.IsOwner() {
		g.record("permission_denied")
		return Decision{}, ErrPermissionDenied
	}
	g.record("admitted")
	return Decision{Actor: actor, Scope: ScopeAll()}, nil
}

func (g *Gateway) record(outcome string) {
	if g.recorder != nil {
		g.recorder.RecordDecision(outcome)
	}
}
