package authz

import "context"

type decisionContextKey struct{}

// ContextWithDecision stores an admitted decision in the context.
func ContextWithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// DecisionFromContext extracts the decision placed by the middleware.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}
