package authz

import "log/slog"

// Evaluator answers capability questions for resolved actors. It is pure:
// no I/O, never errors, unknown capabilities deny.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator constructs an Evaluator. The logger is used only to flag
// unknown capability names, which indicate a programmer error.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Has reports whether the actor holds the capability. Rule order, first
// match wins: owners pass everything, staff with the admin role pass every
// known capability, everyone else falls through to the stored flags.
func (e *Evaluator) Has(actor Actor, c Capability) bool {
	if !KnownCapability(c) {
		if e != nil && e.logger != nil {
			e.logger.Error("unknown capability requested",
				slog.String("capability", string(c)),
				slog.Int64("user_id", actor.UserID))
		}
		return false
	}
	if actor.Kind == KindOwner {
		return true
	}
	if actor.Kind == KindStaff && actor.Role == RoleAdmin {
		return true
	}
	return actor.Permissions.Allows(c)
}
