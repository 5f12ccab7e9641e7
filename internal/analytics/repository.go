package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gymflow-app/gymflow/internal/authz"
)

// Repository runs the KPI aggregate queries.
type Repository interface {
	ActiveMembers(ctx context.Context, scope authz.Scope) (int64, error)
	NewMembersSince(ctx context.Context, scope authz.Scope, since time.Time) (int64, error)
	RevenueCentsBetween(ctx context.Context, scope authz.Scope, from, to time.Time) (int64, error)
	ExpiringSubscriptions(ctx context.Context, scope authz.Scope, window time.Duration) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// scopeClause compiles the branch predicate. ok=false means the scope can
// never match any row.
func scopeClause(scope authz.Scope, col string, args []any) (string, []any, bool) {
	if scope.All {
		return "TRUE", args, true
	}
	if len(scope.Branches) == 0 {
		return "", nil, false
	}
	args = append(args, scope.Branches)
	return fmt.Sprintf("%s = ANY($%d)", col, len(args)), args, true
}

func (r *repository) ActiveMembers(ctx context.Context, scope authz.Scope) (int64, error) {
	clause, args, ok := scopeClause(scope, "branch_id", nil)
	if !ok {
		return 0, nil
	}
	var n int64
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM members WHERE is_active AND "+clause, args...).Scan(&n)
	return n, err
}

func (r *repository) NewMembersSince(ctx context.Context, scope authz.Scope, since time.Time) (int64, error) {
	args := []any{since}
	clause, args, ok := scopeClause(scope, "branch_id", args)
	if !ok {
		return 0, nil
	}
	var n int64
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM members WHERE joined_at >= $1 AND "+clause, args...).Scan(&n)
	return n, err
}

func (r *repository) RevenueCentsBetween(ctx context.Context, scope authz.Scope, from, to time.Time) (int64, error) {
	args := []any{from, to}
	clause, args, ok := scopeClause(scope, "branch_id", args)
	if !ok {
		return 0, nil
	}
	var total int64
	err := r.pool.QueryRow(ctx, strings.Join([]string{
		"SELECT COALESCE(SUM(amount_cents), 0) FROM payments",
		"WHERE paid_at >= $1 AND paid_at < $2 AND " + clause,
	}, " "), args...).Scan(&total)
	return total, err
}

func (r *repository) ExpiringSubscriptions(ctx context.Context, scope authz.Scope, window time.Duration) (int64, error) {
	args := []any{window}
	clause, args, ok := scopeClause(scope, "m.branch_id", args)
	if !ok {
		return 0, nil
	}
	var n int64
	err := r.pool.QueryRow(ctx, strings.Join([]string{
		"SELECT COUNT(*) FROM subscriptions s JOIN members m ON m.id = s.member_id",
		"WHERE m.is_active AND s.expires_at > NOW() AND s.expires_at <= NOW() + $1 AND " + clause,
	}, " "), args...).Scan(&n)
	return n, err
}
