package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gymflow-app/gymflow/internal/authz"
)

// ErrNotFound indicates the member does not exist.
var ErrNotFound = errors.New("members: not found")

// ListFilter narrows member listings. Scope is always applied; the other
// fields are optional.
type ListFilter struct {
	Scope    authz.Scope
	BranchID *uuid.UUID
	Search   string
	Page     int
	PerPage  int
}

// Repository defines persistence operations for members.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Member, int, error)
	Get(ctx context.Context, id uuid.UUID) (Member, error)
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CreateSubscription(ctx context.Context, sub Subscription) error
	ListSubscriptions(ctx context.Context, memberID uuid.UUID) ([]Subscription, error)
	ExpiringWithin(ctx context.Context, scope authz.Scope, window time.Duration) ([]Subscription, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// List builds the filter predicate dynamically. Branch scope is compiled
// into the WHERE clause so out-of-scope rows never leave the database.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]Member, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if !filter.Scope.All {
		if len(filter.Scope.Branches) == 0 {
			return []Member{}, 0, nil
		}
		args = append(args, filter.Scope.Branches)
		clauses = append(clauses, fmt.Sprintf("branch_id = ANY($%d)", len(args)))
	}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		clauses = append(clauses, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+q+"%")
		clauses = append(clauses, fmt.Sprintf("(full_name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM members WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(
		`SELECT id, branch_id, full_name, email, phone, is_active, joined_at, created_at, updated_at
		   FROM members WHERE %s
		  ORDER BY full_name LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.BranchID, &m.FullName, &m.Email, &m.Phone,
			&m.IsActive, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, m)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx,
		`SELECT id, branch_id, full_name, email, phone, is_active, joined_at, created_at, updated_at
		   FROM members WHERE id = $1`, id,
	).Scan(&m.ID, &m.BranchID, &m.FullName, &m.Email, &m.Phone,
		&m.IsActive, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	return m, err
}

func (r *repository) Create(ctx context.Context, m Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (id, branch_id, full_name, email, phone, is_active, joined_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		m.ID, m.BranchID, m.FullName, m.Email, m.Phone, m.IsActive, m.JoinedAt, m.CreatedAt)
	return err
}

func (r *repository) Update(ctx context.Context, m Member) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET full_name = $2, email = $3, phone = $4, updated_at = NOW() WHERE id = $1`,
		m.ID, m.FullName, m.Email, m.Phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CreateSubscription(ctx context.Context, sub Subscription) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (id, member_id, plan, price_cents, starts_at, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.MemberID, sub.Plan, sub.PriceCents, sub.StartsAt, sub.ExpiresAt, sub.CreatedAt)
	return err
}

func (r *repository) ListSubscriptions(ctx context.Context, memberID uuid.UUID) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, member_id, plan, price_cents, starts_at, expires_at, created_at
		   FROM subscriptions WHERE member_id = $1 ORDER BY expires_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.MemberID, &s.Plan, &s.PriceCents, &s.StartsAt, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// ExpiringWithin returns subscriptions lapsing inside the window, limited
// to active members in the given scope.
func (r *repository) ExpiringWithin(ctx context.Context, scope authz.Scope, window time.Duration) ([]Subscription, error) {
	clauses := []string{
		"s.expires_at > NOW()",
		"s.expires_at <= NOW() + $1",
		"m.is_active",
	}
	args := []any{window}
	if !scope.All {
		if len(scope.Branches) == 0 {
			return []Subscription{}, nil
		}
		args = append(args, scope.Branches)
		clauses = append(clauses, fmt.Sprintf("m.branch_id = ANY($%d)", len(args)))
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT s.id, s.member_id, s.plan, s.price_cents, s.starts_at, s.expires_at, s.created_at
		   FROM subscriptions s
		   JOIN members m ON m.id = s.member_id
		  WHERE %s
		  ORDER BY s.expires_at`, strings.Join(clauses, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.MemberID, &s.Plan, &s.PriceCents, &s.StartsAt, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
