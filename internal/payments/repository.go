package payments

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
	"github.com/gymflow-app/gymflow/internal/platform/db"
)

var (
	// ErrMemberNotFound indicates the payment target member does not exist.
	ErrMemberNotFound = errors.New("payments: member not found")
	// ErrNotFound indicates a missing ledger entry or payment.
	ErrNotFound = errors.New("payments: not found")
)

// MemberRef carries what the service needs to scope and notify a payment.
type MemberRef struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	FullName string
	Phone    string
}

// ListFilter narrows payment and ledger listings.
type ListFilter struct {
	Scope    authz.Scope
	BranchID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// Repository defines persistence operations for payments and the ledger.
type Repository interface {
	MemberRef(ctx context.Context, memberID uuid.UUID) (MemberRef, error)
	CreatePayment(ctx context.Context, p Payment) error
	ListPayments(ctx context.Context, filter ListFilter) ([]Payment, int, error)
	CreateLedgerEntry(ctx context.Context, e LedgerEntry) error
	ListLedger(ctx context.Context, filter ListFilter) ([]LedgerEntry, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) MemberRef(ctx context.Context, memberID uuid.UUID) (MemberRef, error) {
	var ref MemberRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, branch_id, full_name, phone FROM members WHERE id = $1`, memberID,
	).Scan(&ref.ID, &ref.BranchID, &ref.FullName, &ref.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return MemberRef{}, ErrMemberNotFound
	}
	return ref, err
}

// CreatePayment inserts the payment and its income ledger line atomically.
func (r *repository) CreatePayment(ctx context.Context, p Payment) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO payments (id, member_id, branch_id, subscription_id, amount_cents, method, note, recorded_by, paid_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			p.ID, p.MemberID, p.BranchID, p.SubscriptionID, p.AmountCents, p.Method, p.Note, p.RecordedBy, p.PaidAt, p.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO ledger_entries (id, branch_id, kind, category, amount_cents, description, payment_id, recorded_by, occurred_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.New(), p.BranchID, KindIncome, "membership", p.AmountCents, p.Note, p.ID, p.RecordedBy, p.PaidAt, p.CreatedAt)
		return err
	})
}

func (r *repository) ListPayments(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	where, args, empty := buildFilter(filter, "branch_id", "paid_at")
	if empty {
		return []Payment{}, 0, nil
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM payments WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args, limitIdx, offsetIdx := appendPaging(args, filter)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, member_id, branch_id, subscription_id, amount_cents, method, note, recorded_by, paid_at, created_at
		   FROM payments WHERE %s
		  ORDER BY paid_at DESC LIMIT $%d OFFSET $%d`, where, limitIdx, offsetIdx), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.MemberID, &p.BranchID, &p.SubscriptionID,
			&p.AmountCents, &p.Method, &p.Note, &p.RecordedBy, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repository) CreateLedgerEntry(ctx context.Context, e LedgerEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ledger_entries (id, branch_id, kind, category, amount_cents, description, payment_id, recorded_by, occurred_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.BranchID, e.Kind, e.Category, e.AmountCents, e.Description, e.PaymentID, e.RecordedBy, e.OccurredAt, e.CreatedAt)
	return err
}

func (r *repository) ListLedger(ctx context.Context, filter ListFilter) ([]LedgerEntry, int, error) {
	where, args, empty := buildFilter(filter, "branch_id", "occurred_at")
	if empty {
		return []LedgerEntry{}, 0, nil
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args, limitIdx, offsetIdx := appendPaging(args, filter)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, branch_id, kind, category, amount_cents, description, payment_id, recorded_by, occurred_at, created_at
		   FROM ledger_entries WHERE %s
		  ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d`, where, limitIdx, offsetIdx), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.BranchID, &e.Kind, &e.Category, &e.AmountCents,
			&e.Description, &e.PaymentID, &e.RecordedBy, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, e)
	}
	return result, total, rows.Err()
}

// buildFilter compiles scope and date predicates. empty reports a staff
// scope with no branches, which can never match anything.
func buildFilter(filter ListFilter, branchCol, timeCol string) (string, []any, bool) {
	clauses := []string{"1=1"}
	args := []any{}

	if !filter.Scope.All {
		if len(filter.Scope.Branches) == 0 {
			return "", nil, true
		}
		args = append(args, filter.Scope.Branches)
		clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", branchCol, len(args)))
	}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", branchCol, len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("%s >= $%d", timeCol, len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("%s < $%d", timeCol, len(args)))
	}
	return strings.Join(clauses, " AND "), args, false
}

func appendPaging(args []any, filter ListFilter) ([]any, int, int) {
	perPage := filter.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	return args, len(args) - 1, len(args)
}
