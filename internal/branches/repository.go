package branches

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gymflow-app/gymflow/internal/platform/db"
)

// ErrNotFound indicates the branch does not exist.
var ErrNotFound = errors.New("branches: not found")

// Repository defines persistence operations for branch management.
type Repository interface {
	List(ctx context.Context) ([]Branch, error)
	Get(ctx context.Context, id uuid.UUID) (Branch, error)
	Create(ctx context.Context, branch Branch) (Branch, error)
	Update(ctx context.Context, id uuid.UUID, name, address, phone string) (Branch, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Branch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, address, phone, is_default, created_at, updated_at
		   FROM branches ORDER BY is_default DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Branch, error) {
	var b Branch
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, address, phone, is_default, created_at, updated_at
		   FROM branches WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

// Create inserts a branch inside a transaction so the first-branch-default
// rule holds under concurrent creates.
func (r *repository) Create(ctx context.Context, branch Branch) (Branch, error) {
	now := time.Now().UTC()
	branch.CreatedAt = now
	branch.UpdatedAt = now
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM branches`).Scan(&count); err != nil {
			return err
		}
		branch.IsDefault = count == 0
		_, err := tx.Exec(ctx,
			`INSERT INTO branches (id, name, address, phone, is_default, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			branch.ID, branch.Name, branch.Address, branch.Phone, branch.IsDefault,
			branch.CreatedAt, branch.UpdatedAt)
		return err
	})
	if err != nil {
		return Branch{}, err
	}
	return branch, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, name, address, phone string) (Branch, error) {
	var b Branch
	err := r.pool.QueryRow(ctx,
		`UPDATE branches SET name = $2, address = $3, phone = $4, updated_at = NOW()
		  WHERE id = $1
		 RETURNING id, name, address, phone, is_default, created_at, updated_at`,
		id, name, address, phone,
	).Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrNotFound
		}
		return Branch{}, err
	}
	return b, nil
}
