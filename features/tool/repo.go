package tool

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Tool, error)
	List(ctx context.Context) ([]Tool, error)
	Create(ctx context.Context, t *Tool) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: sqlx.NewDb(db, "postgres")}
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Tool, error) {
	var t Tool
	query := `SELECT id, name, description, is_active, created_at FROM tools WHERE id = $1`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	query := `SELECT id, name, description, is_active, created_at FROM tools ORDER BY name`
	if err := r.db.SelectContext(ctx, &tools, query); err != nil {
		return nil, err
	}
	return tools, nil
}

func (r *PostgresRepo) Create(ctx context.Context, t *Tool) error {
	query := `INSERT INTO tools (name, description, is_active) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, query, t.Name, t.Description, t.IsActive).Scan(&t.ID, &t.CreatedAt)
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tools`)
	return count, err
}

// isInvalidID reports a malformed uuid, which can never match a row.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
