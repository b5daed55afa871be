// Package audit keeps the append-only log of failed billable searches.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one failed-search record. Append-only: nothing in the
// service ever updates or deletes these rows.
func (r *Repository) Insert(ctx context.Context, username string, accessHash *string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO failed_searches (id, username, access_hash)
		VALUES ($1, $2, $3)
	`, uuid.New(), username, accessHash)
	if err != nil {
		return fmt.Errorf("insert failed search: %w", err)
	}
	return nil
}
