package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActiveDeposits returns every active single-use deposit code. The set
// is small by construction (codes are provisioned one at a time and die on
// first use), so scanning it for a bcrypt match is fine.
func (r *Repository) ListActiveDeposits(ctx context.Context) ([]models.RedemptionCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code_hash, credit_value, kind, active, consumed_at, created_at
		FROM redemption_codes WHERE kind = $1 AND active
	`, models.CodeKindDeposit)
	if err != nil {
		return nil, fmt.Errorf("list deposit codes: %w", err)
	}
	defer rows.Close()

	var codes []models.RedemptionCode
	for rows.Next() {
		var c models.RedemptionCode
		if err := rows.Scan(&c.ID, &c.CodeHash, &c.CreditValue, &c.Kind, &c.Active, &c.ConsumedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deposit code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// ConsumeAndCredit marks the code inactive and credits its value to the
// account in one transaction. The deactivation is a conditional UPDATE on
// the active flag, so of any number of concurrent redemptions exactly one
// can win; everyone else gets ErrRejected. If crediting fails the
// deactivation rolls back with it, so the code is neither burned without
// payout nor paid out twice.
func (r *Repository) ConsumeAndCredit(ctx context.Context, codeID uuid.UUID, accessHash string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var creditValue int64
	err = tx.QueryRow(ctx, `
		UPDATE redemption_codes SET active = FALSE, consumed_at = now()
		WHERE id = $1 AND active
		RETURNING credit_value
	`, codeID).Scan(&creditValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRejected
		}
		return 0, fmt.Errorf("consume code: %w", err)
	}

	var newBalance int64
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE access_hash = $2
		RETURNING credit_balance
	`, creditValue, accessHash).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, account.ErrNotFound
		}
		return 0, fmt.Errorf("credit account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return newBalance, nil
}

// Insert stores a freshly provisioned deposit code.
func (r *Repository) Insert(ctx context.Context, codeHash string, creditValue int64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO redemption_codes (id, code_hash, credit_value, kind, active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, id, codeHash, creditValue, models.CodeKindDeposit)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert deposit code: %w", err)
	}
	return id, nil
}
