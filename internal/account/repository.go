package account

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sbsimple/backend/internal/models"
)

var (
	// ErrNotFound is returned when no account matches the given access hash.
	ErrNotFound = errors.New("account not found")
	// ErrInsufficientCredit is returned when a debit would drive the balance negative.
	ErrInsufficientCredit = errors.New("insufficient credit")
)

// maxHashAttempts bounds access-hash regeneration on unique collisions.
// With 2^32 hash values a collision is already vanishingly rare.
const maxHashAttempts = 5

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NewAccessHash generates an 8-character uppercase hex access hash from a
// random UUID.
func NewAccessHash() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:4]))
}

// Create inserts a new standard-tier account with zero balance. On an
// access-hash collision it regenerates and retries.
func (r *Repository) Create(ctx context.Context, displayName string) (*models.Account, error) {
	for attempt := 0; attempt < maxHashAttempts; attempt++ {
		a := &models.Account{
			ID:          uuid.New(),
			DisplayName: displayName,
			AccessHash:  NewAccessHash(),
			Tier:        models.TierStandard,
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO accounts (id, display_name, access_hash, credit_balance, tier)
			VALUES ($1, $2, $3, 0, $4)
			RETURNING credit_balance, created_at, updated_at
		`, a.ID, a.DisplayName, a.AccessHash, a.Tier).Scan(&a.CreditBalance, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				continue
			}
			return nil, fmt.Errorf("create account: %w", err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("create account: access hash collisions on %d attempts", maxHashAttempts)
}

// GetByHash returns the account for the given access hash. Pure read.
func (r *Repository) GetByHash(ctx context.Context, accessHash string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, access_hash, credit_balance, tier, created_at, updated_at
		FROM accounts WHERE access_hash = $1
	`, accessHash).Scan(&a.ID, &a.DisplayName, &a.AccessHash, &a.CreditBalance, &a.Tier, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// Debit atomically deducts amount if the balance covers it and returns the
// new balance. The sufficiency check and the decrement are a single
// conditional UPDATE, so two concurrent debits can never both pass.
func (r *Repository) Debit(ctx context.Context, accessHash string, amount int64) (int64, error) {
	var newBalance int64
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts SET credit_balance = credit_balance - $1, updated_at = now()
		WHERE access_hash = $2 AND credit_balance >= $1
		RETURNING credit_balance
	`, amount, accessHash).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("debit account: %w", err)
	}

	// Zero rows: either the balance was short or the account is gone.
	if _, getErr := r.GetByHash(ctx, accessHash); getErr != nil {
		return 0, getErr
	}
	return 0, ErrInsufficientCredit
}

// Credit atomically adds amount and returns the new balance.
func (r *Repository) Credit(ctx context.Context, accessHash string, amount int64) (int64, error) {
	var newBalance int64
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE access_hash = $2
		RETURNING credit_balance
	`, amount, accessHash).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("credit account: %w", err)
	}
	return newBalance, nil
}
