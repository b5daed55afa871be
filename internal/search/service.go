// Package search implements the metered search protocol: authorize against
// the session tier, gate on balance, consult the oracle, debit exactly once
// on success, audit on failure.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/lookup"
	"github.com/sbsimple/backend/internal/models"
)

// ErrInvalidInput is returned when the query is empty after normalization.
var ErrInvalidInput = errors.New("invalid search input")

// Accounts is the slice of the account store the coordinator needs.
type Accounts interface {
	GetByHash(ctx context.Context, accessHash string) (*models.Account, error)
	Debit(ctx context.Context, accessHash string, amount int64) (int64, error)
}

// Oracle resolves usernames. Side-effect free per contract.
type Oracle interface {
	Search(ctx context.Context, username string) (*lookup.Result, error)
}

// Auditor records failed billable searches.
type Auditor interface {
	Record(ctx context.Context, username string, accessHash *string) error
}

// Result is the outcome of one metered search. NewBalance is nil for
// unlimited sessions, which are never billed.
type Result struct {
	Found      bool
	Data       json.RawMessage
	Unlimited  bool
	NewBalance *int64
}

type Service struct {
	accounts Accounts
	oracle   Oracle
	auditor  Auditor
	log      *slog.Logger

	unitCost       int64
	auditUnlimited bool
}

func NewService(accounts Accounts, oracle Oracle, auditor Auditor, unitCost int64, auditUnlimited bool, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		accounts:       accounts,
		oracle:         oracle,
		auditor:        auditor,
		log:            log,
		unitCost:       unitCost,
		auditUnlimited: auditUnlimited,
	}
}

// UnitCost is the credit price of one successful billable search.
func (s *Service) UnitCost() int64 { return s.unitCost }

// Search runs the metering protocol for one authenticated session.
//
// The balance is checked twice: a cheap pre-gate before the oracle call,
// and again inside the debit itself, which is atomic. A caller whose
// balance drops between the two is refused at the second check rather than
// driven negative. No account state is held locked across the oracle call.
func (s *Service) Search(ctx context.Context, sess *models.Session, rawQuery string) (*Result, error) {
	username := strings.TrimSpace(rawQuery)
	if username == "" {
		return nil, ErrInvalidInput
	}
	// Leading "@" is cosmetic and does not affect billing.
	username = strings.TrimPrefix(username, "@")
	if username == "" {
		return nil, ErrInvalidInput
	}

	if sess.Unlimited() {
		return s.searchUnlimited(ctx, username)
	}
	return s.searchStandard(ctx, sess, username)
}

func (s *Service) searchUnlimited(ctx context.Context, username string) (*Result, error) {
	res, err := s.oracle.Search(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	if !res.Found && s.auditUnlimited {
		s.record(ctx, username, nil)
	}
	return &Result{Found: res.Found, Data: res.Data, Unlimited: true}, nil
}

func (s *Service) searchStandard(ctx context.Context, sess *models.Session, username string) (*Result, error) {
	// Always read the balance fresh; a cached session balance can be stale.
	acc, err := s.accounts.GetByHash(ctx, sess.AccessHash)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Consistency fault: the session outlived its account.
			s.log.Error("search: account vanished mid-session", "access_hash", sess.AccessHash)
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acc.CreditBalance < s.unitCost {
		return nil, account.ErrInsufficientCredit
	}

	res, err := s.oracle.Search(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}

	if !res.Found {
		hash := sess.AccessHash
		s.record(ctx, username, &hash)
		balance := acc.CreditBalance
		return &Result{Found: false, NewBalance: &balance}, nil
	}

	newBalance, err := s.accounts.Debit(ctx, sess.AccessHash, s.unitCost)
	if err != nil {
		if errors.Is(err, account.ErrInsufficientCredit) {
			// Lost the race against a concurrent spend since the pre-gate.
			return nil, account.ErrInsufficientCredit
		}
		if errors.Is(err, account.ErrNotFound) {
			s.log.Error("search: account vanished before debit", "access_hash", sess.AccessHash)
		}
		return nil, fmt.Errorf("debit: %w", err)
	}

	return &Result{Found: true, Data: res.Data, NewBalance: &newBalance}, nil
}

// record is best-effort: a failed audit write is an operator problem, never
// the caller's.
func (s *Service) record(ctx context.Context, username string, accessHash *string) {
	if err := s.auditor.Record(ctx, username, accessHash); err != nil {
		s.log.Error("audit record failed", "username", username, "error", err)
	}
}
