package redemption

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sbsimple/backend/internal/models"
)

var (
	// ErrRejected is returned when a redemption code is unknown, inactive,
	// or already consumed.
	ErrRejected = errors.New("redemption code rejected")
	// ErrInvalidAmount is returned when provisioning a denomination outside
	// the configured set.
	ErrInvalidAmount = errors.New("invalid deposit amount")
)

// Store is the code persistence contract used by the service.
type Store interface {
	ListActiveDeposits(ctx context.Context) ([]models.RedemptionCode, error)
	ConsumeAndCredit(ctx context.Context, codeID uuid.UUID, accessHash string) (int64, error)
	Insert(ctx context.Context, codeHash string, creditValue int64) (uuid.UUID, error)
}

// Service validates and consumes redemption codes. Deposit codes are stored
// bcrypt-hashed; the reusable unlimited coupon is a configured constant that
// never touches the store.
type Service struct {
	store           Store
	unlimitedCoupon string
	depositAmounts  map[int64]bool
}

func NewService(store Store, unlimitedCoupon string, depositAmounts []int64) *Service {
	amounts := make(map[int64]bool, len(depositAmounts))
	for _, v := range depositAmounts {
		amounts[v] = true
	}
	return &Service{
		store:           store,
		unlimitedCoupon: normalize(unlimitedCoupon),
		depositAmounts:  amounts,
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCoupon checks the reusable unlimited coupon. Validation never
// deactivates it and grants the unlimited tier rather than credit.
func (s *Service) ValidateCoupon(code string) error {
	c := normalize(code)
	if c == "" || subtle.ConstantTimeCompare([]byte(c), []byte(s.unlimitedCoupon)) != 1 {
		return ErrRejected
	}
	return nil
}

// Redeem consumes a single-use deposit code and credits its value to the
// account, returning the new balance. Matching scans the active codes
// because only hashes are stored; consumption itself is atomic in the store.
func (s *Service) Redeem(ctx context.Context, rawCode, accessHash string) (int64, error) {
	code := normalize(rawCode)
	if code == "" {
		return 0, ErrRejected
	}

	codes, err := s.store.ListActiveDeposits(ctx)
	if err != nil {
		return 0, fmt.Errorf("load deposit codes: %w", err)
	}

	for _, c := range codes {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil {
			return s.store.ConsumeAndCredit(ctx, c.ID, accessHash)
		}
	}
	return 0, ErrRejected
}

// Provision creates a deposit code worth value credits and returns its
// plaintext, the only time it is ever visible.
func (s *Service) Provision(ctx context.Context, value int64) (string, error) {
	if !s.depositAmounts[value] {
		return "", ErrInvalidAmount
	}

	code := newDepositCode()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash deposit code: %w", err)
	}
	if _, err := s.store.Insert(ctx, string(hash), value); err != nil {
		return "", err
	}
	return code, nil
}

// newDepositCode generates a 12-character uppercase hex voucher code.
func newDepositCode() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:6]))
}
