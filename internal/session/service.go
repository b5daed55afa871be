// Package session establishes and validates caller sessions: signed tokens
// on the outside, a TTL-bounded store record on the inside. The token
// proves authenticity; the store record is what makes logout and
// inactivity expiry real.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/models"
)

var (
	// ErrInvalidCredential is returned when a login attempt carries an
	// unknown access hash or a wrong coupon.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrSessionInvalid is returned for tokens that are malformed, expired,
	// logged out, or idle past the TTL.
	ErrSessionInvalid = errors.New("session invalid")
)

// tokenMaxAge is the absolute cap on a token's life. The sliding
// inactivity window in the store is the tighter bound in practice.
const tokenMaxAge = 24 * time.Hour

// couponDisplayName is the synthetic identity for coupon sessions, which
// have no account behind them.
const couponDisplayName = "Unlimited User"

// Store keeps live session records with a TTL.
type Store interface {
	Save(ctx context.Context, s *models.Session, ttl time.Duration) error
	// Get returns (nil, nil) when the session is absent, i.e. logged out
	// or expired.
	Get(ctx context.Context, id string) (*models.Session, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// AccountLookup resolves an access hash to its account.
type AccountLookup interface {
	GetByHash(ctx context.Context, accessHash string) (*models.Account, error)
}

// CouponValidator checks the reusable unlimited coupon.
type CouponValidator interface {
	ValidateCoupon(code string) error
}

// LoginResult is what a successful authentication hands back to the caller.
// Balance is nil for coupon sessions, which have no account.
type LoginResult struct {
	Token       string
	DisplayName string
	Tier        models.Tier
	Balance     *int64
}

type Service struct {
	store    Store
	accounts AccountLookup
	coupons  CouponValidator
	secret   []byte
	ttl      time.Duration
}

func NewService(store Store, accounts AccountLookup, coupons CouponValidator, secret string, ttl time.Duration) *Service {
	return &Service{
		store:    store,
		accounts: accounts,
		coupons:  coupons,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

type claims struct {
	jwt.RegisteredClaims
	AccessHash  string      `json:"access_hash,omitempty"`
	DisplayName string      `json:"display_name"`
	Tier        models.Tier `json:"tier"`
}

// AuthenticateByHash logs a caller in by access hash. The session tier
// mirrors the account tier.
func (s *Service) AuthenticateByHash(ctx context.Context, accessHash string) (*LoginResult, error) {
	acc, err := s.accounts.GetByHash(ctx, strings.TrimSpace(accessHash))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("authenticate by hash: %w", err)
	}

	sess := &models.Session{
		ID:          uuid.NewString(),
		AccessHash:  acc.AccessHash,
		DisplayName: acc.DisplayName,
		Tier:        acc.Tier,
	}
	token, err := s.open(ctx, sess)
	if err != nil {
		return nil, err
	}
	balance := acc.CreditBalance
	return &LoginResult{Token: token, DisplayName: acc.DisplayName, Tier: acc.Tier, Balance: &balance}, nil
}

// AuthenticateByCoupon logs a caller in with the reusable unlimited coupon.
// No account is required; the session gets a synthetic identity.
func (s *Service) AuthenticateByCoupon(ctx context.Context, code string) (*LoginResult, error) {
	if err := s.coupons.ValidateCoupon(code); err != nil {
		return nil, ErrInvalidCredential
	}

	sess := &models.Session{
		ID:          uuid.NewString(),
		DisplayName: couponDisplayName,
		Tier:        models.TierUnlimited,
	}
	token, err := s.open(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, DisplayName: sess.DisplayName, Tier: sess.Tier}, nil
}

func (s *Service) open(ctx context.Context, sess *models.Session) (string, error) {
	if err := s.store.Save(ctx, sess, s.ttl); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.AccessHash,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenMaxAge)),
		},
		AccessHash:  sess.AccessHash,
		DisplayName: sess.DisplayName,
		Tier:        sess.Tier,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks the token signature and the live store record, refreshing
// the inactivity window on success. Expiry is a passive check-on-access:
// the store's TTL removes idle sessions without a sweeper.
func (s *Service) Validate(ctx context.Context, token string) (*models.Session, error) {
	c, err := s.parse(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	sess, err := s.store.Get(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionInvalid
	}

	if err := s.store.Touch(ctx, sess.ID, s.ttl); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return sess, nil
}

// Logout removes the session record. Idempotent: unknown, expired, and
// garbage tokens all succeed silently.
func (s *Service) Logout(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, c.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) parse(token string) (*claims, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.ID == "" {
		return nil, errors.New("invalid token")
	}
	return c, nil
}
