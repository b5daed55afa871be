package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory store with an adjustable clock, so expiry is tested without
// sleeping.
// ---------------------------------------------------------------------------

type memEntry struct {
	sess      models.Session
	expiresAt time.Time
}

type memStore struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   time.Time
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]memEntry), now: time.Now()}
}

func (m *memStore) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *memStore) Save(_ context.Context, s *models.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = memEntry{sess: *s, expiresAt: m.now.Add(ttl)}
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok || !e.expiresAt.After(m.now) {
		delete(m.items, id)
		return nil, nil
	}
	cp := e.sess
	return &cp, nil
}

func (m *memStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[id]; ok {
		e.expiresAt = m.now.Add(ttl)
		m.items[id] = e
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// ---

type stubAccounts struct {
	accounts map[string]*models.Account
}

func (s *stubAccounts) GetByHash(_ context.Context, hash string) (*models.Account, error) {
	if a, ok := s.accounts[hash]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, account.ErrNotFound
}

type stubCoupons struct {
	valid string
}

func (s *stubCoupons) ValidateCoupon(code string) error {
	if code == s.valid {
		return nil
	}
	return ErrInvalidCredential
}

// ---

const testTTL = 30 * time.Minute

func newTestService(store Store) *Service {
	accounts := &stubAccounts{accounts: map[string]*models.Account{
		"HASH0001": {DisplayName: "Alice", AccessHash: "HASH0001", CreditBalance: 120, Tier: models.TierStandard},
	}}
	return NewService(store, accounts, &stubCoupons{valid: "SBSIMPLE00"}, "test-secret", testTTL)
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthenticateByHash(t *testing.T) {
	svc := newTestService(newMemStore())

	res, err := svc.AuthenticateByHash(context.Background(), " HASH0001 ")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Alice", res.DisplayName)
	assert.Equal(t, models.TierStandard, res.Tier)
	require.NotNil(t, res.Balance)
	assert.EqualValues(t, 120, *res.Balance)
}

func TestAuthenticateByHash_Unknown(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.AuthenticateByHash(context.Background(), "NOPE1234")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAuthenticateByCoupon(t *testing.T) {
	svc := newTestService(newMemStore())

	res, err := svc.AuthenticateByCoupon(context.Background(), "SBSIMPLE00")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Unlimited User", res.DisplayName)
	assert.Equal(t, models.TierUnlimited, res.Tier)
	assert.Nil(t, res.Balance, "coupon sessions have no account balance")

	_, err = svc.AuthenticateByCoupon(context.Background(), "WRONG")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

// ---------------------------------------------------------------------------
// Validate / expiry / logout
// ---------------------------------------------------------------------------

func TestValidate_RoundTrip(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	res, err := svc.AuthenticateByHash(context.Background(), "HASH0001")
	require.NoError(t, err)

	sess, err := svc.Validate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, "HASH0001", sess.AccessHash)
	assert.Equal(t, models.TierStandard, sess.Tier)
	assert.False(t, sess.Unlimited())
}

func TestValidate_GarbageAndTamperedTokens(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Validate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrSessionInvalid)

	// Token signed with a different secret must be rejected outright.
	other := NewService(newMemStore(), &stubAccounts{accounts: map[string]*models.Account{
		"HASH0001": {DisplayName: "Alice", AccessHash: "HASH0001"},
	}}, &stubCoupons{valid: "X"}, "other-secret", testTTL)
	res, err := other.AuthenticateByHash(context.Background(), "HASH0001")
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestValidate_InactivityExpiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	res, err := svc.AuthenticateByHash(context.Background(), "HASH0001")
	require.NoError(t, err)

	// Activity inside the window slides it forward.
	store.advance(testTTL - time.Minute)
	_, err = svc.Validate(context.Background(), res.Token)
	require.NoError(t, err)

	store.advance(testTTL - time.Minute)
	_, err = svc.Validate(context.Background(), res.Token)
	require.NoError(t, err, "touch on access must have refreshed the TTL")

	// Going idle past the window kills the session.
	store.advance(testTTL + time.Second)
	_, err = svc.Validate(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestLogout_Idempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	res, err := svc.AuthenticateByHash(context.Background(), "HASH0001")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), res.Token))

	_, err = svc.Validate(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrSessionInvalid, "a logged-out token is dead")

	// Logging out again, or with garbage, still succeeds.
	require.NoError(t, svc.Logout(context.Background(), res.Token))
	require.NoError(t, svc.Logout(context.Background(), "not-a-token"))
}
