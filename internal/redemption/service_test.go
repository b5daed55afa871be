package redemption

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory store. ConsumeAndCredit deactivates and credits under one lock,
// mirroring the single transaction the real repository runs.
// ---------------------------------------------------------------------------

type memStore struct {
	mu       sync.Mutex
	codes    map[uuid.UUID]*models.RedemptionCode
	balances map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		codes:    make(map[uuid.UUID]*models.RedemptionCode),
		balances: make(map[string]int64),
	}
}

func (m *memStore) ListActiveDeposits(_ context.Context) ([]models.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RedemptionCode
	for _, c := range m.codes {
		if c.Active && c.Kind == models.CodeKindDeposit {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) ConsumeAndCredit(_ context.Context, codeID uuid.UUID, accessHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeID]
	if !ok || !c.Active {
		return 0, ErrRejected
	}
	if _, ok := m.balances[accessHash]; !ok {
		return 0, account.ErrNotFound
	}
	c.Active = false
	m.balances[accessHash] += c.CreditValue
	return m.balances[accessHash], nil
}

func (m *memStore) Insert(_ context.Context, codeHash string, creditValue int64) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.codes[id] = &models.RedemptionCode{
		ID:          id,
		CodeHash:    codeHash,
		CreditValue: creditValue,
		Kind:        models.CodeKindDeposit,
		Active:      true,
	}
	return id, nil
}

func (m *memStore) addCode(t *testing.T, plaintext string, value int64) uuid.UUID {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := m.Insert(context.Background(), string(hash), value)
	require.NoError(t, err)
	return id
}

func (m *memStore) balance(hash string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[hash]
}

const testCoupon = "SBSIMPLE00"

func newTestService(store *memStore) *Service {
	return NewService(store, testCoupon, []int64{30, 90, 300})
}

// ---------------------------------------------------------------------------
// Coupon validation
// ---------------------------------------------------------------------------

func TestValidateCoupon(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	require.NoError(t, svc.ValidateCoupon("SBSIMPLE00"))
	require.NoError(t, svc.ValidateCoupon("  sbsimple00  "), "coupon matching is case- and space-insensitive")
	require.ErrorIs(t, svc.ValidateCoupon("WRONG"), ErrRejected)
	require.ErrorIs(t, svc.ValidateCoupon(""), ErrRejected)

	// Validation is stateless: the coupon is reusable and never consumed.
	require.NoError(t, svc.ValidateCoupon("SBSIMPLE00"))
	codes, err := store.ListActiveDeposits(context.Background())
	require.NoError(t, err)
	assert.Empty(t, codes, "coupon validation must not touch the store")
}

// ---------------------------------------------------------------------------
// Deposit redemption
// ---------------------------------------------------------------------------

func TestRedeem_CreditsOnceThenRejects(t *testing.T) {
	store := newMemStore()
	store.balances["HASH0001"] = 10
	store.addCode(t, "DEPOSIT90", 90)
	svc := newTestService(store)

	newBalance, err := svc.Redeem(context.Background(), "deposit90", "HASH0001")
	require.NoError(t, err)
	assert.EqualValues(t, 100, newBalance)
	assert.EqualValues(t, 100, store.balance("HASH0001"))

	// A consumed code is dead for good.
	_, err = svc.Redeem(context.Background(), "DEPOSIT90", "HASH0001")
	require.ErrorIs(t, err, ErrRejected)
	assert.EqualValues(t, 100, store.balance("HASH0001"))
}

func TestRedeem_UnknownOrEmptyCode(t *testing.T) {
	store := newMemStore()
	store.balances["HASH0001"] = 0
	store.addCode(t, "DEPOSIT90", 90)
	svc := newTestService(store)

	_, err := svc.Redeem(context.Background(), "NOSUCHCODE", "HASH0001")
	require.ErrorIs(t, err, ErrRejected)

	_, err = svc.Redeem(context.Background(), "   ", "HASH0001")
	require.ErrorIs(t, err, ErrRejected)

	assert.EqualValues(t, 0, store.balance("HASH0001"))
}

func TestRedeem_UnknownAccount(t *testing.T) {
	store := newMemStore()
	store.addCode(t, "DEPOSIT90", 90)
	svc := newTestService(store)

	_, err := svc.Redeem(context.Background(), "DEPOSIT90", "GONE")
	require.ErrorIs(t, err, account.ErrNotFound)
}

func TestRedeem_ConcurrentConsumesAtMostOnce(t *testing.T) {
	const attempts = 8

	store := newMemStore()
	store.balances["HASH0001"] = 0
	store.addCode(t, "DEPOSIT90", 90)
	svc := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Redeem(context.Background(), "DEPOSIT90", "HASH0001")
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, ErrRejected)
		}
	}
	assert.Equal(t, 1, successes, "a single-use code is consumed at most once")
	assert.EqualValues(t, 90, store.balance("HASH0001"), "the value is credited exactly once")
}

// ---------------------------------------------------------------------------
// Provisioning
// ---------------------------------------------------------------------------

func TestProvision_RoundTrip(t *testing.T) {
	store := newMemStore()
	store.balances["HASH0001"] = 0
	svc := newTestService(store)

	code, err := svc.Provision(context.Background(), 300)
	require.NoError(t, err)
	assert.Len(t, code, 12)
	assert.Equal(t, code, normalize(code), "codes are issued pre-normalized")

	newBalance, err := svc.Redeem(context.Background(), code, "HASH0001")
	require.NoError(t, err)
	assert.EqualValues(t, 300, newBalance)
}

func TestProvision_RejectsUnknownDenomination(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Provision(context.Background(), 42)
	require.ErrorIs(t, err, ErrInvalidAmount)
}
