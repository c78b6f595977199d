package economy

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/db/dbtest"
)

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	txs      []*Transaction
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[string]*Account)}
}

func (m *memStore) CreateAccount(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[userID]; ok {
		return false, nil
	}
	m.accounts[userID] = &Account{UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return true, nil
}

func (m *memStore) GetAccount(_ context.Context, userID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetAccountForUpdate(ctx context.Context, userID string) (*Account, error) {
	return m.GetAccount(ctx, userID)
}

func (m *memStore) SaveBalance(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.accounts[a.UserID]
	stored.Balance, stored.TotalEarned, stored.TotalSpent = a.Balance, a.TotalEarned, a.TotalSpent
	return nil
}

func (m *memStore) SaveStreak(_ context.Context, userID string, streak, longest int, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.accounts[userID]
	stored.LoginStreak, stored.LongestStreak = streak, longest
	stored.LastDailyReward = &day
	return nil
}

func (m *memStore) InsertTransaction(_ context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now()
	cp := *t
	m.txs = append(m.txs, &cp)
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, userID string, limit, offset int) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) txCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func testConfig() *config.Config {
	return &config.Config{
		AppTimezone:            "UTC",
		EconomyStartingBalance: 0,
		DailyRewardTable:       []int64{10, 15, 20, 25, 30, 35, 40},
	}
}

func newTestService(t *testing.T, now time.Time) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewService(store, &dbtest.Tx{}, testConfig())
	svc.now = func() time.Time { return now }
	return svc, store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdjustCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("balance equals earned minus spent", func(t *testing.T) {
		svc, store := newTestService(t, time.Now())
		_, err := store.CreateAccount(ctx, "u1")
		require.NoError(t, err)

		ops := []struct {
			delta int64
			kind  string
		}{
			{100, KindEarn}, {-30, KindSpend}, {5, KindEarn}, {-75, KindSpend}, {12, KindEarn},
		}
		for _, op := range ops {
			_, err := svc.AdjustCredits(ctx, "u1", op.delta, op.kind, "test", "")
			require.NoError(t, err)

			acc, err := svc.GetAccount(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, acc.TotalEarned-acc.TotalSpent, acc.Balance)
			assert.GreaterOrEqual(t, acc.Balance, int64(0))
		}

		acc, _ := svc.GetAccount(ctx, "u1")
		assert.Equal(t, int64(12), acc.Balance)
		assert.Equal(t, int64(117), acc.TotalEarned)
		assert.Equal(t, int64(105), acc.TotalSpent)
		assert.Equal(t, 5, store.txCount())
	})

	t.Run("insufficient credits leaves everything unchanged", func(t *testing.T) {
		svc, store := newTestService(t, time.Now())
		_, _ = store.CreateAccount(ctx, "u1")
		_, err := svc.Earn(ctx, "u1", 5, "test", "")
		require.NoError(t, err)

		_, err = svc.Spend(ctx, "u1", 10, "generation", "too expensive")
		require.ErrorIs(t, err, common.ErrInsufficientCredits)

		acc, _ := svc.GetAccount(ctx, "u1")
		assert.Equal(t, int64(5), acc.Balance)
		assert.Equal(t, int64(5), acc.TotalEarned)
		assert.Equal(t, int64(0), acc.TotalSpent)
		assert.Equal(t, 1, store.txCount())
	})

	t.Run("spending the whole balance is allowed", func(t *testing.T) {
		svc, store := newTestService(t, time.Now())
		_, _ = store.CreateAccount(ctx, "u1")
		_, _ = svc.Earn(ctx, "u1", 10, "test", "")

		entry, err := svc.Spend(ctx, "u1", 10, "generation", "")
		require.NoError(t, err)
		assert.Equal(t, int64(0), entry.BalanceAfter)
		assert.Equal(t, int64(-10), entry.Amount)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc, store := newTestService(t, time.Now())
		_, _ = store.CreateAccount(ctx, "u1")

		tests := []struct {
			name   string
			delta  int64
			kind   string
			source string
		}{
			{"zero delta", 0, KindEarn, "x"},
			{"negative earn", -5, KindEarn, "x"},
			{"positive spend", 5, KindSpend, "x"},
			{"unknown kind", 5, "gift", "x"},
			{"empty source", 5, KindEarn, " "},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.AdjustCredits(ctx, "u1", tt.delta, tt.kind, tt.source, "")
				require.Error(t, err)
				assert.True(t, common.IsValidationError(err))
			})
		}
		assert.Equal(t, 0, store.txCount())
	})

	t.Run("unknown account", func(t *testing.T) {
		svc, _ := newTestService(t, time.Now())
		_, err := svc.Earn(ctx, "ghost", 5, "test", "")
		require.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("concurrent spends never overdraw", func(t *testing.T) {
		svc, store := newTestService(t, time.Now())
		_, _ = store.CreateAccount(ctx, "u1")
		_, _ = svc.Earn(ctx, "u1", 50, "test", "")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.Spend(ctx, "u1", 10, "generation", "")
			}()
		}
		wg.Wait()

		acc, _ := svc.GetAccount(ctx, "u1")
		assert.Equal(t, int64(0), acc.Balance)
		assert.Equal(t, int64(50), acc.TotalSpent)
	})
}

func TestEnsureAccount(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cfg := testConfig()
	cfg.EconomyStartingBalance = 50
	svc := NewService(store, &dbtest.Tx{}, cfg)

	require.NoError(t, svc.EnsureAccount(ctx, "u1"))
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	acc, err := svc.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), acc.Balance)

	txs, err := svc.ListTransactions(ctx, "u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, SourceSignupBonus, txs[0].Source)
}

func TestClaimDailyLoginReward(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	t.Run("streak continues from yesterday", func(t *testing.T) {
		svc, store := newTestService(t, now)
		_, _ = store.CreateAccount(ctx, "u1")
		yesterday := day(2024, 5, 9)
		store.accounts["u1"].LoginStreak = 3
		store.accounts["u1"].LongestStreak = 3
		store.accounts["u1"].LastDailyReward = &yesterday

		reward, err := svc.ClaimDailyLoginReward(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 4, reward.Streak)
		assert.Equal(t, int64(25), reward.Amount)
		assert.Equal(t, int64(25), reward.Balance)

		acc, _ := svc.GetAccount(ctx, "u1")
		assert.Equal(t, day(2024, 5, 10), *acc.LastDailyReward)
		assert.Equal(t, 4, acc.LongestStreak)
	})

	t.Run("gap resets streak to one", func(t *testing.T) {
		svc, store := newTestService(t, now)
		_, _ = store.CreateAccount(ctx, "u1")
		twoDaysAgo := day(2024, 5, 8)
		store.accounts["u1"].LoginStreak = 6
		store.accounts["u1"].LongestStreak = 6
		store.accounts["u1"].LastDailyReward = &twoDaysAgo

		reward, err := svc.ClaimDailyLoginReward(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, reward.Streak)
		assert.Equal(t, int64(10), reward.Amount)

		acc, _ := svc.GetAccount(ctx, "u1")
		assert.Equal(t, 6, acc.LongestStreak)
	})

	t.Run("second claim same day fails without mutation", func(t *testing.T) {
		svc, store := newTestService(t, now)
		_, _ = store.CreateAccount(ctx, "u1")

		_, err := svc.ClaimDailyLoginReward(ctx, "u1")
		require.NoError(t, err)
		before, _ := svc.GetAccount(ctx, "u1")

		_, err = svc.ClaimDailyLoginReward(ctx, "u1")
		require.ErrorIs(t, err, common.ErrDailyAlreadyClaimed)

		after, _ := svc.GetAccount(ctx, "u1")
		assert.Equal(t, before.Balance, after.Balance)
		assert.Equal(t, before.LoginStreak, after.LoginStreak)
		assert.Equal(t, 1, store.txCount())
	})

	t.Run("long streak is capped at the last table entry", func(t *testing.T) {
		svc, store := newTestService(t, now)
		_, _ = store.CreateAccount(ctx, "u1")
		yesterday := day(2024, 5, 9)
		store.accounts["u1"].LoginStreak = 30
		store.accounts["u1"].LastDailyReward = &yesterday

		reward, err := svc.ClaimDailyLoginReward(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 31, reward.Streak)
		assert.Equal(t, int64(40), reward.Amount)
	})

	t.Run("day boundary follows the configured timezone", func(t *testing.T) {
		store := newMemStore()
		cfg := testConfig()
		cfg.AppTimezone = "Asia/Tokyo"
		svc := NewService(store, &dbtest.Tx{}, cfg)
		if svc.loc.String() != "Asia/Tokyo" {
			t.Skip("tzdata not available")
		}
		_, _ = store.CreateAccount(ctx, "u1")

		// 20:00 UTC on May 9 is 05:00 May 10 in Tokyo.
		svc.now = func() time.Time { return time.Date(2024, 5, 9, 20, 0, 0, 0, time.UTC) }
		_, err := svc.ClaimDailyLoginReward(ctx, "u1")
		require.NoError(t, err)

		acc, _ := svc.GetAccount(ctx, "u1")
		assert.Equal(t, day(2024, 5, 10), *acc.LastDailyReward)
	})
}

func TestDailyStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	_, _ = store.CreateAccount(ctx, "u1")
	yesterday := day(2024, 5, 9)
	store.accounts["u1"].LoginStreak = 1
	store.accounts["u1"].LastDailyReward = &yesterday

	st, err := svc.DailyStatus(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, st.Available)
	assert.Equal(t, 2, st.NextStreak)
	assert.Equal(t, int64(15), st.NextAmount)

	_, err = svc.ClaimDailyLoginReward(ctx, "u1")
	require.NoError(t, err)

	st, err = svc.DailyStatus(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, st.Available)
	assert.Equal(t, 2, st.Streak)
}

func TestRewardTable(t *testing.T) {
	table := DefaultRewardTable
	assert.Equal(t, int64(10), table.For(0))
	assert.Equal(t, int64(10), table.For(1))
	assert.Equal(t, int64(25), table.For(4))
	assert.Equal(t, int64(40), table.For(7))
	assert.Equal(t, int64(40), table.For(100))

	for s := 1; s < 20; s++ {
		assert.LessOrEqual(t, table.For(s), table.For(s+1))
	}
	assert.Equal(t, int64(0), RewardTable(nil).For(3))
}
