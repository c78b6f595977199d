package quests

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/db/dbtest"
	"storyforge.app/api/internal/features/economy"
	"storyforge.app/api/internal/server/servertest"
)

type memStore struct {
	mu        sync.Mutex
	templates map[string]*Template
	rows      []*UserQuest
	nextID    int64
}

func newMemStore(templates ...Template) *memStore {
	m := &memStore{templates: make(map[string]*Template)}
	for i := range templates {
		t := templates[i]
		m.templates[t.ID] = &t
	}
	return m
}

func (m *memStore) join(q *UserQuest) *UserQuest {
	t := m.templates[q.QuestID]
	cp := *q
	cp.Name, cp.Description, cp.Icon = t.Name, t.Description, t.Icon
	cp.Requirement, cp.RewardCredits, cp.QuestType = t.Requirement, t.RewardCredits, t.QuestType
	return &cp
}

func (m *memStore) AssignDaily(_ context.Context, userID string, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.templates {
		if !t.IsActive {
			continue
		}
		exists := false
		for _, r := range m.rows {
			if r.UserID == userID && r.QuestID == t.ID && r.Day.Equal(day) {
				exists = true
				break
			}
		}
		if !exists {
			m.nextID++
			m.rows = append(m.rows, &UserQuest{ID: m.nextID, UserID: userID, QuestID: t.ID, Day: day})
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListForDay(_ context.Context, userID string, day time.Time) ([]*UserQuest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*UserQuest
	for _, r := range m.rows {
		if r.UserID == userID && r.Day.Equal(day) {
			out = append(out, m.join(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestID < out[j].QuestID })
	return out, nil
}

func (m *memStore) OpenByTypeForUpdate(_ context.Context, userID string, day time.Time, questType string) ([]*UserQuest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*UserQuest
	for _, r := range m.rows {
		if r.UserID == userID && r.Day.Equal(day) && !r.IsCompleted && m.templates[r.QuestID].QuestType == questType {
			out = append(out, m.join(r))
		}
	}
	return out, nil
}

func (m *memStore) find(id int64) *UserQuest {
	for _, r := range m.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memStore) SaveProgress(_ context.Context, q *UserQuest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(q.ID)
	r.Progress, r.IsCompleted, r.CompletedAt = q.Progress, q.IsCompleted, q.CompletedAt
	return nil
}

func (m *memStore) GetForUpdate(_ context.Context, userID string, id int64) (*UserQuest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(id)
	if r == nil || r.UserID != userID {
		return nil, common.ErrNotFound
	}
	return m.join(r), nil
}

func (m *memStore) MarkClaimed(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(id)
	r.IsClaimed, r.ClaimedAt = true, &at
	return nil
}

func (m *memStore) PurgeBefore(_ context.Context, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*UserQuest
	var n int64
	for _, r := range m.rows {
		if r.Day.Before(day) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memStore) ListTemplates(_ context.Context, activeOnly bool) ([]*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Template
	for _, t := range m.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) UpsertTemplate(_ context.Context, t *Template, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[t.ID]; ok && !overwrite {
		return nil
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memStore) SetTemplateActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return common.ErrNotFound
	}
	t.IsActive = active
	return nil
}

// fakeLedger records credits per user.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	calls    int
}

func (l *fakeLedger) Earn(_ context.Context, userID string, amount int64, source, _ string) (*economy.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances == nil {
		l.balances = make(map[string]int64)
	}
	l.calls++
	l.balances[userID] += amount
	return &economy.Transaction{UserID: userID, Amount: amount, Kind: economy.KindEarn, Source: source, BalanceAfter: l.balances[userID]}, nil
}

var fiveSaves = Template{ID: "daily_save", Name: "Archivist", Requirement: 5, RewardCredits: 15, QuestType: TypeSaveCreation, IsActive: true}

func newTestService(t *testing.T, templates ...Template) (*Service, *memStore, *fakeLedger) {
	t.Helper()
	store := newMemStore(templates...)
	ledger := &fakeLedger{}
	svc := NewService(store, ledger, &dbtest.Tx{}, &config.Config{AppTimezone: "UTC"})
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, ledger
}

func TestAssignDailyQuestsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	inactive := Template{ID: "old", Name: "Old", Requirement: 1, QuestType: "x", IsActive: false}
	svc, store, _ := newTestService(t, fiveSaves, inactive)

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AssignDailyQuests(ctx, "u1", day))
	require.NoError(t, svc.AssignDailyQuests(ctx, "u1", day))

	assert.Len(t, store.rows, 1)
	assert.Equal(t, "daily_save", store.rows[0].QuestID)
}

func TestUpdateQuestProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps at requirement and completes once", func(t *testing.T) {
		svc, _, ledger := newTestService(t, fiveSaves)

		changed, err := svc.UpdateQuestProgress(ctx, "u1", TypeSaveCreation, 3)
		require.NoError(t, err)
		require.Len(t, changed, 1)
		assert.Equal(t, 3, changed[0].Progress)
		assert.False(t, changed[0].IsCompleted)

		changed, err = svc.UpdateQuestProgress(ctx, "u1", TypeSaveCreation, 10)
		require.NoError(t, err)
		require.Len(t, changed, 1)
		assert.Equal(t, 5, changed[0].Progress)
		assert.True(t, changed[0].IsCompleted)
		assert.NotNil(t, changed[0].CompletedAt)

		changed, err = svc.UpdateQuestProgress(ctx, "u1", TypeSaveCreation, 1)
		require.NoError(t, err)
		assert.Empty(t, changed)

		qs, err := svc.TodayQuests(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, 5, qs[0].Progress)
		assert.False(t, qs[0].IsClaimed)
		assert.Equal(t, 0, ledger.calls)
	})

	t.Run("other quest types are untouched", func(t *testing.T) {
		svc, _, _ := newTestService(t, fiveSaves)
		changed, err := svc.UpdateQuestProgress(ctx, "u1", TypeGenerateProp, 1)
		require.NoError(t, err)
		assert.Empty(t, changed)

		qs, _ := svc.TodayQuests(ctx, "u1")
		assert.Equal(t, 0, qs[0].Progress)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc, _, _ := newTestService(t, fiveSaves)
		_, err := svc.UpdateQuestProgress(ctx, "u1", TypeSaveCreation, 0)
		assert.True(t, common.IsValidationError(err))
		_, err = svc.UpdateQuestProgress(ctx, "u1", "Bad Type!", 1)
		assert.True(t, common.IsValidationError(err))
	})
}

func TestClaimQuestReward(t *testing.T) {
	ctx := context.Background()

	t.Run("progress 4 of 5 then one more completes and claims exactly once", func(t *testing.T) {
		svc, store, ledger := newTestService(t, fiveSaves)
		_, err := svc.UpdateQuestProgress(ctx, "u1", TypeSaveCreation, 4)
		require.NoError(t, err)
		questID := store.rows[0].ID

		_, err = svc.ClaimQuestReward(ctx, "u1", questID)
		require.ErrorIs(t, err, common.ErrQuestNotCompleted)
		assert.False(t, store.rows[0].IsClaimed)
		assert.Equal(t, 0, ledger.calls)

		_, err = svc.UpdateQuestProgress(ctx, "u1", TypeSaveCreation, 1)
		require.NoError(t, err)

		res, err := svc.ClaimQuestReward(ctx, "u1", questID)
		require.NoError(t, err)
		assert.True(t, res.Quest.IsCompleted)
		assert.True(t, res.Quest.IsClaimed)
		assert.Equal(t, int64(15), res.Reward)
		assert.Equal(t, int64(15), res.Balance)

		_, err = svc.ClaimQuestReward(ctx, "u1", questID)
		require.ErrorIs(t, err, common.ErrQuestAlreadyClaimed)
		assert.Equal(t, int64(15), ledger.balances["u1"])
		assert.Equal(t, 1, ledger.calls)
	})

	t.Run("someone else's quest is not found", func(t *testing.T) {
		svc, store, _ := newTestService(t, fiveSaves)
		_, err := svc.TodayQuests(ctx, "u1")
		require.NoError(t, err)

		_, err = svc.ClaimQuestReward(ctx, "u2", store.rows[0].ID)
		require.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestPurgeOld(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, fiveSaves)

	require.NoError(t, svc.AssignDailyQuests(ctx, "u1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	_, err := svc.TodayQuests(ctx, "u1")
	require.NoError(t, err)

	n, err := svc.PurgeOld(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, store.rows, 1)
}

func TestSaveTemplateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	err := svc.SaveTemplate(ctx, &Template{ID: "Bad ID", Name: "x", Requirement: 1, QuestType: "x"})
	assert.True(t, common.IsValidationError(err))

	err = svc.SaveTemplate(ctx, &Template{ID: "ok", Name: "x", Requirement: 0, QuestType: "x"})
	assert.True(t, common.IsValidationError(err))

	require.NoError(t, svc.SaveTemplate(ctx, &Template{ID: "ok", Name: "x", Requirement: 2, QuestType: "x", IsActive: true}))
	require.NoError(t, svc.SeedDefaults(ctx))
	all, err := svc.ListTemplates(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultTemplates)+1)
}

func TestHandlers(t *testing.T) {
	svc, store, _ := newTestService(t, fiveSaves)
	app := servertest.NewApp(NewHandler(svc).Register)

	var daily []UserQuest
	require.Equal(t, http.StatusOK, servertest.Do(t, app, http.MethodGet, "/api/quests/daily", "u1", nil, &daily))
	require.Len(t, daily, 1)

	var msg servertest.Message
	status := servertest.Do(t, app, http.MethodPost, "/api/quests/claim", "u1", fiber.Map{"questId": daily[0].ID}, &msg)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Quest not completed", msg.Message)

	status = servertest.Do(t, app, http.MethodPost, "/api/quests/progress", "u1",
		fiber.Map{"questType": TypeSaveCreation, "increment": 5}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, store.rows[0].IsCompleted)

	var res ClaimResult
	status = servertest.Do(t, app, http.MethodPost, "/api/quests/claim", "u1", fiber.Map{"questId": daily[0].ID}, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(15), res.Reward)

	status = servertest.Do(t, app, http.MethodPost, "/api/quests/claim", "u1", fiber.Map{"questId": 999}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
