package badges

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
	"storyforge.app/api/internal/db/dbtest"
	"storyforge.app/api/internal/server/servertest"
)

type memStore struct {
	mu       sync.Mutex
	badges   map[string]*Badge
	owned    map[string]map[string]time.Time
	stats    map[string]*Stats
	sessions []*Session
}

func newMemStore(badges ...Badge) *memStore {
	m := &memStore{
		badges: make(map[string]*Badge),
		owned:  make(map[string]map[string]time.Time),
		stats:  make(map[string]*Stats),
	}
	for i := range badges {
		b := badges[i]
		m.badges[b.ID] = &b
	}
	return m
}

func (m *memStore) InsertSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.sessions) + 1)
	s.CreatedAt = time.Now()
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memStore) AddSeconds(_ context.Context, userID string, seconds int64) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[userID]
	if !ok {
		st = &Stats{UserID: userID}
		m.stats[userID] = st
	}
	st.TotalSeconds += seconds
	st.SessionCount++
	cp := *st
	return &cp, nil
}

func (m *memStore) GetStats(_ context.Context, userID string) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.stats[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return &Stats{UserID: userID}, nil
}

func (m *memStore) ListBadges(_ context.Context) ([]*Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Badge
	for _, b := range m.badges {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThresholdSeconds < out[j].ThresholdSeconds })
	return out, nil
}

func (m *memStore) AwardBadge(_ context.Context, userID, badgeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owned[userID] == nil {
		m.owned[userID] = make(map[string]time.Time)
	}
	if _, ok := m.owned[userID][badgeID]; ok {
		return false, nil
	}
	m.owned[userID][badgeID] = time.Now()
	return true, nil
}

func (m *memStore) ListUserBadges(_ context.Context, userID string) ([]*UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*UserBadge
	for id, at := range m.owned[userID] {
		out = append(out, &UserBadge{Badge: *m.badges[id], AwardedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThresholdSeconds < out[j].ThresholdSeconds })
	return out, nil
}

func (m *memStore) UpsertBadge(_ context.Context, b *Badge, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.badges[b.ID]; ok && !overwrite {
		return nil
	}
	cp := *b
	m.badges[b.ID] = &cp
	return nil
}

func (m *memStore) DeleteBadge(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.badges[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.badges, id)
	return nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore(DefaultBadges...)
	return NewService(store, &dbtest.Tx{}), store
}

func badgeIDs(bs []*Badge) []string {
	ids := make([]string, 0, len(bs))
	for _, b := range bs {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestLogGenerationSession(t *testing.T) {
	ctx := context.Background()

	t.Run("awards each threshold once as the total grows", func(t *testing.T) {
		svc, store := newTestService()

		res, err := svc.LogGenerationSession(ctx, "u1", "generate_character", 30)
		require.NoError(t, err)
		assert.Empty(t, res.NewBadges)
		assert.Equal(t, int64(30), res.Stats.TotalSeconds)

		res, err = svc.LogGenerationSession(ctx, "u1", "generate_character", 30)
		require.NoError(t, err)
		assert.Equal(t, []string{"first_spark"}, badgeIDs(res.NewBadges))

		res, err = svc.LogGenerationSession(ctx, "u1", "generate_prop", 10)
		require.NoError(t, err)
		assert.Empty(t, res.NewBadges)

		assert.Len(t, store.owned["u1"], 1)
		assert.Len(t, store.sessions, 3)
		assert.Equal(t, int64(3), res.Stats.SessionCount)
	})

	t.Run("one session can cross several thresholds", func(t *testing.T) {
		svc, _ := newTestService()
		res, err := svc.LogGenerationSession(ctx, "u1", "generate_image", 3600)
		require.NoError(t, err)
		assert.Equal(t, []string{"first_spark", "apprentice", "storyteller"}, badgeIDs(res.NewBadges))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc, store := newTestService()
		for _, secs := range []int64{0, -5, MaxSessionSeconds + 1} {
			_, err := svc.LogGenerationSession(ctx, "u1", "generate_prop", secs)
			assert.True(t, common.IsValidationError(err), secs)
		}
		_, err := svc.LogGenerationSession(ctx, "u1", "", 5)
		assert.True(t, common.IsValidationError(err))
		assert.Empty(t, store.sessions)
	})
}

func TestAwardingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.LogGenerationSession(ctx, "u1", "generate_character", 60)
		}()
	}
	wg.Wait()

	// 600s in total: first_spark and apprentice, each owned once.
	owned, err := svc.UserBadges(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "first_spark", owned[0].ID)
	assert.Equal(t, "apprentice", owned[1].ID)

	again, err := svc.awardReached(ctx, "u1", 600)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestCatalogMarksOwned(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	_, err := svc.LogGenerationSession(ctx, "u1", "generate_prop", 90)
	require.NoError(t, err)

	entries, err := svc.Catalog(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, len(DefaultBadges))
	assert.True(t, entries[0].Owned)
	assert.NotNil(t, entries[0].AwardedAt)
	assert.False(t, entries[1].Owned)
}

func TestSaveBadgeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	assert.True(t, common.IsValidationError(svc.SaveBadge(ctx, &Badge{ID: "x", Name: "X"})))
	require.NoError(t, svc.SaveBadge(ctx, &Badge{ID: "marathon", Name: "Marathon", ThresholdSeconds: 100000}))
	require.ErrorIs(t, svc.DeleteBadge(ctx, "missing"), common.ErrNotFound)
}

func TestSessionHandler(t *testing.T) {
	svc, _ := newTestService()
	app := servertest.NewApp(NewHandler(svc).Register)

	var res LogResult
	status := servertest.Do(t, app, http.MethodPost, "/api/generation/sessions", "u1",
		fiber.Map{"activityType": "generate_character", "seconds": 75}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"first_spark"}, badgeIDs(res.NewBadges))

	var st Stats
	require.Equal(t, http.StatusOK, servertest.Do(t, app, http.MethodGet, "/api/generation/stats", "u1", nil, &st))
	assert.Equal(t, int64(75), st.TotalSeconds)

	status = servertest.Do(t, app, http.MethodPost, "/api/generation/sessions", "u1",
		fiber.Map{"activityType": "generate_character", "seconds": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
