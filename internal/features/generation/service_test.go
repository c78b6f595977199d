package generation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge.app/api/internal/ai"
	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/features/badges"
	"storyforge.app/api/internal/features/economy"
	"storyforge.app/api/internal/server/servertest"
	"storyforge.app/api/internal/storage"
)

type fakeLedger struct {
	mu      sync.Mutex
	balance int64
	entries []economy.Transaction
}

func (f *fakeLedger) Spend(_ context.Context, userID string, amount int64, source, desc string) (*economy.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance < amount {
		return nil, common.ErrInsufficientCredits
	}
	f.balance -= amount
	t := economy.Transaction{UserID: userID, Amount: -amount, Kind: economy.KindSpend, Source: source, Description: desc, BalanceAfter: f.balance}
	f.entries = append(f.entries, t)
	return &t, nil
}

func (f *fakeLedger) Earn(_ context.Context, userID string, amount int64, source, desc string) (*economy.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance += amount
	t := economy.Transaction{UserID: userID, Amount: amount, Kind: economy.KindEarn, Source: source, Description: desc, BalanceAfter: f.balance}
	f.entries = append(f.entries, t)
	return &t, nil
}

func (f *fakeLedger) GetAccount(_ context.Context, userID string) (*economy.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &economy.Account{UserID: userID, Balance: f.balance}, nil
}

type fakeActivity struct {
	logged []string
	award  []*badges.Badge
}

func (f *fakeActivity) LogGenerationSession(_ context.Context, _ string, activity string, seconds int64) (*badges.LogResult, error) {
	f.logged = append(f.logged, activity)
	return &badges.LogResult{Stats: &badges.Stats{TotalSeconds: seconds}, NewBadges: f.award}, nil
}

type failingGenerator struct {
	calls int
}

func (g *failingGenerator) GenerateCreation(context.Context, common.Kind, string) (*ai.Draft, error) {
	g.calls++
	return nil, errors.New("model overloaded")
}

func (g *failingGenerator) GenerateImage(context.Context, common.Kind, string) (*ai.Image, error) {
	g.calls++
	return nil, errors.New("model overloaded")
}

func testConfig() *config.Config {
	return &config.Config{
		GenerationCostCharacter:   5,
		GenerationCostEnvironment: 5,
		GenerationCostProp:        3,
		GenerationCostImage:       10,
	}
}

func newTestService(balance int64, gen ai.Generator) (*Service, *fakeLedger, *fakeActivity) {
	ledger := &fakeLedger{balance: balance}
	activity := &fakeActivity{award: []*badges.Badge{}}
	svc := NewService(ledger, activity, gen, storage.DataURIStore{}, testConfig())
	return svc, ledger, activity
}

func TestGenerateChargesAndLogsActivity(t *testing.T) {
	svc, ledger, activity := newTestService(20, ai.NewMock())
	activity.award = []*badges.Badge{{ID: "first_spark"}}
	clock := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(1500 * time.Millisecond)
		return clock
	}

	res, err := svc.Generate(context.Background(), "u1", common.KindProp, "a lantern that eats shadows")
	require.NoError(t, err)
	assert.Equal(t, common.KindProp, res.Draft.Kind)
	assert.Equal(t, int64(3), res.Cost)
	assert.Equal(t, int64(17), res.Balance)
	assert.Equal(t, int64(2), res.Seconds)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, []string{"generate_prop"}, activity.logged)

	require.Len(t, ledger.entries, 1)
	assert.Equal(t, economy.SourceGeneration, ledger.entries[0].Source)
}

func TestGenerateRefundsOnFailure(t *testing.T) {
	gen := &failingGenerator{}
	svc, ledger, activity := newTestService(20, gen)

	_, err := svc.Generate(context.Background(), "u1", common.KindCharacter, "")
	require.Error(t, err)
	assert.False(t, common.IsValidationError(err))
	_, business := common.BusinessError(err)
	assert.False(t, business, "AI failures surface as 500")

	assert.Equal(t, int64(20), ledger.balance)
	require.Len(t, ledger.entries, 2)
	assert.Equal(t, economy.SourceGeneration, ledger.entries[0].Source)
	assert.Equal(t, economy.SourceGenerationRefund, ledger.entries[1].Source)
	assert.Empty(t, activity.logged)
}

func TestGenerateImageRefundsOnFailure(t *testing.T) {
	svc, ledger, _ := newTestService(20, &failingGenerator{})

	_, err := svc.GenerateImage(context.Background(), "u1", common.KindEnvironment, "misty harbour")
	require.Error(t, err)
	assert.Equal(t, int64(20), ledger.balance)
}

func TestGenerateInsufficientCreditsSkipsAI(t *testing.T) {
	gen := &failingGenerator{}
	svc, ledger, _ := newTestService(2, gen)

	_, err := svc.Generate(context.Background(), "u1", common.KindCharacter, "knight")
	assert.ErrorIs(t, err, common.ErrInsufficientCredits)
	assert.Zero(t, gen.calls)
	assert.Empty(t, ledger.entries)
}

func TestGenerateImageStoresDataURI(t *testing.T) {
	svc, _, activity := newTestService(20, ai.NewMock())

	res, err := svc.GenerateImage(context.Background(), "u1", common.KindCharacter, "a tall wizard")
	require.NoError(t, err)
	assert.Contains(t, res.ImageURL, "data:image/png;base64,")
	assert.Equal(t, int64(10), res.Balance)
	assert.Equal(t, []string{"generate_character_image"}, activity.logged)
}

func TestSessionSeconds(t *testing.T) {
	assert.Equal(t, int64(1), sessionSeconds(200*time.Millisecond))
	assert.Equal(t, int64(3), sessionSeconds(2100*time.Millisecond))
	assert.Equal(t, int64(badges.MaxSessionSeconds), sessionSeconds(2*time.Hour))
}

func TestGenerateHandlers(t *testing.T) {
	svc, _, _ := newTestService(4, &failingGenerator{})
	app := servertest.NewApp(NewHandler(svc).Register)

	var msg servertest.Message
	status := servertest.Do(t, app, http.MethodPost, "/api/generate/characters", "u1", fiber.Map{"prompt": "x"}, &msg)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Insufficient credits", msg.Message)

	status = servertest.Do(t, app, http.MethodPost, "/api/generate/prop", "u1", fiber.Map{"prompt": "x"}, &msg)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", msg.Message)

	status = servertest.Do(t, app, http.MethodPost, "/api/generate/dragons", "u1", fiber.Map{"prompt": "x"}, &msg)
	assert.Equal(t, http.StatusNotFound, status)

	var costs map[string]int64
	require.Equal(t, http.StatusOK, servertest.Do(t, app, http.MethodGet, "/api/generate/costs", "u1", nil, &costs))
	assert.Equal(t, int64(3), costs["prop"])
	assert.Equal(t, int64(10), costs["image"])
}
