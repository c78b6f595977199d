package economy

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge.app/api/internal/server/servertest"
)

func newTestApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	svc, store := newTestService(t, time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	_, err := store.CreateAccount(context.Background(), "u1")
	require.NoError(t, err)
	app := servertest.NewApp(NewHandler(svc).Register)
	return app, svc
}

func TestSpendHandler(t *testing.T) {
	t.Run("insufficient credits is a 400 and balance stays", func(t *testing.T) {
		app, svc := newTestApp(t)
		_, err := svc.Earn(context.Background(), "u1", 5, "test", "")
		require.NoError(t, err)

		var msg servertest.Message
		status := servertest.Do(t, app, http.MethodPost, "/api/credits/spend", "u1",
			fiber.Map{"amount": 10, "source": "generation", "description": "portrait"}, &msg)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Insufficient credits", msg.Message)

		acc, err := svc.GetAccount(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), acc.Balance)
	})

	t.Run("successful spend returns the new balance", func(t *testing.T) {
		app, svc := newTestApp(t)
		_, _ = svc.Earn(context.Background(), "u1", 20, "test", "")

		var body struct {
			Balance int64 `json:"balance"`
		}
		status := servertest.Do(t, app, http.MethodPost, "/api/credits/spend", "u1",
			fiber.Map{"amount": 8, "source": "generation"}, &body)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(12), body.Balance)
	})

	t.Run("non-positive amount is a validation error", func(t *testing.T) {
		app, _ := newTestApp(t)
		var msg servertest.Message
		status := servertest.Do(t, app, http.MethodPost, "/api/credits/spend", "u1",
			fiber.Map{"amount": -3, "source": "generation"}, &msg)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, msg.Message, "Invalid request")
	})
}

func TestDailyLoginHandler(t *testing.T) {
	app, _ := newTestApp(t)

	var reward DailyReward
	status := servertest.Do(t, app, http.MethodPost, "/api/credits/daily-login", "u1", nil, &reward)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, reward.Streak)
	assert.Equal(t, int64(10), reward.Amount)

	var msg servertest.Message
	status = servertest.Do(t, app, http.MethodPost, "/api/credits/daily-login", "u1", nil, &msg)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Daily reward already claimed", msg.Message)
}

func TestGetAccountHandlerUnknownUser(t *testing.T) {
	app, _ := newTestApp(t)
	status := servertest.Do(t, app, http.MethodGet, "/api/credits", "nobody", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
