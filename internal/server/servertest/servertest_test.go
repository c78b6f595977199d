package servertest

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"storyforge.app/api/internal/server/middleware"
)

func TestNewAppUserIDOutlivesRequest(t *testing.T) {
	var owners []string
	app := NewApp(func(r fiber.Router) {
		r.Post("/things", func(c *fiber.Ctx) error {
			owners = append(owners, middleware.UserID(c))
			return c.SendStatus(fiber.StatusCreated)
		})
	})

	for _, user := range []string{"u1", "u2", "u3"} {
		assert.Equal(t, http.StatusCreated, Do(t, app, http.MethodPost, "/api/things", user, nil, nil))
	}
	assert.Equal(t, []string{"u1", "u2", "u3"}, owners)
}

func TestNewAppAnonymous(t *testing.T) {
	app := NewApp(func(r fiber.Router) {
		r.Get("/who", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"message": middleware.UserID(c)})
		})
	})

	var out Message
	assert.Equal(t, http.StatusOK, Do(t, app, http.MethodGet, "/api/who", "", nil, &out))
	assert.Empty(t, out.Message)
}
