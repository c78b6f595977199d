// Package servertest builds fiber apps for handler tests.
package servertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/stretchr/testify/require"

	"storyforge.app/api/internal/server/middleware"
)

// UserHeader carries the acting user id in tests instead of a session token.
const UserHeader = "X-Test-User"

// NewApp returns an app with the production error handler. Requests carrying
// UserHeader are treated as authenticated by that user; register is called
// with the /api group.
func NewApp(register func(r fiber.Router)) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	api := app.Group("/api", func(c *fiber.Ctx) error {
		// Header values alias the request buffer, which fiber reuses.
		if id := c.Get(UserHeader); id != "" {
			middleware.SetUserID(c, utils.CopyString(id))
		}
		return c.Next()
	})
	register(api)
	return app
}

// Do sends a JSON request and decodes the JSON response into out (if non-nil).
func Do(t *testing.T, app *fiber.App, method, path, user string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

// Message is the error body shape.
type Message struct {
	Message string `json:"message"`
}

