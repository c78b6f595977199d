package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/server/middleware"
)

const secret = "0123456789abcdef0123456789abcdef"

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type noopUsers struct{}

func (noopUsers) EnsureUser(context.Context, string, string, string, string) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:          ":0",
		CORSOrigins:       []string{"http://localhost:5173"},
		SessionSecret:     secret,
		SessionCookieName: "session",
		RateLimitRequests: 3,
		RateLimitWindow:   time.Minute,
		AIRequestTimeout:  time.Second,
	}
}

func newTestServer(t *testing.T, db Pinger) *Server {
	t.Helper()
	s := New(testConfig(), db, noopUsers{}, Routes{
		Public: []Registrar{func(r fiber.Router) {
			r.Get("/public", func(c *fiber.Ctx) error { return c.SendString("hello") })
		}},
		Protected: []Registrar{func(r fiber.Router) {
			r.Get("/whoami", func(c *fiber.Ctx) error { return c.SendString(middleware.UserID(c)) })
			r.Get("/panic", func(*fiber.Ctx) error { panic("boom") })
		}},
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func get(t *testing.T, s *Server, path, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

func TestRouting(t *testing.T) {
	s := newTestServer(t, fakeDB{})

	status, body := get(t, s, "/api/public", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", body)

	status, body = get(t, s, "/api/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, body)

	status, body = get(t, s, "/api/whoami", bearer(t, "user-42"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-42", body)
}

func TestPanicIsRecovered(t *testing.T) {
	s := newTestServer(t, fakeDB{})
	status, body := get(t, s, "/api/panic", bearer(t, "u1"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"message":"Internal server error"}`, body)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, fakeDB{})
	auth := bearer(t, "u1")
	for i := 0; i < 3; i++ {
		status, _ := get(t, s, "/api/whoami", auth)
		require.Equal(t, http.StatusOK, status)
	}
	status, body := get(t, s, "/api/whoami", auth)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.JSONEq(t, `{"message":"Too many requests"}`, body)
}

func TestHealthAndMetrics(t *testing.T) {
	status, body := get(t, newTestServer(t, fakeDB{}), "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	status, _ = get(t, newTestServer(t, fakeDB{err: errors.New("down")}), "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, body = get(t, newTestServer(t, fakeDB{}), "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "go_goroutines")
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	assert.False(t, corsConfig([]string{"*"}).AllowCredentials)
	assert.True(t, corsConfig([]string{"https://app.example.com"}).AllowCredentials)
}
