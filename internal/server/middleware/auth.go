// Package middleware holds the fiber middleware shared by every route group:
// session verification, rate limiting, request logging and panic recovery.
package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
)

const (
	localsUserID    = "userID"
	localsRequestID = "requestID"
)

// SessionClaims is the payload of the identity provider's session token.
// The subject is the user id.
type SessionClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// UserEnsurer records users on first sight.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, id, email, name, avatarURL string) error
}

// Auth verifies the HS256 session token from the Authorization header or
// the session cookie and stores the user id in the request locals.
func Auth(secret []byte, cookieName string, users UserEnsurer) fiber.Handler {
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			raw = c.Cookies(cookieName)
		}
		if raw == "" {
			return common.ErrUnauthorized
		}

		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, keyFunc,
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid || claims.Subject == "" {
			log.WithFields(log.Fields{
				"path": c.Path(),
				"ip":   c.IP(),
			}).WithError(err).Debug("Rejected session token")
			return common.ErrUnauthorized
		}

		if err := users.EnsureUser(c.UserContext(), claims.Subject, claims.Email, claims.Name, claims.Picture); err != nil {
			return err
		}

		SetUserID(c, claims.Subject)
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID returns the authenticated user id, or "" on public routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserID).(string)
	return id
}

// RequestID returns the id assigned by RequestLogger.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

// SetUserID marks the request as authenticated by id.
func SetUserID(c *fiber.Ctx, id string) {
	c.Locals(localsUserID, id)
}
