// Package admin is the operator surface: password login with brute-force
// lockout, bearer sessions and catalog and credit management.
package admin

import "time"

// Session is an authenticated admin session. Only the SHA-256 of the
// token is stored.
type Session struct {
	ID           int64     `json:"id"`
	TokenHash    string    `json:"-"`
	IP           string    `json:"ip"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
	IsActive     bool      `json:"isActive"`
}

// LoginResult is returned by a successful login. Token goes into the
// X-Admin-Token header of later requests.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const (
	// TokenHeader carries the admin session token.
	TokenHeader = "X-Admin-Token"

	sessionTTL      = 24 * time.Hour
	maxFailedLogins = 3
	lockoutWindow   = time.Hour
	maxReasonLength = 200
)
