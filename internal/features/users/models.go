// Package users keeps the local profile of identity-provider users.
// A user row and a credit account are created the first time a valid
// session token is seen.
package users

import (
	"strings"
	"time"
)

// User is an authenticated person. ID is the session token subject.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// Profile is the body of GET /api/auth/user.
type Profile struct {
	User
	Balance     int64 `json:"balance"`
	LoginStreak int   `json:"loginStreak"`
}

// DisplayNameOr returns the display name, the email's local part, or fallback.
func (u *User) DisplayNameOr(fallback string) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return fallback
}
