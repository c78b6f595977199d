// Package badges logs AI generation time and awards one-time milestone
// badges when a user's cumulative seconds cross a badge threshold.
package badges

import "time"

type Badge struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Icon             string `json:"icon"`
	ThresholdSeconds int64  `json:"thresholdSeconds"`
}

// UserBadge is an owned badge. Never revoked.
type UserBadge struct {
	Badge
	AwardedAt time.Time `json:"awardedAt"`
}

// CatalogEntry is a badge as shown to one user.
type CatalogEntry struct {
	Badge
	Owned     bool       `json:"owned"`
	AwardedAt *time.Time `json:"awardedAt"`
}

// Stats is the cumulative generation counter.
type Stats struct {
	UserID       string     `json:"userId"`
	TotalSeconds int64      `json:"totalSeconds"`
	SessionCount int64      `json:"sessionCount"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

// Session is one logged generation activity. Append-only.
type Session struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	ActivityType string    `json:"activityType"`
	Seconds      int64     `json:"seconds"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LogResult is returned after logging a session.
type LogResult struct {
	Stats     *Stats   `json:"stats"`
	NewBadges []*Badge `json:"newBadges"`
}

// MaxSessionSeconds caps a single logged session.
const MaxSessionSeconds = 3600

// DefaultBadges seed an empty catalog, ascending by threshold.
var DefaultBadges = []Badge{
	{ID: "first_spark", Name: "First Spark", Description: "Spend your first minute creating with AI", Icon: "sparkles", ThresholdSeconds: 60},
	{ID: "apprentice", Name: "Apprentice Weaver", Description: "10 minutes of AI-assisted creation", Icon: "feather", ThresholdSeconds: 600},
	{ID: "storyteller", Name: "Storyteller", Description: "One hour of AI-assisted creation", Icon: "book-open", ThresholdSeconds: 3600},
	{ID: "loremaster", Name: "Loremaster", Description: "Five hours of AI-assisted creation", Icon: "scroll", ThresholdSeconds: 18000},
	{ID: "world_architect", Name: "World Architect", Description: "Ten hours of AI-assisted creation", Icon: "globe", ThresholdSeconds: 36000},
}
