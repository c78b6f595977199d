// Package generation runs paid AI generations. The cost is charged before
// the AI call and refunded when the call fails.
package generation

import (
	"storyforge.app/api/internal/ai"
	"storyforge.app/api/internal/features/badges"
)

// Result is returned by a successful text generation.
type Result struct {
	Draft     *ai.Draft       `json:"draft"`
	Cost      int64           `json:"cost"`
	Balance   int64           `json:"balance"`
	Seconds   int64           `json:"seconds"`
	NewBadges []*badges.Badge `json:"newBadges"`
}

// ImageResult is returned by a successful image generation.
type ImageResult struct {
	ImageURL  string          `json:"imageUrl"`
	Cost      int64           `json:"cost"`
	Balance   int64           `json:"balance"`
	Seconds   int64           `json:"seconds"`
	NewBadges []*badges.Badge `json:"newBadges"`
}

const (
	maxPromptLength      = 2000
	maxDescriptionLength = 4000
)
