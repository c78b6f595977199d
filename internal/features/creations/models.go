// Package creations is the user's private wiki of characters, environments
// and props. Every read and write is scoped to the owner.
package creations

import (
	"time"

	"storyforge.app/api/internal/common"
)

const (
	MaxNameLength    = 120
	MaxSummaryLength = 2000
	MaxFieldLength   = 4000
	MaxTags          = 20
	MaxTagLength     = 40
	MaxImageURL      = 2048
)

type Creation struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"userId"`
	Kind      common.Kind       `json:"kind"`
	Name      string            `json:"name"`
	Summary   string            `json:"summary"`
	Fields    map[string]string `json:"fields"`
	ImageURL  string            `json:"imageUrl"`
	Tags      []string          `json:"tags"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Input is a create request, or a full replacement after a patch is merged.
type Input struct {
	Name     string            `json:"name"`
	Summary  string            `json:"summary"`
	Fields   map[string]string `json:"fields"`
	ImageURL string            `json:"imageUrl"`
	Tags     []string          `json:"tags"`
}

// Patch changes only the fields that are present. A field set to ""
// in Fields is removed.
type Patch struct {
	Name     *string           `json:"name"`
	Summary  *string           `json:"summary"`
	Fields   map[string]string `json:"fields"`
	ImageURL *string           `json:"imageUrl"`
	Tags     *[]string         `json:"tags"`
}
