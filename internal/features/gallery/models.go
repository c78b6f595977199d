// Package gallery is the public showcase. Users publish their own creations;
// everyone can browse, like and view them.
package gallery

import (
	"time"

	"storyforge.app/api/internal/common"
)

type Item struct {
	ID          int64       `json:"id"`
	UserID      string      `json:"userId"`
	ItemType    common.Kind `json:"itemType"`
	ItemID      int64       `json:"itemId"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ImageURL    string      `json:"imageUrl"`
	LikeCount   int64       `json:"likeCount"`
	ViewCount   int64       `json:"viewCount"`
	CreatedAt   time.Time   `json:"createdAt"`
	LikedByMe   bool        `json:"likedByMe"`
}

// PublishRequest is the body of POST /api/gallery. Title and description
// default to the creation's name and summary.
type PublishRequest struct {
	ItemType    string `json:"itemType"`
	ItemID      int64  `json:"itemId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LikeState is returned by like and unlike.
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

const (
	maxTitleLength       = 120
	maxDescriptionLength = 1000
)
