// Package quests tracks per-user daily quests: lazy assignment, progress
// toward a template's requirement and the one-time reward claim.
//
// A quest instance only moves forward: assigned -> completed -> claimed.
package quests

import "time"

// Template is a catalog entry. ID is a stable text key.
type Template struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Requirement   int    `json:"requirement"`
	RewardCredits int64  `json:"rewardCredits"`
	QuestType     string `json:"questType"`
	IsActive      bool   `json:"isActive"`
	SortOrder     int    `json:"sortOrder"`
}

// UserQuest is one user's instance of a template for one day, joined with
// the template fields the client displays.
type UserQuest struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"userId"`
	QuestID     string     `json:"questId"`
	Day         time.Time  `json:"day"`
	Progress    int        `json:"progress"`
	IsCompleted bool       `json:"isCompleted"`
	IsClaimed   bool       `json:"isClaimed"`
	CompletedAt *time.Time `json:"completedAt"`
	ClaimedAt   *time.Time `json:"claimedAt"`

	Name          string `json:"name"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Requirement   int    `json:"requirement"`
	RewardCredits int64  `json:"rewardCredits"`
	QuestType     string `json:"questType"`
}

// ClaimResult is returned by a successful claim.
type ClaimResult struct {
	Quest   *UserQuest `json:"quest"`
	Reward  int64      `json:"reward"`
	Balance int64      `json:"balance"`
}

// Quest types reported by the client.
const (
	TypeGenerateCharacter   = "generate_character"
	TypeGenerateEnvironment = "generate_environment"
	TypeGenerateProp        = "generate_prop"
	TypeGenerateImage       = "generate_image"
	TypeSaveCreation        = "save_creation"
	TypePublishGallery      = "publish_gallery"
	TypeLikeGallery         = "like_gallery"
)

// DefaultTemplates seed an empty catalog.
var DefaultTemplates = []Template{
	{ID: "daily_character", Name: "Character Creator", Description: "Generate 2 characters", Icon: "user", Requirement: 2, RewardCredits: 10, QuestType: TypeGenerateCharacter, IsActive: true, SortOrder: 1},
	{ID: "daily_environment", Name: "World Builder", Description: "Generate an environment", Icon: "map", Requirement: 1, RewardCredits: 10, QuestType: TypeGenerateEnvironment, IsActive: true, SortOrder: 2},
	{ID: "daily_prop", Name: "Prop Master", Description: "Generate 3 props", Icon: "box", Requirement: 3, RewardCredits: 10, QuestType: TypeGenerateProp, IsActive: true, SortOrder: 3},
	{ID: "daily_save", Name: "Archivist", Description: "Save 5 creations to your wiki", Icon: "book", Requirement: 5, RewardCredits: 15, QuestType: TypeSaveCreation, IsActive: true, SortOrder: 4},
	{ID: "daily_publish", Name: "Show and Tell", Description: "Publish a creation to the gallery", Icon: "image", Requirement: 1, RewardCredits: 20, QuestType: TypePublishGallery, IsActive: true, SortOrder: 5},
}
