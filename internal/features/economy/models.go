// Package economy implements the credit ledger: balances, the append-only
// transaction log and the daily login reward.
package economy

import "time"

// Account is a user's credit balance. Exactly one row per user.
// Balance always equals TotalEarned - TotalSpent and never drops below zero.
type Account struct {
	UserID          string     `json:"userId"`
	Balance         int64      `json:"balance"`
	TotalEarned     int64      `json:"totalEarned"`
	TotalSpent      int64      `json:"totalSpent"`
	LoginStreak     int        `json:"loginStreak"`
	LongestStreak   int        `json:"longestStreak"`
	LastDailyReward *time.Time `json:"lastDailyReward"` // calendar day, midnight UTC
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Transaction is one ledger entry. Amount is the signed delta.
type Transaction struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	Amount       int64     `json:"amount"`
	Kind         string    `json:"kind"`
	Source       string    `json:"source"`
	Description  string    `json:"description"`
	BalanceAfter int64     `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	KindEarn  = "earn"
	KindSpend = "spend"
)

// Transaction sources
const (
	SourceSignupBonus      = "signup_bonus"
	SourceDailyLogin       = "daily_login"
	SourceQuestReward      = "quest_reward"
	SourceGeneration       = "generation"
	SourceGenerationRefund = "generation_refund"
	SourceAdminGrant       = "admin_grant"
	SourceAdminTake        = "admin_take"
)

// DailyReward is the outcome of a successful daily login claim.
type DailyReward struct {
	Amount  int64 `json:"amount"`
	Streak  int   `json:"streak"`
	Balance int64 `json:"balance"`
}

// DailyStatus tells the client whether today's reward can still be claimed.
type DailyStatus struct {
	Available  bool       `json:"available"`
	Streak     int        `json:"streak"`
	NextStreak int        `json:"nextStreak"`
	NextAmount int64      `json:"nextAmount"`
	LastClaim  *time.Time `json:"lastClaim"`
}
