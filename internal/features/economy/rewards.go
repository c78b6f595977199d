package economy

import "fmt"

// RewardTable maps a login streak to its daily reward.
// Entry i pays for streak day i+1; the last entry covers every longer streak.
//
//	Day 1: 10   Day 4: 25   Day 7+: 40
//	Day 2: 15   Day 5: 30
//	Day 3: 20   Day 6: 35
type RewardTable []int64

// DefaultRewardTable is used when no table is configured.
var DefaultRewardTable = RewardTable{10, 15, 20, 25, 30, 35, 40}

// For returns the reward for the given (post-increment) streak.
func (t RewardTable) For(streak int) int64 {
	if len(t) == 0 {
		return 0
	}
	if streak < 1 {
		streak = 1
	}
	if streak > len(t) {
		return t[len(t)-1]
	}
	return t[streak-1]
}

// rewardDescription is the ledger description of a daily login credit.
func rewardDescription(streak int) string {
	return fmt.Sprintf("Daily login reward - day %d", streak)
}
