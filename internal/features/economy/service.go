package economy

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/metrics"
)

// Store is the persistence the ledger needs. *Repository implements it.
type Store interface {
	CreateAccount(ctx context.Context, userID string) (bool, error)
	GetAccount(ctx context.Context, userID string) (*Account, error)
	GetAccountForUpdate(ctx context.Context, userID string) (*Account, error)
	SaveBalance(ctx context.Context, a *Account) error
	SaveStreak(ctx context.Context, userID string, streak, longest int, day time.Time) error
	InsertTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*Transaction, error)
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the credit ledger. Every mutation locks the account row and
// appends a transaction in the same database transaction.
type Service struct {
	store           Store
	tx              Transactor
	rewards         RewardTable
	startingBalance int64
	loc             *time.Location
	now             common.Clock
}

func NewService(store Store, tx Transactor, cfg *config.Config) *Service {
	rewards := RewardTable(cfg.DailyRewardTable)
	if len(rewards) == 0 {
		rewards = DefaultRewardTable
	}
	return &Service{
		store:           store,
		tx:              tx,
		rewards:         rewards,
		startingBalance: cfg.EconomyStartingBalance,
		loc:             cfg.Location(),
		now:             time.Now,
	}
}

// EnsureAccount creates the account on first sight and credits the signup bonus.
func (s *Service) EnsureAccount(ctx context.Context, userID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := s.store.CreateAccount(ctx, userID)
		if err != nil {
			return err
		}
		if !created || s.startingBalance <= 0 {
			return nil
		}
		_, err = s.AdjustCredits(ctx, userID, s.startingBalance, KindEarn, SourceSignupBonus, "Welcome bonus")
		return err
	})
}

func (s *Service) GetAccount(ctx context.Context, userID string) (*Account, error) {
	return s.store.GetAccount(ctx, userID)
}

// AdjustCredits applies a signed delta to the user's balance and appends
// a ledger entry. A spend that would leave the balance negative fails with
// ErrInsufficientCredits and changes nothing.
func (s *Service) AdjustCredits(ctx context.Context, userID string, delta int64, kind, source, description string) (*Transaction, error) {
	if err := validateAdjust(delta, kind, source); err != nil {
		return nil, err
	}

	var entry *Transaction
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := s.store.GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if acc.Balance+delta < 0 {
			metrics.InsufficientCredits.Inc()
			return common.ErrInsufficientCredits
		}

		acc.Balance += delta
		if delta > 0 {
			acc.TotalEarned += delta
		} else {
			acc.TotalSpent -= delta
		}
		if err := s.store.SaveBalance(ctx, acc); err != nil {
			return err
		}

		entry = &Transaction{
			UserID:       userID,
			Amount:       delta,
			Kind:         kind,
			Source:       source,
			Description:  strings.TrimSpace(description),
			BalanceAfter: acc.Balance,
		}
		return s.store.InsertTransaction(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	abs := delta
	if abs < 0 {
		abs = -abs
	}
	metrics.CreditsMoved.WithLabelValues(kind, source).Add(float64(abs))
	log.WithFields(log.Fields{
		"user_id": userID,
		"delta":   delta,
		"source":  source,
		"balance": entry.BalanceAfter,
	}).Debug("Credits adjusted")
	return entry, nil
}

func validateAdjust(delta int64, kind, source string) error {
	switch {
	case delta == 0:
		return common.ErrInvalidAmount
	case kind == KindEarn && delta < 0, kind == KindSpend && delta > 0:
		return common.ErrInvalidAmount
	case kind != KindEarn && kind != KindSpend:
		return common.Invalid("unknown transaction kind %q", kind)
	case strings.TrimSpace(source) == "":
		return common.Invalid("source is required")
	}
	return nil
}

// Spend debits amount (> 0) from the user.
func (s *Service) Spend(ctx context.Context, userID string, amount int64, source, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	return s.AdjustCredits(ctx, userID, -amount, KindSpend, source, description)
}

// Earn credits amount (> 0) to the user.
func (s *Service) Earn(ctx context.Context, userID string, amount int64, source, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	return s.AdjustCredits(ctx, userID, amount, KindEarn, source, description)
}

// ClaimDailyLoginReward pays the once-per-day login reward.
// The streak grows by one when the previous claim was yesterday and
// restarts at 1 otherwise. A second claim on the same day returns
// ErrDailyAlreadyClaimed.
func (s *Service) ClaimDailyLoginReward(ctx context.Context, userID string) (*DailyReward, error) {
	today := common.CalendarDay(s.now(), s.loc)

	var reward *DailyReward
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := s.store.GetAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if acc.LastDailyReward != nil && acc.LastDailyReward.Equal(today) {
			return common.ErrDailyAlreadyClaimed
		}

		streak := nextStreak(acc, today)
		longest := acc.LongestStreak
		if streak > longest {
			longest = streak
		}
		if err := s.store.SaveStreak(ctx, userID, streak, longest, today); err != nil {
			return err
		}

		amount := s.rewards.For(streak)
		entry, err := s.AdjustCredits(ctx, userID, amount, KindEarn, SourceDailyLogin, rewardDescription(streak))
		if err != nil {
			return err
		}
		reward = &DailyReward{Amount: amount, Streak: streak, Balance: entry.BalanceAfter}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DailyClaims.Inc()
	log.WithFields(log.Fields{
		"user_id": userID,
		"streak":  reward.Streak,
		"amount":  reward.Amount,
	}).Info("Daily reward claimed")
	return reward, nil
}

// DailyStatus reports whether today's reward is claimable and what it pays.
func (s *Service) DailyStatus(ctx context.Context, userID string) (*DailyStatus, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := common.CalendarDay(s.now(), s.loc)

	st := &DailyStatus{LastClaim: acc.LastDailyReward, Streak: acc.LoginStreak}
	if acc.LastDailyReward != nil && acc.LastDailyReward.Equal(today) {
		return st, nil
	}
	// A broken streak is only reset on the next claim; report it as such now.
	if acc.LastDailyReward == nil || !common.IsDayAfter(today, *acc.LastDailyReward) {
		st.Streak = 0
	}
	st.Available = true
	st.NextStreak = nextStreak(acc, today)
	st.NextAmount = s.rewards.For(st.NextStreak)
	return st, nil
}

func nextStreak(acc *Account, today time.Time) int {
	if acc.LastDailyReward != nil && common.IsDayAfter(today, *acc.LastDailyReward) {
		return acc.LoginStreak + 1
	}
	return 1
}

// ListTransactions returns a page of the user's ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*Transaction, error) {
	limit, offset = common.ClampPage(limit, offset, 20, 100)
	txs, err := s.store.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transactions of %s: %w", userID, err)
	}
	return txs, nil
}
