package quests

import (
	"context"
	"fmt"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/features/economy"
	"storyforge.app/api/internal/metrics"
)

// Store is the persistence the tracker needs. *Repository implements it.
type Store interface {
	AssignDaily(ctx context.Context, userID string, day time.Time) (int64, error)
	ListForDay(ctx context.Context, userID string, day time.Time) ([]*UserQuest, error)
	OpenByTypeForUpdate(ctx context.Context, userID string, day time.Time, questType string) ([]*UserQuest, error)
	SaveProgress(ctx context.Context, q *UserQuest) error
	GetForUpdate(ctx context.Context, userID string, id int64) (*UserQuest, error)
	MarkClaimed(ctx context.Context, id int64, at time.Time) error
	PurgeBefore(ctx context.Context, day time.Time) (int64, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]*Template, error)
	UpsertTemplate(ctx context.Context, t *Template, overwrite bool) error
	SetTemplateActive(ctx context.Context, id string, active bool) error
}

// Ledger credits quest rewards.
type Ledger interface {
	Earn(ctx context.Context, userID string, amount int64, source, description string) (*economy.Transaction, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the quest tracker.
type Service struct {
	store  Store
	ledger Ledger
	tx     Transactor
	loc    *time.Location
	now    common.Clock
}

func NewService(store Store, ledger Ledger, tx Transactor, cfg *config.Config) *Service {
	return &Service{
		store:  store,
		ledger: ledger,
		tx:     tx,
		loc:    cfg.Location(),
		now:    time.Now,
	}
}

func (s *Service) today() time.Time {
	return common.CalendarDay(s.now(), s.loc)
}

// AssignDailyQuests makes sure the user has a row for every active template on day.
func (s *Service) AssignDailyQuests(ctx context.Context, userID string, day time.Time) error {
	n, err := s.store.AssignDaily(ctx, userID, day)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithFields(log.Fields{"user_id": userID, "day": day.Format(common.DateLayout), "count": n}).Debug("Daily quests assigned")
	}
	return nil
}

// TodayQuests assigns today's quests if needed and lists them.
func (s *Service) TodayQuests(ctx context.Context, userID string) ([]*UserQuest, error) {
	day := s.today()
	if err := s.AssignDailyQuests(ctx, userID, day); err != nil {
		return nil, err
	}
	return s.store.ListForDay(ctx, userID, day)
}

// UpdateQuestProgress adds increment to every open quest of questType for
// today. Progress is clamped at the requirement and a quest completes the
// moment it reaches it. Rewards are never claimed automatically.
// Returns the quests that changed.
func (s *Service) UpdateQuestProgress(ctx context.Context, userID, questType string, increment int) ([]*UserQuest, error) {
	if increment <= 0 {
		return nil, common.Invalid("increment must be positive")
	}
	if !questTypePattern.MatchString(questType) {
		return nil, common.Invalid("unknown quest type")
	}

	day := s.today()
	var changed []*UserQuest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.AssignDailyQuests(ctx, userID, day); err != nil {
			return err
		}
		open, err := s.store.OpenByTypeForUpdate(ctx, userID, day, questType)
		if err != nil {
			return err
		}
		for _, q := range open {
			if !applyProgress(q, increment, s.now()) {
				continue
			}
			if err := s.store.SaveProgress(ctx, q); err != nil {
				return err
			}
			changed = append(changed, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, q := range changed {
		if q.IsCompleted {
			metrics.QuestEvents.WithLabelValues("completed").Inc()
			log.WithFields(log.Fields{"user_id": userID, "quest": q.QuestID}).Info("Quest completed")
		}
	}
	return changed, nil
}

// applyProgress advances q and reports whether anything changed.
func applyProgress(q *UserQuest, increment int, now time.Time) bool {
	if q.IsCompleted || q.Progress >= q.Requirement {
		return false
	}
	q.Progress += increment
	if q.Progress >= q.Requirement {
		q.Progress = q.Requirement
		q.IsCompleted = true
		q.CompletedAt = &now
	}
	return true
}

// ClaimQuestReward moves a completed quest to claimed and credits its reward
// in the same transaction. Quests from earlier days stay claimable.
func (s *Service) ClaimQuestReward(ctx context.Context, userID string, questID int64) (*ClaimResult, error) {
	var res *ClaimResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		q, err := s.store.GetForUpdate(ctx, userID, questID)
		if err != nil {
			return err
		}
		if q.IsClaimed {
			return common.ErrQuestAlreadyClaimed
		}
		if !q.IsCompleted {
			return common.ErrQuestNotCompleted
		}

		now := s.now()
		if err := s.store.MarkClaimed(ctx, q.ID, now); err != nil {
			return err
		}
		q.IsClaimed = true
		q.ClaimedAt = &now

		res = &ClaimResult{Quest: q}
		if q.RewardCredits > 0 {
			entry, err := s.ledger.Earn(ctx, userID, q.RewardCredits, economy.SourceQuestReward, "Quest reward: "+q.Name)
			if err != nil {
				return fmt.Errorf("credit quest reward: %w", err)
			}
			res.Reward = q.RewardCredits
			res.Balance = entry.BalanceAfter
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.QuestEvents.WithLabelValues("claimed").Inc()
	log.WithFields(log.Fields{
		"user_id": userID,
		"quest":   res.Quest.QuestID,
		"reward":  res.Reward,
	}).Info("Quest reward claimed")
	return res, nil
}

// PurgeOld removes quest rows older than retentionDays.
func (s *Service) PurgeOld(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.today().AddDate(0, 0, -retentionDays)
	return s.store.PurgeBefore(ctx, cutoff)
}

// --- Catalog ---

var (
	templateIDPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)
	questTypePattern  = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)
)

func (s *Service) ListTemplates(ctx context.Context, activeOnly bool) ([]*Template, error) {
	return s.store.ListTemplates(ctx, activeOnly)
}

// SaveTemplate validates and upserts a catalog entry.
func (s *Service) SaveTemplate(ctx context.Context, t *Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	return s.store.UpsertTemplate(ctx, t, true)
}

func (s *Service) SetTemplateActive(ctx context.Context, id string, active bool) error {
	return s.store.SetTemplateActive(ctx, id, active)
}

// SeedDefaults inserts DefaultTemplates that are not in the catalog yet.
func (s *Service) SeedDefaults(ctx context.Context) error {
	for i := range DefaultTemplates {
		t := DefaultTemplates[i]
		if err := s.store.UpsertTemplate(ctx, &t, false); err != nil {
			return err
		}
	}
	return nil
}

func validateTemplate(t *Template) error {
	switch {
	case !templateIDPattern.MatchString(t.ID):
		return common.Invalid("id must match [a-z0-9_]{1,64}")
	case t.Name == "":
		return common.Invalid("name is required")
	case t.Requirement < 1:
		return common.Invalid("requirement must be at least 1")
	case t.RewardCredits < 0:
		return common.Invalid("rewardCredits must not be negative")
	case !questTypePattern.MatchString(t.QuestType):
		return common.Invalid("questType must match [a-z0-9_]{1,64}")
	}
	return nil
}
