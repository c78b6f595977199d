package generation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/ai"
	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/features/badges"
	"storyforge.app/api/internal/features/economy"
	"storyforge.app/api/internal/metrics"
	"storyforge.app/api/internal/storage"
)

// Ledger charges and refunds generations.
type Ledger interface {
	Spend(ctx context.Context, userID string, amount int64, source, description string) (*economy.Transaction, error)
	Earn(ctx context.Context, userID string, amount int64, source, description string) (*economy.Transaction, error)
	GetAccount(ctx context.Context, userID string) (*economy.Account, error)
}

// Activity logs generation time toward badges.
type Activity interface {
	LogGenerationSession(ctx context.Context, userID, activityType string, seconds int64) (*badges.LogResult, error)
}

type Service struct {
	ledger    Ledger
	activity  Activity
	generator ai.Generator
	images    storage.ImageStore
	costs     map[common.Kind]int64
	imageCost int64
	now       common.Clock
}

func NewService(ledger Ledger, activity Activity, generator ai.Generator, images storage.ImageStore, cfg *config.Config) *Service {
	return &Service{
		ledger:    ledger,
		activity:  activity,
		generator: generator,
		images:    images,
		costs: map[common.Kind]int64{
			common.KindCharacter:   cfg.GenerationCostCharacter,
			common.KindEnvironment: cfg.GenerationCostEnvironment,
			common.KindProp:        cfg.GenerationCostProp,
		},
		imageCost: cfg.GenerationCostImage,
		now:       time.Now,
	}
}

// Cost returns the price of a text generation of kind.
func (s *Service) Cost(kind common.Kind) int64 {
	return s.costs[kind]
}

// Generate drafts a creation of kind from prompt.
func (s *Service) Generate(ctx context.Context, userID string, kind common.Kind, prompt string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if utf8.RuneCountInString(prompt) > maxPromptLength {
		return nil, common.Invalid("prompt must be at most %d characters", maxPromptLength)
	}

	cost := s.costs[kind]
	balance, err := s.charge(ctx, userID, cost, fmt.Sprintf("Generate %s", kind))
	if err != nil {
		return nil, err
	}

	start := s.now()
	draft, err := s.generator.GenerateCreation(ctx, kind, prompt)
	elapsed := s.now().Sub(start)
	metrics.GenerationDuration.WithLabelValues("text").Observe(elapsed.Seconds())
	if err != nil {
		metrics.Generations.WithLabelValues(string(kind), "text", "error").Inc()
		s.refund(ctx, userID, kind, cost)
		return nil, fmt.Errorf("generate %s: %w", kind, err)
	}
	metrics.Generations.WithLabelValues(string(kind), "text", "success").Inc()

	res := &Result{Draft: draft, Cost: cost, Balance: balance, Seconds: sessionSeconds(elapsed)}
	res.NewBadges = s.logActivity(ctx, userID, "generate_"+string(kind), res.Seconds)

	log.WithFields(log.Fields{
		"user_id":  userID,
		"kind":     kind,
		"cost":     cost,
		"fallback": draft.Fallback,
		"seconds":  res.Seconds,
	}).Info("Creation generated")
	return res, nil
}

// GenerateImage renders an illustration of a creation and stores it.
func (s *Service) GenerateImage(ctx context.Context, userID string, kind common.Kind, description string) (*ImageResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, common.Invalid("description is required")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, common.Invalid("description must be at most %d characters", maxDescriptionLength)
	}

	cost := s.imageCost
	balance, err := s.charge(ctx, userID, cost, fmt.Sprintf("Illustrate %s", kind))
	if err != nil {
		return nil, err
	}

	start := s.now()
	url, err := s.renderAndStore(ctx, kind, description)
	elapsed := s.now().Sub(start)
	metrics.GenerationDuration.WithLabelValues("image").Observe(elapsed.Seconds())
	if err != nil {
		metrics.Generations.WithLabelValues(string(kind), "image", "error").Inc()
		s.refund(ctx, userID, kind, cost)
		return nil, fmt.Errorf("generate %s image: %w", kind, err)
	}
	metrics.Generations.WithLabelValues(string(kind), "image", "success").Inc()

	res := &ImageResult{ImageURL: url, Cost: cost, Balance: balance, Seconds: sessionSeconds(elapsed)}
	res.NewBadges = s.logActivity(ctx, userID, "generate_"+string(kind)+"_image", res.Seconds)

	log.WithFields(log.Fields{
		"user_id": userID,
		"kind":    kind,
		"cost":    cost,
		"seconds": res.Seconds,
	}).Info("Image generated")
	return res, nil
}

func (s *Service) renderAndStore(ctx context.Context, kind common.Kind, description string) (string, error) {
	img, err := s.generator.GenerateImage(ctx, kind, description)
	if err != nil {
		return "", err
	}
	return s.images.Save(ctx, img.Bytes, img.MimeType)
}

// charge debits cost and returns the balance after it. A zero cost is free.
func (s *Service) charge(ctx context.Context, userID string, cost int64, description string) (int64, error) {
	if cost == 0 {
		acc, err := s.ledger.GetAccount(ctx, userID)
		if err != nil {
			return 0, err
		}
		return acc.Balance, nil
	}
	entry, err := s.ledger.Spend(ctx, userID, cost, economy.SourceGeneration, description)
	if err != nil {
		return 0, err
	}
	return entry.BalanceAfter, nil
}

// refund returns the cost of a failed generation. It runs even if the
// request context is already cancelled.
func (s *Service) refund(ctx context.Context, userID string, kind common.Kind, cost int64) {
	if cost == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if _, err := s.ledger.Earn(ctx, userID, cost, economy.SourceGenerationRefund, fmt.Sprintf("Refund: %s generation failed", kind)); err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"kind":    kind,
			"amount":  cost,
		}).WithError(err).Error("Generation refund failed")
		return
	}
	log.WithFields(log.Fields{"user_id": userID, "kind": kind, "amount": cost}).Warn("Generation refunded")
}

// logActivity credits generation time toward badges. Failures are logged;
// the generation itself already succeeded.
func (s *Service) logActivity(ctx context.Context, userID, activity string, seconds int64) []*badges.Badge {
	res, err := s.activity.LogGenerationSession(ctx, userID, activity, seconds)
	if err != nil {
		log.WithFields(log.Fields{"user_id": userID, "activity": activity}).WithError(err).Warn("Generation session not logged")
		return []*badges.Badge{}
	}
	return res.NewBadges
}

// sessionSeconds rounds up to whole seconds within the session limits.
func sessionSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	switch {
	case secs < 1:
		return 1
	case secs > badges.MaxSessionSeconds:
		return badges.MaxSessionSeconds
	}
	return secs
}
