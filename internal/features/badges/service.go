package badges

import (
	"context"
	"regexp"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/metrics"
)

// Store is the persistence the awarder needs. *Repository implements it.
type Store interface {
	InsertSession(ctx context.Context, s *Session) error
	AddSeconds(ctx context.Context, userID string, seconds int64) (*Stats, error)
	GetStats(ctx context.Context, userID string) (*Stats, error)
	ListBadges(ctx context.Context) ([]*Badge, error)
	AwardBadge(ctx context.Context, userID, badgeID string) (bool, error)
	ListUserBadges(ctx context.Context, userID string) ([]*UserBadge, error)
	UpsertBadge(ctx context.Context, b *Badge, overwrite bool) error
	DeleteBadge(ctx context.Context, id string) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store Store
	tx    Transactor
}

func NewService(store Store, tx Transactor) *Service {
	return &Service{store: store, tx: tx}
}

var activityPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// LogGenerationSession records seconds of activity, then awards every badge
// whose threshold the new cumulative total has reached and the user does not
// own yet. Only newly awarded badges are returned.
func (s *Service) LogGenerationSession(ctx context.Context, userID, activityType string, seconds int64) (*LogResult, error) {
	if !activityPattern.MatchString(activityType) {
		return nil, common.Invalid("activityType must match [a-z0-9_]{1,64}")
	}
	if seconds <= 0 || seconds > MaxSessionSeconds {
		return nil, common.Invalid("seconds must be between 1 and %d", MaxSessionSeconds)
	}

	res := &LogResult{NewBadges: []*Badge{}}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.InsertSession(ctx, &Session{UserID: userID, ActivityType: activityType, Seconds: seconds}); err != nil {
			return err
		}
		stats, err := s.store.AddSeconds(ctx, userID, seconds)
		if err != nil {
			return err
		}
		res.Stats = stats

		awarded, err := s.awardReached(ctx, userID, stats.TotalSeconds)
		if err != nil {
			return err
		}
		res.NewBadges = append(res.NewBadges, awarded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, b := range res.NewBadges {
		metrics.BadgesAwarded.WithLabelValues(b.ID).Inc()
		log.WithFields(log.Fields{"user_id": userID, "badge": b.ID}).Info("Badge awarded")
	}
	return res, nil
}

// awardReached inserts every badge with threshold <= total. The catalog is
// ascending, so the scan stops at the first threshold above total.
func (s *Service) awardReached(ctx context.Context, userID string, total int64) ([]*Badge, error) {
	catalog, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	var awarded []*Badge
	for _, b := range catalog {
		if b.ThresholdSeconds > total {
			break
		}
		inserted, err := s.store.AwardBadge(ctx, userID, b.ID)
		if err != nil {
			return nil, err
		}
		if inserted {
			awarded = append(awarded, b)
		}
	}
	return awarded, nil
}

func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	return s.store.GetStats(ctx, userID)
}

func (s *Service) UserBadges(ctx context.Context, userID string) ([]*UserBadge, error) {
	return s.store.ListUserBadges(ctx, userID)
}

// Catalog lists all badges with the user's ownership marked.
func (s *Service) Catalog(ctx context.Context, userID string) ([]*CatalogEntry, error) {
	catalog, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := s.store.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	awardedAt := make(map[string]*UserBadge, len(owned))
	for _, ub := range owned {
		awardedAt[ub.ID] = ub
	}

	out := make([]*CatalogEntry, 0, len(catalog))
	for _, b := range catalog {
		e := &CatalogEntry{Badge: *b}
		if ub, ok := awardedAt[b.ID]; ok {
			e.Owned = true
			e.AwardedAt = &ub.AwardedAt
		}
		out = append(out, e)
	}
	return out, nil
}

// --- Catalog management ---

func (s *Service) ListBadges(ctx context.Context) ([]*Badge, error) {
	return s.store.ListBadges(ctx)
}

func (s *Service) SaveBadge(ctx context.Context, b *Badge) error {
	switch {
	case !activityPattern.MatchString(b.ID):
		return common.Invalid("id must match [a-z0-9_]{1,64}")
	case b.Name == "":
		return common.Invalid("name is required")
	case b.ThresholdSeconds <= 0:
		return common.Invalid("thresholdSeconds must be positive")
	}
	return s.store.UpsertBadge(ctx, b, true)
}

func (s *Service) DeleteBadge(ctx context.Context, id string) error {
	return s.store.DeleteBadge(ctx, id)
}

// SeedDefaults inserts DefaultBadges missing from the catalog.
func (s *Service) SeedDefaults(ctx context.Context) error {
	for i := range DefaultBadges {
		b := DefaultBadges[i]
		if err := s.store.UpsertBadge(ctx, &b, false); err != nil {
			return err
		}
	}
	return nil
}
