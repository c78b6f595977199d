package users

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/features/economy"
)

type Store interface {
	Upsert(ctx context.Context, u *User) (bool, error)
	Get(ctx context.Context, id string) (*User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Ledger opens and reads credit accounts.
type Ledger interface {
	EnsureAccount(ctx context.Context, userID string) error
	GetAccount(ctx context.Context, userID string) (*economy.Account, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// refreshAfter bounds how often a returning user's profile is rewritten.
const refreshAfter = 10 * time.Minute

type Service struct {
	store  Store
	ledger Ledger
	tx     Transactor
	now    common.Clock

	// seen maps user id to the time of the last upsert.
	seen sync.Map
}

func NewService(store Store, ledger Ledger, tx Transactor) *Service {
	return &Service{store: store, ledger: ledger, tx: tx, now: time.Now}
}

// EnsureUser records the user on first sight and opens their credit
// account in the same transaction. Returning users are refreshed at most
// once per refreshAfter.
func (s *Service) EnsureUser(ctx context.Context, id, email, name, avatarURL string) error {
	now := s.now()
	if last, ok := s.seen.Load(id); ok && now.Sub(last.(time.Time)) < refreshAfter {
		return nil
	}

	u := &User{
		ID:          id,
		Email:       common.Truncate(email, 254),
		DisplayName: common.Truncate(common.NormalizeSpace(name), 120),
		AvatarURL:   common.Truncate(avatarURL, 2048),
	}
	var created bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if created, err = s.store.Upsert(ctx, u); err != nil {
			return err
		}
		return s.ledger.EnsureAccount(ctx, id)
	})
	if err != nil {
		return err
	}

	s.seen.Store(id, now)
	if created {
		log.WithFields(log.Fields{
			"user_id": id,
			"email":   u.Email,
		}).Info("New user registered")
	}
	return nil
}

// PruneSeen drops cache entries that no longer suppress an upsert and
// reports how many were removed.
func (s *Service) PruneSeen() int {
	cutoff := s.now().Add(-refreshAfter)
	var n int
	s.seen.Range(func(key, value any) bool {
		if value.(time.Time).Before(cutoff) {
			s.seen.Delete(key)
			n++
		}
		return true
	})
	return n
}

// Profile returns the user with their current balance.
func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	acc, err := s.ledger.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	u.DisplayName = u.DisplayNameOr("Storyteller")
	return &Profile{User: *u, Balance: acc.Balance, LoginStreak: acc.LoginStreak}, nil
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.Exists(ctx, id)
}
