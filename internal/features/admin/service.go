package admin

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/features/badges"
	"storyforge.app/api/internal/features/economy"
	"storyforge.app/api/internal/features/quests"
)

type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetActiveSession(ctx context.Context, tokenHash string, now time.Time) (*Session, error)
	TouchSession(ctx context.Context, id int64) error
	DeactivateSession(ctx context.Context, tokenHash string) error
	ExpireSessions(ctx context.Context, now time.Time) (int64, error)
	LogAttempt(ctx context.Context, ip string, success bool) error
	RecentFailures(ctx context.Context, ip string, since time.Time) (int, error)
}

// Quests is the catalog side of the quest tracker.
type Quests interface {
	ListTemplates(ctx context.Context, activeOnly bool) ([]*quests.Template, error)
	SaveTemplate(ctx context.Context, t *quests.Template) error
	SetTemplateActive(ctx context.Context, id string, active bool) error
}

// Badges is the catalog side of the badge awarder.
type Badges interface {
	ListBadges(ctx context.Context) ([]*badges.Badge, error)
	SaveBadge(ctx context.Context, b *badges.Badge) error
	DeleteBadge(ctx context.Context, id string) error
}

type Ledger interface {
	AdjustCredits(ctx context.Context, userID string, delta int64, kind, source, description string) (*economy.Transaction, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*economy.Transaction, error)
}

type Users interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Deps are the features the admin surface manages.
type Deps struct {
	Quests Quests
	Badges Badges
	Ledger Ledger
	Users  Users
}

type Service struct {
	store        Store
	deps         Deps
	passwordHash string
	now          common.Clock
}

func NewService(store Store, deps Deps, passwordHash string) *Service {
	return &Service{store: store, deps: deps, passwordHash: passwordHash, now: time.Now}
}

// Enabled reports whether an admin password is configured.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// Login checks password and opens a 24h session. Three failed attempts
// from one IP within an hour lock that IP out until they age out.
func (s *Service) Login(ctx context.Context, ip, password string) (*LoginResult, error) {
	now := s.now()
	failures, err := s.store.RecentFailures(ctx, ip, now.Add(-lockoutWindow))
	if err != nil {
		return nil, err
	}
	if failures >= maxFailedLogins {
		log.WithField("ip", ip).Warn("Admin login locked out")
		return nil, common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.passwordHash)
	if err := s.store.LogAttempt(ctx, ip, match); err != nil {
		return nil, err
	}
	if !match {
		log.WithFields(log.Fields{"ip": ip, "failures": failures + 1}).Warn("Admin login failed")
		return nil, common.ErrWrongPassword
	}

	token, err := generateSecureToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{TokenHash: hashToken(token), IP: ip, ExpiresAt: now.Add(sessionTTL)}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"ip": ip, "session_id": sess.ID}).Info("Admin logged in")
	return &LoginResult{Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Authenticate resolves token to a live session and records the activity.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, common.ErrUnauthorized
	}
	sess, err := s.store.GetActiveSession(ctx, hashToken(token), s.now())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrSessionExpired
		}
		return nil, err
	}
	if err := s.store.TouchSession(ctx, sess.ID); err != nil {
		log.WithError(err).Warn("Admin session activity not recorded")
	}
	return sess, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeactivateSession(ctx, hashToken(token))
}

// ExpireSessions deactivates sessions past their expiry. Run from cron.
func (s *Service) ExpireSessions(ctx context.Context) (int64, error) {
	return s.store.ExpireSessions(ctx, s.now())
}

// AdjustUserCredits grants (amount > 0) or takes (amount < 0) credits.
func (s *Service) AdjustUserCredits(ctx context.Context, userID string, amount int64, reason string) (*economy.Transaction, error) {
	if amount == 0 {
		return nil, common.ErrInvalidAmount
	}
	reason = common.Truncate(strings.TrimSpace(reason), maxReasonLength)
	if reason == "" {
		return nil, common.Invalid("reason is required")
	}
	exists, err := s.deps.Users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, common.ErrNotFound
	}

	kind, source := economy.KindEarn, economy.SourceAdminGrant
	if amount < 0 {
		kind, source = economy.KindSpend, economy.SourceAdminTake
	}
	entry, err := s.deps.Ledger.AdjustCredits(ctx, userID, amount, kind, source, reason)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"reason":  reason,
	}).Info("Admin adjusted credits")
	return entry, nil
}

func (s *Service) UserTransactions(ctx context.Context, userID string, limit, offset int) ([]*economy.Transaction, error) {
	return s.deps.Ledger.ListTransactions(ctx, userID, limit, offset)
}

func (s *Service) QuestTemplates(ctx context.Context) ([]*quests.Template, error) {
	return s.deps.Quests.ListTemplates(ctx, false)
}

func (s *Service) SaveQuestTemplate(ctx context.Context, t *quests.Template) error {
	if err := s.deps.Quests.SaveTemplate(ctx, t); err != nil {
		return err
	}
	log.WithField("quest_id", t.ID).Info("Quest template saved")
	return nil
}

func (s *Service) SetQuestActive(ctx context.Context, id string, active bool) error {
	return s.deps.Quests.SetTemplateActive(ctx, id, active)
}

func (s *Service) Badges(ctx context.Context) ([]*badges.Badge, error) {
	return s.deps.Badges.ListBadges(ctx)
}

func (s *Service) SaveBadge(ctx context.Context, b *badges.Badge) error {
	if err := s.deps.Badges.SaveBadge(ctx, b); err != nil {
		return err
	}
	log.WithField("badge", b.ID).Info("Badge saved")
	return nil
}

func (s *Service) DeleteBadge(ctx context.Context, id string) error {
	return s.deps.Badges.DeleteBadge(ctx, id)
}

// verifyArgon2id checks password against an encoded hash of the form
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Malformed Argon2id hash")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Malformed Argon2id parameters")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Malformed Argon2id salt")
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Malformed Argon2id hash value")
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate admin token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
