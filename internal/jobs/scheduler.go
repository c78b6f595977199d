// Package jobs runs periodic housekeeping with cron in APP_TIMEZONE.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// QuestPurger drops daily quest rows older than the retention period.
type QuestPurger interface {
	PurgeOld(ctx context.Context, retentionDays int) (int64, error)
}

// SessionExpirer deactivates admin sessions past their expiry.
type SessionExpirer interface {
	ExpireSessions(ctx context.Context) (int64, error)
}

// SeenPruner evicts stale entries from the in-process user cache.
type SeenPruner interface {
	PruneSeen() int
}

const (
	questPurgeSpec    = "5 0 * * *"
	sessionExpirySpec = "0 * * * *"
	userCacheSpec     = "*/10 * * * *"
)

type Scheduler struct {
	cron          *cron.Cron
	quests        QuestPurger
	sessions      SessionExpirer
	users         SeenPruner
	retentionDays int
}

func NewScheduler(loc *time.Location, quests QuestPurger, sessions SessionExpirer, users SeenPruner, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		quests:        quests,
		sessions:      sessions,
		users:         users,
		retentionDays: retentionDays,
	}
}

// Start registers the jobs and starts the cron loop. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(questPurgeSpec, func() { s.PurgeQuests(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(sessionExpirySpec, func() { s.ExpireAdminSessions(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(userCacheSpec, s.PruneUserCache); err != nil {
		return err
	}
	s.cron.Start()
	log.WithField("timezone", s.cron.Location().String()).Info("Scheduler started")
	return nil
}

// PurgeQuests is the daily 00:05 job.
func (s *Scheduler) PurgeQuests(ctx context.Context) {
	n, err := s.quests.PurgeOld(ctx, s.retentionDays)
	if err != nil {
		log.WithError(err).Error("[CRON] Quest purge failed")
		return
	}
	log.WithFields(log.Fields{"deleted": n, "retention_days": s.retentionDays}).Info("[CRON] Old daily quests purged")
}

// ExpireAdminSessions is the hourly job.
func (s *Scheduler) ExpireAdminSessions(ctx context.Context) {
	n, err := s.sessions.ExpireSessions(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Admin session expiry failed")
		return
	}
	if n > 0 {
		log.WithField("expired", n).Info("[CRON] Admin sessions expired")
	}
}

// PruneUserCache runs every 10 minutes.
func (s *Scheduler) PruneUserCache() {
	if n := s.users.PruneSeen(); n > 0 {
		log.WithField("evicted", n).Debug("[CRON] User cache pruned")
	}
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("Scheduler stopped")
}
