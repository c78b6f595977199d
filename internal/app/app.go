// Package app wires the configuration, database, features, HTTP server and
// scheduler into one runnable application.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/ai"
	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/db/postgres"
	"storyforge.app/api/internal/features/admin"
	"storyforge.app/api/internal/features/badges"
	"storyforge.app/api/internal/features/creations"
	"storyforge.app/api/internal/features/economy"
	"storyforge.app/api/internal/features/gallery"
	"storyforge.app/api/internal/features/generation"
	"storyforge.app/api/internal/features/quests"
	"storyforge.app/api/internal/features/users"
	"storyforge.app/api/internal/jobs"
	"storyforge.app/api/internal/notify"
	"storyforge.app/api/internal/server"
	"storyforge.app/api/internal/storage"
)

type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New connects to the database, applies migrations, seeds the catalogs and
// builds every feature. The order matters: features depend on each other.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Database ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	tx := postgres.NewTxManager(pool)

	// === 2. External collaborators ===
	generator := ai.New(cfg)
	images, err := storage.New(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}
	notifier, err := notify.New(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("notifier: %w", err)
	}

	// === 3. Services ===
	economyService := economy.NewService(economy.NewRepository(pool), tx, cfg)
	userService := users.NewService(users.NewRepository(pool), economyService, tx)
	questService := quests.NewService(quests.NewRepository(pool), economyService, tx, cfg)
	badgeService := badges.NewService(badges.NewRepository(pool), tx)
	creationService := creations.NewService(creations.NewRepository(pool))
	galleryService := gallery.NewService(gallery.NewRepository(pool), creationService, notifier, tx)
	generationService := generation.NewService(economyService, badgeService, generator, images, cfg)
	adminService := admin.NewService(admin.NewRepository(pool), admin.Deps{
		Quests: questService,
		Badges: badgeService,
		Ledger: economyService,
		Users:  userService,
	}, cfg.AdminPasswordHash)

	if err := questService.SeedDefaults(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed quests: %w", err)
	}
	if err := badgeService.SeedDefaults(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed badges: %w", err)
	}

	// === 4. HTTP ===
	galleryHandler := gallery.NewHandler(galleryService)
	srv := server.New(cfg, pool, userService, server.Routes{
		Public: []server.Registrar{
			galleryHandler.RegisterPublic,
			admin.NewHandler(adminService).Register,
		},
		Protected: []server.Registrar{
			users.NewHandler(userService).Register,
			economy.NewHandler(economyService).Register,
			quests.NewHandler(questService).Register,
			badges.NewHandler(badgeService).Register,
			creations.NewHandler(creationService).Register,
			galleryHandler.Register,
			generation.NewHandler(generationService).Register,
		},
	})

	// === 5. Scheduler ===
	scheduler := jobs.NewScheduler(cfg.Location(), questService, adminService, userService, cfg.QuestRetentionDays)

	log.WithFields(log.Fields{
		"env":      cfg.AppEnv,
		"timezone": cfg.AppTimezone,
		"admin":    cfg.AdminEnabled(),
		"s3":       cfg.S3Enabled(),
		"telegram": cfg.TelegramEnabled(),
		"ai_mock":  cfg.AIAPIKey == "",
	}).Info("Application initialized")

	return &App{Server: srv, Scheduler: scheduler, DB: pool}, nil
}
