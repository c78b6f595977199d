// Package server assembles the fiber application: shared middleware,
// health and metrics endpoints, and the public and authenticated /api groups.
package server

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/config"
	"storyforge.app/api/internal/server/middleware"
)

// Registrar mounts a feature's routes on the /api group.
type Registrar func(r fiber.Router)

// Pinger reports database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes splits registrars by whether they need a user session.
// Public routes are matched before the session check runs.
type Routes struct {
	Public    []Registrar
	Protected []Registrar
}

type Server struct {
	app     *fiber.App
	limiter *middleware.RateLimiter
	addr    string
}

func New(cfg *config.Config, db Pinger, users middleware.UserEnsurer, routes Routes) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "storyforge-api",
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          cfg.AIRequestTimeout + 15*time.Second,
		IdleTimeout:           60 * time.Second,
	})

	app.Use(middleware.RequestLogger())
	app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: middleware.LogPanic,
	}))
	app.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	app.Get("/health", health(db))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	api := app.Group("/api")
	for _, register := range routes.Public {
		register(api)
	}
	api.Use(middleware.Auth([]byte(cfg.SessionSecret), cfg.SessionCookieName, users), limiter.Handler())
	for _, register := range routes.Protected {
		register(api)
	}

	return &Server{app: app, limiter: limiter, addr: cfg.HTTPAddr}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}
	// fiber refuses credentials with a wildcard origin.
	if !slices.Contains(origins, "*") {
		c.AllowCredentials = true
	}
	return c
}

func health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.WithError(err).Warn("Health check: database unreachable")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks until the server stops.
func (s *Server) Listen() error {
	log.WithField("addr", s.addr).Info("HTTP server listening")
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Close()
	return s.app.ShutdownWithContext(ctx)
}
