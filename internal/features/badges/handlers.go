package badges

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/server/middleware"
)

// Handler serves /api/badges and /api/generation.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/badges", h.catalog)
	r.Get("/badges/mine", h.mine)
	r.Get("/generation/stats", h.stats)
	r.Post("/generation/sessions", h.logSession)
}

func (h *Handler) catalog(c *fiber.Ctx) error {
	entries, err := h.service.Catalog(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (h *Handler) mine(c *fiber.Ctx) error {
	owned, err := h.service.UserBadges(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	if owned == nil {
		owned = []*UserBadge{}
	}
	return c.JSON(owned)
}

func (h *Handler) stats(c *fiber.Ctx) error {
	st, err := h.service.Stats(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

type sessionRequest struct {
	ActivityType string `json:"activityType"`
	Seconds      int64  `json:"seconds"`
}

func (h *Handler) logSession(c *fiber.Ctx) error {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	res, err := h.service.LogGenerationSession(c.UserContext(), middleware.UserID(c), req.ActivityType, req.Seconds)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
