package users

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/server/middleware"
)

// Handler serves /api/auth.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/auth/user", h.currentUser)
}

func (h *Handler) currentUser(c *fiber.Ctx) error {
	p, err := h.service.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(p)
}
