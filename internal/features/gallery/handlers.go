package gallery

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/server/middleware"
)

// Handler serves /api/gallery.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublic mounts the routes that need no session.
func (h *Handler) RegisterPublic(r fiber.Router) {
	r.Get("/gallery", h.feed)
}

func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/gallery")
	g.Get("/mine", h.mine)
	g.Post("/", h.publish)
	g.Delete("/:id", h.unpublish)
	g.Post("/:id/like", h.like)
	g.Delete("/:id/like", h.unlike)
	g.Post("/:id/view", h.view)
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, common.ErrNotFound
	}
	return int64(id), nil
}

func (h *Handler) feed(c *fiber.Ctx) error {
	items, err := h.service.Feed(c.UserContext(), middleware.UserID(c), c.Query("type"),
		c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *Handler) mine(c *fiber.Ctx) error {
	items, err := h.service.Mine(c.UserContext(), middleware.UserID(c),
		c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *Handler) publish(c *fiber.Ctx) error {
	var req PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	it, err := h.service.Publish(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(it)
}

func (h *Handler) unpublish(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Unpublish(c.UserContext(), middleware.UserID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) like(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	st, err := h.service.Like(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) unlike(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	st, err := h.service.Unlike(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) view(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	views, err := h.service.View(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"viewCount": views})
}
