package creations

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/server/middleware"
)

// Handler serves /api/characters, /api/environments and /api/props.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r fiber.Router) {
	for _, kind := range common.Kinds {
		g := r.Group("/"+kind.Plural(), withKind(kind))
		g.Get("/", h.list)
		g.Post("/", h.create)
		g.Get("/:id", h.get)
		g.Patch("/:id", h.update)
		g.Delete("/:id", h.delete)
	}
}

const localsKind = "creationKind"

func withKind(kind common.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsKind, kind)
		return c.Next()
	}
}

func kindOf(c *fiber.Ctx) common.Kind {
	k, _ := c.Locals(localsKind).(common.Kind)
	return k
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, common.ErrNotFound
	}
	return int64(id), nil
}

func (h *Handler) list(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), middleware.UserID(c), kindOf(c),
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *Handler) get(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	item, err := h.service.Get(c.UserContext(), middleware.UserID(c), kindOf(c), id)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func (h *Handler) create(c *fiber.Ctx) error {
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return common.Invalid("malformed body")
	}
	item, err := h.service.Create(c.UserContext(), middleware.UserID(c), kindOf(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) update(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var p Patch
	if err := c.BodyParser(&p); err != nil {
		return common.Invalid("malformed body")
	}
	item, err := h.service.Update(c.UserContext(), middleware.UserID(c), kindOf(c), id, &p)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), middleware.UserID(c), kindOf(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
