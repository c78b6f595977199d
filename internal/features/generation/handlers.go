package generation

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/server/middleware"
)

// Handler serves /api/generate.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/generate")
	g.Get("/costs", h.costs)
	g.Post("/:kind", h.generate)
	g.Post("/:kind/image", h.generateImage)
}

func kindParam(c *fiber.Ctx) (common.Kind, error) {
	kind, ok := common.ParseKind(c.Params("kind"))
	if !ok {
		return "", common.ErrNotFound
	}
	return kind, nil
}

func (h *Handler) costs(c *fiber.Ctx) error {
	out := fiber.Map{"image": h.service.imageCost}
	for _, k := range common.Kinds {
		out[string(k)] = h.service.Cost(k)
	}
	return c.JSON(out)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) generate(c *fiber.Ctx) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	res, err := h.service.Generate(c.UserContext(), middleware.UserID(c), kind, req.Prompt)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

type imageRequest struct {
	Description string `json:"description"`
}

func (h *Handler) generateImage(c *fiber.Ctx) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var req imageRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	res, err := h.service.GenerateImage(c.UserContext(), middleware.UserID(c), kind, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
