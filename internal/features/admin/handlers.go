package admin

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/features/badges"
	"storyforge.app/api/internal/features/quests"
)

// Handler serves /api/admin. It needs no user session; every route but
// login requires X-Admin-Token.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

const localsAdminSession = "adminSession"

func (h *Handler) Register(r fiber.Router) {
	if !h.service.Enabled() {
		r.All("/admin/*", func(*fiber.Ctx) error { return common.ErrNotFound })
		return
	}

	r.Post("/admin/login", h.login)

	g := r.Group("/admin", h.requireSession)
	g.Post("/logout", h.logout)

	g.Get("/quests", h.listQuests)
	g.Put("/quests/:id", h.saveQuest)
	g.Post("/quests/:id/activate", h.setQuestActive(true))
	g.Post("/quests/:id/deactivate", h.setQuestActive(false))

	g.Get("/badges", h.listBadges)
	g.Put("/badges/:id", h.saveBadge)
	g.Delete("/badges/:id", h.deleteBadge)

	g.Post("/users/:id/credits", h.adjustCredits)
	g.Get("/users/:id/transactions", h.userTransactions)
}

func (h *Handler) requireSession(c *fiber.Ctx) error {
	sess, err := h.service.Authenticate(c.UserContext(), c.Get(TokenHeader))
	if err != nil {
		return err
	}
	c.Locals(localsAdminSession, sess)
	return c.Next()
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	if req.Password == "" {
		return common.Invalid("password is required")
	}
	res, err := h.service.Login(c.UserContext(), c.IP(), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) logout(c *fiber.Ctx) error {
	if err := h.service.Logout(c.UserContext(), c.Get(TokenHeader)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) listQuests(c *fiber.Ctx) error {
	ts, err := h.service.QuestTemplates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(ts)
}

func (h *Handler) saveQuest(c *fiber.Ctx) error {
	var t quests.Template
	if err := c.BodyParser(&t); err != nil {
		return common.Invalid("malformed body")
	}
	t.ID = c.Params("id")
	if err := h.service.SaveQuestTemplate(c.UserContext(), &t); err != nil {
		return err
	}
	return c.JSON(t)
}

func (h *Handler) setQuestActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.service.SetQuestActive(c.UserContext(), c.Params("id"), active); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": c.Params("id"), "isActive": active})
	}
}

func (h *Handler) listBadges(c *fiber.Ctx) error {
	bs, err := h.service.Badges(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(bs)
}

func (h *Handler) saveBadge(c *fiber.Ctx) error {
	var b badges.Badge
	if err := c.BodyParser(&b); err != nil {
		return common.Invalid("malformed body")
	}
	b.ID = c.Params("id")
	if err := h.service.SaveBadge(c.UserContext(), &b); err != nil {
		return err
	}
	return c.JSON(b)
}

func (h *Handler) deleteBadge(c *fiber.Ctx) error {
	if err := h.service.DeleteBadge(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type creditsRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *Handler) adjustCredits(c *fiber.Ctx) error {
	var req creditsRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	entry, err := h.service.AdjustUserCredits(c.UserContext(), c.Params("id"), req.Amount, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(entry)
}

func (h *Handler) userTransactions(c *fiber.Ctx) error {
	txs, err := h.service.UserTransactions(c.UserContext(), c.Params("id"),
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(txs)
}
