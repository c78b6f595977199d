package economy

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/server/middleware"
)

// Handler serves /api/credits.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the routes on an authenticated router.
func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/credits")
	g.Get("/", h.getAccount)
	g.Get("/transactions", h.listTransactions)
	g.Get("/daily-login", h.dailyStatus)
	g.Post("/daily-login", h.claimDaily)
	g.Post("/spend", h.spend)
}

func (h *Handler) getAccount(c *fiber.Ctx) error {
	acc, err := h.service.GetAccount(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(acc)
}

func (h *Handler) listTransactions(c *fiber.Ctx) error {
	txs, err := h.service.ListTransactions(c.UserContext(), middleware.UserID(c),
		c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(txs)
}

func (h *Handler) dailyStatus(c *fiber.Ctx) error {
	st, err := h.service.DailyStatus(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) claimDaily(c *fiber.Ctx) error {
	reward, err := h.service.ClaimDailyLoginReward(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(reward)
}

type spendRequest struct {
	Amount      int64  `json:"amount"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (h *Handler) spend(c *fiber.Ctx) error {
	var req spendRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	if req.Amount <= 0 {
		return common.Invalid("amount must be a positive integer")
	}
	if req.Source == "" {
		return common.Invalid("source is required")
	}

	entry, err := h.service.Spend(c.UserContext(), middleware.UserID(c), req.Amount, req.Source, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"balance": entry.BalanceAfter, "transaction": entry})
}
