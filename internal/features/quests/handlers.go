package quests

import (
	"github.com/gofiber/fiber/v2"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/server/middleware"
)

// Handler serves /api/quests.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/quests")
	g.Get("/daily", h.daily)
	g.Post("/progress", h.progress)
	g.Post("/claim", h.claim)
}

func (h *Handler) daily(c *fiber.Ctx) error {
	qs, err := h.service.TodayQuests(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	if qs == nil {
		qs = []*UserQuest{}
	}
	return c.JSON(qs)
}

type progressRequest struct {
	QuestType string `json:"questType"`
	Increment *int   `json:"increment"`
}

func (h *Handler) progress(c *fiber.Ctx) error {
	var req progressRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	inc := 1
	if req.Increment != nil {
		inc = *req.Increment
	}

	changed, err := h.service.UpdateQuestProgress(c.UserContext(), middleware.UserID(c), req.QuestType, inc)
	if err != nil {
		return err
	}
	if changed == nil {
		changed = []*UserQuest{}
	}
	return c.JSON(fiber.Map{"updated": changed})
}

type claimRequest struct {
	QuestID int64 `json:"questId"`
}

func (h *Handler) claim(c *fiber.Ctx) error {
	var req claimRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Invalid("malformed body")
	}
	if req.QuestID <= 0 {
		return common.Invalid("questId is required")
	}

	res, err := h.service.ClaimQuestReward(c.UserContext(), middleware.UserID(c), req.QuestID)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
