package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
)

// ErrorHandler renders every error as {"message": ...}.
//
//	validation       400  detail of the validation error
//	business rule    400  the rule's message
//	not found        404
//	unauthorized     401
//	anything else    500  generic message, logged
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, message := classify(err)
	if status == fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"request_id": RequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
		}).WithError(err).Error("Unhandled error")
	}
	return c.Status(status).JSON(fiber.Map{"message": message})
}

func classify(err error) (int, string) {
	if target, ok := common.BusinessError(err); ok {
		return fiber.StatusBadRequest, target.Error()
	}
	switch {
	case common.IsValidationError(err):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrSessionExpired):
		return fiber.StatusUnauthorized, "Unauthorized"
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= 500 {
			return fe.Code, "Internal server error"
		}
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, "Internal server error"
}
