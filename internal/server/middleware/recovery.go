package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// LogPanic is the stack trace hook for fiber's recover middleware.
func LogPanic(c *fiber.Ctx, r any) {
	log.WithFields(log.Fields{
		"component":  "panic_recovery",
		"panic":      fmt.Sprintf("%v", r),
		"path":       c.Path(),
		"request_id": RequestID(c),
		"stack":      string(debug.Stack()),
	}).Error("Panic in handler recovered")
}
