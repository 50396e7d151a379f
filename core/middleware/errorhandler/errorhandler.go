package errorhandler

import (
	"errors"

	"diary-sync/core/apperror"
	"diary-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// New returns a fiber error handler that maps apperror kinds to status
// codes and renders {"error": ..., "kind": ...}.
func New(l *zap.Logger) fiber.ErrorHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		status := apperror.Status(err)
		body := fiber.Map{"error": err.Error()}
		if kind := apperror.KindOf(err); kind != "" {
			body["kind"] = string(kind)
		}

		log := logger.WithRayID(l, c)
		if status >= fiber.StatusInternalServerError {
			log.Error("Request failed", zap.Int("status", status), zap.Error(err))
		} else {
			log.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
		}
		return c.Status(status).JSON(body)
	}
}
