package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"agora/internal/apperr"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindUnavailable:
		return fiber.StatusGone
	case apperr.KindForbidden, apperr.KindSelfProtection:
		return fiber.StatusForbidden
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindLimitReached, apperr.KindStockAdjusted, apperr.KindPartialFulfillment:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes a structured error response. Clients branch on the code,
// not the message.
func fail(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	message := "Internal error"
	var e *apperr.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	return c.Status(statusFor(kind)).JSON(fiber.Map{
		"message": message,
		"code":    kind.String(),
	})
}
