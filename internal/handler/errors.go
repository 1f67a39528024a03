package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/apperror"
)

// respondError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500 with a generic body; internals never
// leak to clients.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body := fiber.Map{"error": appErr.Message}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		return c.Status(statusFor(appErr)).JSON(body)
	}

	log.Printf("[Handler] Internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func statusFor(appErr *apperror.AppError) int {
	switch {
	case errors.Is(appErr, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(appErr, apperror.ErrValidation), errors.Is(appErr, apperror.ErrEmpty):
		return fiber.StatusBadRequest
	// A soft-deleted board rejects writes like any other permission
	// failure; clients need no special status for it.
	case errors.Is(appErr, apperror.ErrForbidden), errors.Is(appErr, apperror.ErrReadOnly):
		return fiber.StatusForbidden
	case errors.Is(appErr, apperror.ErrConflict):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}
