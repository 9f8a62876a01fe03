package handlers

import (
	"errors"

	"smooth/internal/services"
	"smooth/internal/store"
	"smooth/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes. Anything unknown is a
// backend failure.
func respondError(c *fiber.Ctx, logger *zap.Logger, message string, err error) error {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errs,
		})
	}

	status := fiber.StatusBadGateway
	switch {
	case errors.Is(err, services.ErrUnknownField), errors.Is(err, services.ErrReadOnlyField):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotInList), errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrUserNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrDeleteNotConfirmed):
		status = fiber.StatusPreconditionRequired
	case errors.Is(err, services.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken):
		status = fiber.StatusConflict
	}
	if status == fiber.StatusBadGateway {
		logger.Error(message, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
