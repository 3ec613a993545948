package handlers

import (
	"github.com/gofiber/fiber/v3"

	"auraroll/internal/models"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, body models.ErrorResponse) error {
	body.Status = "error"
	return c.Status(status).JSON(body)
}
