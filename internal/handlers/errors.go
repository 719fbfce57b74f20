package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/dto"
)

// internalError logs err with the request ID and answers 500 with msg only.
func internalError(c *fiber.Ctx, msg string, err error) error {
	slog.Error(msg, "error", err, "request_id", c.Locals("requestid"), "action", c.Route().Path)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}
