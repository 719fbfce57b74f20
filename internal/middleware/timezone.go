package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/dto"
	"github.com/onedaybetter/tracker/internal/session"
)

// Timezone resolves the caller's time zone so "today" matches the device
// calendar. It reads the X-Timezone header, then the tz query param, and falls
// back to the server default.
func Timezone(fallback *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Get("X-Timezone")
		if name == "" {
			name = c.Query("tz")
		}
		if name == "" {
			c.Locals(session.LocationKey, fallback)
			return c.Next()
		}

		loc, err := time.LoadLocation(name)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Invalid X-Timezone: " + name,
			})
		}
		c.Locals(session.LocationKey, loc)
		return c.Next()
	}
}
