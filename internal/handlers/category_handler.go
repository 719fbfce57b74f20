package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/dto"
	"github.com/onedaybetter/tracker/internal/models"
)

// ListCategories handles GET /categories.
func ListCategories(c *fiber.Ctx) error {
	out := make([]dto.CategoryResponse, len(models.Categories))
	for i, cat := range models.Categories {
		out[i] = dto.CategoryResponse{Name: cat, Icon: cat.Icon()}
	}
	return c.JSON(fiber.Map{"categories": out})
}
