package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/dto"
	"github.com/onedaybetter/tracker/internal/models"
	"gorm.io/gorm"
)

type LogHandler struct {
	db *gorm.DB
}

func NewLogHandler(db *gorm.DB) *LogHandler {
	return &LogHandler{db: db}
}

// List handles GET /admin/logs?level=&request_id=&since=&page=&limit=.
func (h *LogHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	q := h.db.WithContext(c.UserContext()).Model(&models.SystemLog{})
	if level := c.Query("level"); level != "" {
		q = q.Where("level = ?", level)
	}
	if requestID := c.Query("request_id"); requestID != "" {
		q = q.Where("request_id = ?", requestID)
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "since must be an RFC3339 timestamp",
			})
		}
		q = q.Where("timestamp >= ?", t.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return internalError(c, "Failed to fetch logs", err)
	}

	logs := []models.SystemLog{}
	err := q.Order("timestamp DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error
	if err != nil {
		return internalError(c, "Failed to fetch logs", err)
	}

	return c.JSON(dto.SystemLogListResponse{
		Logs:  logs,
		Total: total,
		Limit: limit,
		Page:  page,
	})
}
