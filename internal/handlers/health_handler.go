package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/cache"
	"github.com/onedaybetter/tracker/internal/dto"
	"gorm.io/gorm"
)

// Pinger is implemented by caches backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    *gorm.DB
	cache cache.Cache
}

// NewHealthHandler reports on db and, when statsCache implements Pinger, on
// the cache server as well.
func NewHealthHandler(db *gorm.DB, statsCache cache.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: statsCache}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}
	if dbStatus != "ok" {
		status = "degraded"
	}

	cacheStatus := "local"
	if p, ok := h.cache.(Pinger); ok {
		cacheStatus = "ok"
		if err := p.Ping(ctx); err != nil {
			cacheStatus = "unhealthy: " + err.Error()
			status = "degraded"
		}
	}

	code := fiber.StatusOK
	if dbStatus != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Cache:     cacheStatus,
	})
}
