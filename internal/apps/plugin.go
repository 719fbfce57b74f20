package apps

import (
	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/config"
	"gorm.io/gorm"
)

// Plugin is a trackable feature (habits, goals) mounted under /api/v1.
type Plugin interface {
	// ID returns the unique plugin identifier, used in logs.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts plugin routes on the given Fiber group.
	// The group is already prefixed with /api/v1 and has JWT and time zone
	// middleware applied.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}
