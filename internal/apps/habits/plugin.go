package habits

import (
	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/cache"
	"github.com/onedaybetter/tracker/internal/config"
	"github.com/onedaybetter/tracker/internal/models"
	"gorm.io/gorm"
)

type HabitsPlugin struct {
	statsCache cache.Cache
}

func New(statsCache cache.Cache) *HabitsPlugin {
	return &HabitsPlugin{statsCache: statsCache}
}

func (p *HabitsPlugin) ID() string { return "habits" }

func (p *HabitsPlugin) Models() []interface{} {
	return []interface{}{
		&models.Habit{},
		&models.HabitCompletion{},
	}
}

func (p *HabitsPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewHabitService(db, p.statsCache, cfg.StatsCacheTTL)
	handler := NewHabitHandler(svc)

	// Static segments before :id
	router.Post("/habits", handler.Create)
	router.Get("/habits", handler.List)
	router.Get("/habits/today", handler.Today)
	router.Get("/habits/calendar", handler.Calendar)

	router.Get("/habits/:id", handler.Get)
	router.Put("/habits/:id", handler.Update)
	router.Delete("/habits/:id", handler.Delete)
	router.Get("/habits/:id/week", handler.Week)
	router.Get("/habits/:id/completions", handler.Completions)
	router.Post("/habits/:id/toggle", handler.Toggle)
	router.Put("/habits/:id/completions/:date", handler.SetCompletion)
}
