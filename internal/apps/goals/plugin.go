package goals

import (
	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/cache"
	"github.com/onedaybetter/tracker/internal/config"
	"github.com/onedaybetter/tracker/internal/models"
	"gorm.io/gorm"
)

type GoalsPlugin struct {
	statsCache cache.Cache
}

func New(statsCache cache.Cache) *GoalsPlugin {
	return &GoalsPlugin{statsCache: statsCache}
}

func (p *GoalsPlugin) ID() string { return "goals" }

func (p *GoalsPlugin) Models() []interface{} {
	return []interface{}{
		&models.Goal{},
		&models.GoalCompletion{},
	}
}

func (p *GoalsPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewGoalService(db, p.statsCache, cfg.StatsCacheTTL)
	handler := NewGoalHandler(svc)

	router.Post("/goals", handler.Create)
	router.Get("/goals", handler.List)
	router.Get("/goals/today", handler.Today)
	router.Get("/goals/calendar", handler.Calendar)

	router.Get("/goals/:id", handler.Get)
	router.Put("/goals/:id", handler.Update)
	router.Delete("/goals/:id", handler.Delete)
	router.Get("/goals/:id/week", handler.Week)
	router.Get("/goals/:id/completions", handler.Completions)
	router.Post("/goals/:id/toggle", handler.Toggle)
	router.Put("/goals/:id/completions/:date", handler.SetCompletion)
}
