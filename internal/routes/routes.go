package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/onedaybetter/tracker/internal/apps"
	"github.com/onedaybetter/tracker/internal/config"
	"github.com/onedaybetter/tracker/internal/handlers"
	"github.com/onedaybetter/tracker/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	logHandler *handlers.LogHandler,
	plugins []apps.Plugin,
) {
	// Prometheus scrape endpoint, outside the rate limiter
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth is public with a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected routes (JWT required) - middleware on individual routes so the
	// public auth routes above stay open
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)
	api.Get("/profile", middleware.JWTProtected(cfg), authHandler.GetProfile)
	api.Put("/profile", middleware.JWTProtected(cfg), authHandler.UpdateProfile)

	// Admin (JWT or X-Admin-Token, then admin check)
	admin := api.Group("/admin", middleware.JWTOrAdminToken(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/logs", logHandler.List)

	// Tracker routes: every plugin shares the JWT + time zone group
	v1 := api.Group("/v1", middleware.JWTProtected(cfg), middleware.Timezone(cfg.Location()))
	v1.Get("/categories", handlers.ListCategories)
	for _, p := range plugins {
		p.RegisterRoutes(v1, db, cfg)
	}
}
