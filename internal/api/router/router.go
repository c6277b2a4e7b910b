package router

import (
	"realtime_chat_service/internal/api/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// RegisterRoutes 共用路由: swagger, health, debug
func RegisterRoutes(app *fiber.App, health *handlers.HealthHandler) {
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/", health.ConnectCheck)
	app.Get("/healthz", health.Health)
	app.Post("/debug", health.DebugLogFlag)
}
