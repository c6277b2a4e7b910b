package main

import (
	apihandlers "realtime_chat_service/internal/api/handlers"
	apirouter "realtime_chat_service/internal/api/router"

	"github.com/gofiber/fiber/v2"
)

// 服務入口在 cmd/chat_service。此程式用於 init swagger
// swag init -g main.go --parseInternal --output ./docs
//
// @title Realtime Chat Service API
// @version 1.0
// @description Private and group chat over REST and websocket
// @host localhost:8001
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fiber.New()

	// 注册路由
	apirouter.RegisterRoutes(app, apihandlers.NewHealthHandler("chat_service", nil))
}
