package router

import (
	"realtime_chat_service/internal/member/app"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 注册用户相关的路由
func RegisterRoutes(api fiber.Router, memberHandler *app.MemberHandler, auth middlewares.Authenticator) {
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", memberHandler.Register)
	authRoutes.Post("/login", memberHandler.Login)
	authRoutes.Post("/logout", middlewares.JWTMiddleware(auth), memberHandler.Logout)

	userRoutes := api.Group("/users", middlewares.JWTMiddleware(auth))
	userRoutes.Get("/me", memberHandler.Me)
	userRoutes.Get("/search", memberHandler.Search)
}
