package router

import (
	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相關的路由
func RegisterRoutes(r *fiber.App, api fiber.Router, chat *app.ChatHandler, chatWebsocket *app.ChatWebsocketHandler, auth middlewares.Authenticator) {
	chatRoutes := api.Group("/chats", middlewares.JWTMiddleware(auth))
	chatRoutes.Post("/", chat.CreatePrivate)
	chatRoutes.Get("/", chat.ListConversations)
	// 固定路徑要在 /:id 之前
	chatRoutes.Get("/unread", chat.UnreadSummary)
	chatRoutes.Post("/group", chat.CreateGroup)
	chatRoutes.Get("/:id", chat.GetConversation)
	chatRoutes.Patch("/:id", chat.UpdateConversation)

	chatRoutes.Post("/:id/messages", chat.SendMessage)
	chatRoutes.Get("/:id/messages", chat.ListMessages)
	chatRoutes.Post("/:id/messages/:mid/read", chat.MarkRead)
	chatRoutes.Post("/:id/messages/:mid/delivered", chat.MarkDelivered)
	chatRoutes.Post("/:id/upload", chat.Upload)
	chatRoutes.Get("/:id/files/:attachment_id", chat.Download)

	// token 在連線後才驗證, 才能回 4001/4002 close code
	r.Get("/ws/chat/:chat_id", chatWebsocket.Upgrade, websocket.New(chatWebsocket.HandleConnection))
}
