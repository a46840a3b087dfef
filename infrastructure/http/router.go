// Package http exposes the REST surface around the relay: accounts,
// conversations, and message history. Real-time traffic lives on the
// websocket endpoint; everything here is plain request/response.
package http

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(
	userHandlers *UserHandlers,
	chatHandlers *ChatHandlers,
	wsServer *ws.Server,
	tokens *auth.Tokens,
) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET("/ws", wsServer.Handle)

	api := r.Group("/api")
	api.POST("/signup", userHandlers.Signup)
	api.POST("/login", userHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthRequired(tokens))
	{
		protected.GET("/users", userHandlers.List)
		protected.GET("/chats", chatHandlers.List)
		protected.POST("/chats", chatHandlers.Create)
		protected.GET("/chats/:chat_id/messages", chatHandlers.ListMessages)
		protected.POST("/chats/:chat_id/messages", chatHandlers.Send)
		protected.POST("/chats/:chat_id/read", chatHandlers.MarkRead)
	}

	return r
}
