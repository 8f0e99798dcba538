package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lumacart/chatwidget/internal/api/admin"
	"github.com/lumacart/chatwidget/internal/api/chatbot"
	"github.com/lumacart/chatwidget/internal/api/middleware"
	"github.com/lumacart/chatwidget/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	chatService *service.ChatService,
	adminService *service.AdminService,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Chatbot protocol (public)
	chatbotHandler := chatbot.NewHandler(chatService)
	chatbotGroup := r.Group("/api/chatbot")
	chatbotHandler.RegisterRoutes(chatbotGroup)

	// Admin API (requires API key)
	adminHandler := admin.NewHandler(adminService)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.Auth(cfg.APIKey))
	adminHandler.RegisterRoutes(adminGroup)

	return r
}
