package http

import (
	"github.com/gin-gonic/gin"

	"github.com/chainterm/gatekeeper/service"
)

// SetupRouter builds the gin router.
func SetupRouter(handlers *Handlers, authService *service.AuthService) *gin.Engine {
	router := gin.Default()

	auth := router.Group("/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
		auth.GET("/session", SessionMiddleware(authService), handlers.Session)
	}

	api := router.Group("/api")
	api.Use(SessionMiddleware(authService))
	{
		api.GET("/balance", handlers.Balance)
		api.POST("/link/init", handlers.LinkInit)
		api.GET("/link/status", handlers.LinkStatus)
		api.GET("/link/invite", handlers.LinkInvite)
	}

	router.POST("/telegram/webhook", handlers.Webhook)

	admin := router.Group("/admin")
	{
		admin.POST("/webhook", handlers.SetWebhook)
		admin.DELETE("/webhook", handlers.DeleteWebhook)
		admin.POST("/reconcile", handlers.Reconcile)
	}

	return router
}
