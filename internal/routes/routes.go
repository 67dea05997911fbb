package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "tasknova/docs"
	"tasknova/internal/handlers"
	"tasknova/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	telegramHandler *handlers.TelegramHandler,
	taskHandler *handlers.TaskHandler,
	jwtSecret []byte,
) *gin.Engine {

	// ---- public
	r.GET("/", handlers.Home)
	r.GET("/healthz", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Telegram webhook, guarded by its own secret header
	r.POST("/webhook", telegramHandler.Webhook)
	r.POST("/integrations/telegram/webhook", telegramHandler.Webhook)

	// ---- admin (JWT when a secret is configured); read tokens cannot change anything
	admin := r.Group("/", middleware.AuthMiddleware(jwtSecret), middleware.ReadOnlyGuard())
	{
		admin.GET("/tasks", taskHandler.List)
		admin.GET("/stats", taskHandler.Stats)
		admin.GET("/analytics", taskHandler.Analytics)
		admin.GET("/scheduled", taskHandler.Scheduled)
		admin.DELETE("/tasks/:id", middleware.RequireScope(middleware.ScopeWrite), taskHandler.Cancel)
	}

	return r
}
