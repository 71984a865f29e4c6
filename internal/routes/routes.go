package routes

import (
	"net/http"

	"scale_backend/internal/handlers"
	"scale_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	authMiddleware gin.HandlerFunc,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := ginRouter.Group("/api")
	for _, h := range appHandlers.All() {
		h.RegisterRoutes(api, authMiddleware)
	}

	logger.Debug("HTTP routes registered", "count", len(ginRouter.Routes()))
}
