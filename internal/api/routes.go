package api

import (
	"net/http"
	"strconv"

	"github.com/huanlingzx/gemini-key/internal/auth"
	"github.com/huanlingzx/gemini-key/internal/config"
	"github.com/huanlingzx/gemini-key/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, handler *Handler, cfg *config.Config) {
	router.Use(requestMetrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	if cfg.Admin.Password != "" {
		apiGroup.Use(auth.AdminAuthMiddleware(cfg.Admin.Password))
	}
	{
		apiGroup.POST("/validate-keys", handler.ValidateKeysHandler)
		apiGroup.POST("/extract", handler.ExtractHandler)

		keysGroup := apiGroup.Group("/keys")
		{
			keysGroup.GET("", handler.ListKeysHandler)
			keysGroup.GET("/export", handler.ExportValidKeysHandler)
			keysGroup.DELETE("/invalid", handler.ClearInvalidHandler)
		}
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
