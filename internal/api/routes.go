package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Commit Painter API
// @version 1.0
// @description API for painting contribution graphs with dated commits
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a GitHub token.

// SetupRouter configures the API routes. metrics may be nil.
func SetupRouter(h *Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h))

	r.GET("/healthz", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", h.StartJob)
			jobs.POST("/resume", h.ResumeJob)
			jobs.GET("/:owner/:repo/:year", h.GetJobStatus)
			jobs.DELETE("/:owner/:repo/:year", h.DiscardCheckpoint)
			jobs.POST("/:owner/:repo/:year/cancel", h.CancelJob)
		}

		v1.GET("/checkpoints", h.ListCheckpoints)
	}

	return r
}

// requestLogger logs every request through the handler's logger
func requestLogger(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("HTTP request")
	}
}
