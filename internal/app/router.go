package app

import (
	"qbank_backend/internal/config"
	"qbank_backend/internal/middleware"
	"qbank_backend/internal/util"
	"qbank_backend/pkg/monitoring"
	"qbank_backend/pkg/security"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.GET("/health", c.health.HealthCheck)

	// reads are open; writes need an API key when keys are configured
	write := middleware.APIKeyMiddleware(cfg.Server.APIKeys)

	documents := api.Group("/question-documents")
	{
		documents.GET("", c.document.List)
		documents.GET("/:id", c.document.Get)
		documents.GET("/:id/status", c.document.Status)
		documents.GET("/:id/questions", c.document.Questions)

		documents.POST("", write, security.MaxBodySize(util.MaxUploadSize+1<<20), c.document.Upload)
		documents.POST("/:id/extract", write, c.document.StartExtraction)
		documents.PUT("/:id/review", write, c.document.Review)
		documents.POST("/:id/recategorize", write, c.document.Recategorize)
		documents.DELETE("/:id", write, c.document.Delete)
	}

	api.GET("/subjects", c.taxonomy.ListSubjects)
	api.GET("/subjects/:id/taxonomy", c.taxonomy.Tree)
	api.POST("/subjects", write, c.taxonomy.CreateSubject)
	api.POST("/subjects/:id/units", write, c.taxonomy.CreateUnit)
	api.POST("/units/:id/topics", write, c.taxonomy.CreateTopic)

	papers := api.Group("/question-papers")
	{
		papers.POST("", write, c.paper.Generate)
		papers.GET("/:id", c.paper.Get)
		papers.GET("/:id/download", c.paper.Download)
	}
}
