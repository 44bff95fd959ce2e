package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/thoraxlab/thorax-backend/internal/handlers"
)

type RouterConfig struct {
	AllowOrigins []string

	UploadHandler  *handlers.UploadHandler
	StudyHandler   *handlers.StudyHandler
	BatchHandler   *handlers.BatchHandler
	ReportHandler  *handlers.ReportHandler
	CleanupHandler *handlers.CleanupHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/studies/upload", cfg.UploadHandler.UploadStudies)
		api.GET("/studies", cfg.StudyHandler.ListStudies)
		api.GET("/studies/report", cfg.ReportHandler.DownloadStudiesReport)
		api.GET("/studies/:id", cfg.StudyHandler.GetStudy)
		api.DELETE("/studies/:id", cfg.StudyHandler.DeleteStudy)
		api.GET("/studies/:id/pathology-images", cfg.StudyHandler.DownloadPathologyImages)
		api.GET("/studies/:id/pathology-dicoms", cfg.StudyHandler.DownloadPathologyDicoms)

		api.GET("/batches", cfg.BatchHandler.ListBatches)
		api.GET("/batches/:id/statistics", cfg.BatchHandler.GetBatchStatistics)

		api.POST("/cleanup/files", cfg.CleanupHandler.CleanupFiles)
	}

	return router
}

// ParseOrigins splits a comma-separated origin list from the environment.
func ParseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
