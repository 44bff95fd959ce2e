package main

import (
	"fmt"
	"os"

	"github.com/thoraxlab/thorax-backend/internal/clients/ml"
	"github.com/thoraxlab/thorax-backend/internal/data/db"
	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	"github.com/thoraxlab/thorax-backend/internal/handlers"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"github.com/thoraxlab/thorax-backend/internal/server"
	"github.com/thoraxlab/thorax-backend/internal/services"
	"github.com/thoraxlab/thorax-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()
	if err := db.AutoMigrateAll(thePG); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}

	// Config
	cfg := services.NewConfigFromEnv(log)

	// Repos
	log.Info("Setting up Repos from main...")
	studyRepo := repos.NewStudyRepo(thePG, log)
	seriesRepo := repos.NewSeriesRepo(thePG, log)
	studyMappingRepo := repos.NewStudyDicomMappingRepo(thePG, log)
	seriesMappingRepo := repos.NewSeriesDicomMappingRepo(thePG, log)
	uploadBatchRepo := repos.NewUploadBatchRepo(thePG, log)
	activeAnalysisRepo := repos.NewActiveAnalysisRepo(thePG, log)

	// Clients
	mlClient := ml.NewClient(log)

	// Services
	log.Info("Setting up Services from main...")
	activeAnalysisService := services.NewActiveAnalysisService(thePG, log, activeAnalysisRepo)
	uploadBatchService := services.NewUploadBatchService(thePG, log, uploadBatchRepo)
	mappingService := services.NewMappingService(thePG, log, studyMappingRepo, seriesMappingRepo)
	studyService := services.NewStudyService(thePG, log, studyRepo, seriesRepo, studyMappingRepo, seriesMappingRepo)
	processingService := services.NewStudyProcessingService(thePG, log, cfg, studyRepo, seriesRepo, mappingService)
	pathologyService := services.NewPathologyDetectionService(thePG, log, studyRepo, seriesRepo, mlClient)
	batchUploadService := services.NewBatchUploadService(
		thePG, log, cfg,
		studyRepo, studyService, uploadBatchService,
		activeAnalysisService, processingService, pathologyService, mlClient,
	)
	reportService := services.NewReportService(thePG, log, studyRepo)
	cleanupService := services.NewMassCleanupService(thePG, log, cfg, studyRepo, activeAnalysisService)

	// Handlers
	log.Info("Setting up handlers from main...")
	uploadHandler := handlers.NewUploadHandler(log, batchUploadService)
	studyHandler := handlers.NewStudyHandler(log, studyService, pathologyService)
	batchHandler := handlers.NewBatchHandler(log, uploadBatchService)
	reportHandler := handlers.NewReportHandler(log, reportService)
	cleanupHandler := handlers.NewCleanupHandler(log, cleanupService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:   server.ParseOrigins(os.Getenv("CORS_ALLOW_ORIGINS")),
		UploadHandler:  uploadHandler,
		StudyHandler:   studyHandler,
		BatchHandler:   batchHandler,
		ReportHandler:  reportHandler,
		CleanupHandler: cleanupHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
