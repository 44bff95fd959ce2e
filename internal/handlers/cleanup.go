package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"github.com/thoraxlab/thorax-backend/internal/services"
)

type CleanupHandler struct {
	log        *logger.Logger
	cleanupSvc services.MassCleanupService
}

func NewCleanupHandler(log *logger.Logger, cleanupSvc services.MassCleanupService) *CleanupHandler {
	return &CleanupHandler{
		log:        log.With("handler", "CleanupHandler"),
		cleanupSvc: cleanupSvc,
	}
}

// POST /api/cleanup/files
func (h *CleanupHandler) CleanupFiles(c *gin.Context) {
	summary, err := h.cleanupSvc.CleanupAllFiles(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, summary)
}
