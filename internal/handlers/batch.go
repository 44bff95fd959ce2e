package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"github.com/thoraxlab/thorax-backend/internal/services"
)

type BatchHandler struct {
	log      *logger.Logger
	batchSvc services.UploadBatchService
}

func NewBatchHandler(log *logger.Logger, batchSvc services.UploadBatchService) *BatchHandler {
	return &BatchHandler{
		log:      log.With("handler", "BatchHandler"),
		batchSvc: batchSvc,
	}
}

// GET /api/batches
func (h *BatchHandler) ListBatches(c *gin.Context) {
	batches, err := h.batchSvc.ListBatches(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"batches": batches})
}

// GET /api/batches/:id/statistics
func (h *BatchHandler) GetBatchStatistics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid batch id: %w", err))
		return
	}
	stats, err := h.batchSvc.Statistics(c.Request.Context(), nil, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, stats)
}
