package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"github.com/thoraxlab/thorax-backend/internal/services"
)

type StudyHandler struct {
	log       *logger.Logger
	studySvc  services.StudyService
	pathology services.PathologyDetectionService
}

func NewStudyHandler(log *logger.Logger, studySvc services.StudyService, pathology services.PathologyDetectionService) *StudyHandler {
	return &StudyHandler{
		log:       log.With("handler", "StudyHandler"),
		studySvc:  studySvc,
		pathology: pathology,
	}
}

// GET /api/studies
func (h *StudyHandler) ListStudies(c *gin.Context) {
	studies, err := h.studySvc.ListStudies(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"studies": studies})
}

// GET /api/studies/:id
func (h *StudyHandler) GetStudy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid study id: %w", err))
		return
	}
	study, err := h.studySvc.GetStudy(c.Request.Context(), nil, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, study)
}

// DELETE /api/studies/:id
func (h *StudyHandler) DeleteStudy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid study id: %w", err))
		return
	}
	if err := h.studySvc.DeleteStudy(c.Request.Context(), nil, id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}

// GET /api/studies/:id/pathology-images
func (h *StudyHandler) DownloadPathologyImages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid study id: %w", err))
		return
	}
	data, err := h.pathology.BuildPathologyImagesZip(c.Request.Context(), nil, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	serveZip(c, fmt.Sprintf("pathology_images_%s.zip", id), data)
}

// GET /api/studies/:id/pathology-dicoms
func (h *StudyHandler) DownloadPathologyDicoms(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid study id: %w", err))
		return
	}
	data, err := h.pathology.BuildPathologyDicomZip(c.Request.Context(), nil, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	serveZip(c, fmt.Sprintf("pathology_dicoms_%s.zip", id), data)
}

func serveZip(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/zip", data)
}
