package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"github.com/thoraxlab/thorax-backend/internal/services"
)

type UploadHandler struct {
	log       *logger.Logger
	uploadSvc services.BatchUploadService
}

func NewUploadHandler(log *logger.Logger, uploadSvc services.BatchUploadService) *UploadHandler {
	return &UploadHandler{
		log:       log.With("handler", "UploadHandler"),
		uploadSvc: uploadSvc,
	}
}

// POST /api/studies/upload
// Multipart upload of one or more ZIP archives under the "files" field.
func (h *UploadHandler) UploadStudies(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_form", fmt.Errorf("parse multipart form: %w", err))
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		RespondError(c, http.StatusBadRequest, "no_files", fmt.Errorf("no files in upload"))
		return
	}

	archives := make([]services.ArchiveUpload, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".zip") {
			RespondError(c, http.StatusBadRequest, "not_zip",
				fmt.Errorf("%s: only ZIP archives are accepted", fh.Filename))
			return
		}
		f, err := fh.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "unreadable_file",
				fmt.Errorf("open %s: %w", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "unreadable_file",
				fmt.Errorf("read %s: %w", fh.Filename, err))
			return
		}
		archives = append(archives, services.ArchiveUpload{Name: fh.Filename, Data: data})
	}

	summary, err := h.uploadSvc.UploadBatch(c.Request.Context(), nil, archives)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, summary)
}
