package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/clients/ml"
	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/ingestion/archive"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// ArchiveUpload is one ZIP received from a client.
type ArchiveUpload struct {
	Name string
	Data []byte
}

// BatchSummary is what the uploader gets back: counters plus the names
// of archives skipped as duplicates.
type BatchSummary struct {
	BatchID   uuid.UUID        `json:"batch_id"`
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Skipped   []string         `json:"skipped"`
	Results   []*ProcessResult `json:"results"`
}

type BatchUploadService interface {
	// UploadBatch processes archives sequentially under the busy marker.
	// A per-study failure moves to the next archive; an unreachable
	// scoring service aborts the whole batch before any file work.
	UploadBatch(ctx context.Context, tx *gorm.DB, archives []ArchiveUpload) (*BatchSummary, error)
}

type batchUploadService struct {
	db  *gorm.DB
	log *logger.Logger
	cfg Config

	studyRepo      repos.StudyRepo
	studyService   StudyService
	batchService   UploadBatchService
	activeAnalysis ActiveAnalysisService
	processing     StudyProcessingService
	pathology      PathologyDetectionService
	mlClient       ml.Client
}

func NewBatchUploadService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg Config,
	studyRepo repos.StudyRepo,
	studyService StudyService,
	batchService UploadBatchService,
	activeAnalysis ActiveAnalysisService,
	processing StudyProcessingService,
	pathology PathologyDetectionService,
	mlClient ml.Client,
) BatchUploadService {
	return &batchUploadService{
		db:             db,
		log:            baseLog.With("service", "BatchUploadService"),
		cfg:            cfg,
		studyRepo:      studyRepo,
		studyService:   studyService,
		batchService:   batchService,
		activeAnalysis: activeAnalysis,
		processing:     processing,
		pathology:      pathology,
		mlClient:       mlClient,
	}
}

func (s *batchUploadService) UploadBatch(ctx context.Context, tx *gorm.DB, archives []ArchiveUpload) (*BatchSummary, error) {
	if len(archives) == 0 {
		return nil, fmt.Errorf("upload contains no archives")
	}

	if err := s.activeAnalysis.Acquire(ctx, tx); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.activeAnalysis.Release(ctx, tx); err != nil {
			s.log.Error("Failed to release analysis marker", "error", err)
		}
	}()

	// The whole batch is pointless if scoring is down; fail fast before
	// any extraction work.
	if err := s.mlClient.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("aborting batch: %w", err)
	}

	batch, err := s.batchService.CreateBatch(ctx, tx, len(archives))
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{BatchID: batch.ID}
	for _, upload := range archives {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		dup, err := s.studyService.IsDuplicateArchive(ctx, tx, upload.Name)
		if err != nil {
			return summary, err
		}
		if dup {
			s.log.Info("Skipping duplicate archive", "archive", upload.Name)
			summary.Skipped = append(summary.Skipped, upload.Name)
			continue
		}

		result := s.processOne(ctx, tx, upload, batch.ID)
		summary.Results = append(summary.Results, result)
		if result.Status == types.StatusSuccess {
			summary.Processed++
		} else {
			summary.Failed++
		}
	}

	if _, err := s.batchService.UpdateStats(ctx, tx, batch.ID, summary.Processed, summary.Failed); err != nil {
		return summary, err
	}

	s.log.Info("Batch upload finished",
		"batch_id", batch.ID,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"skipped", len(summary.Skipped))
	return summary, nil
}

func (s *batchUploadService) processOne(ctx context.Context, tx *gorm.DB, upload ArchiveUpload, batchID uuid.UUID) *ProcessResult {
	zipPath, err := s.storeArchive(upload)
	if err != nil {
		return &ProcessResult{Status: types.StatusFailure, Message: err.Error()}
	}
	if !s.cfg.SaveZipFiles {
		defer os.Remove(zipPath)
	}

	result := s.processing.ProcessArchive(ctx, tx, zipPath, upload.Name, &batchID)
	if result.Status != types.StatusSuccess || result.StudyID == nil {
		return result
	}

	if err := s.pathology.DetectPathologies(ctx, tx, *result.StudyID); err != nil {
		message := fmt.Sprintf("pathology detection failed: %v", err)
		s.log.Error("Pathology detection failed", "study_id", *result.StudyID, "error", err)
		// Scoring runs after the study is already finalized Success; this
		// downgrade is the one write allowed past the status state machine.
		if uerr := s.studyRepo.UpdateFields(dbctx.Context{Ctx: ctx, Tx: tx}, *result.StudyID, map[string]interface{}{
			"processing_status": types.StatusFailure,
			"error_message":     message,
		}); uerr != nil {
			s.log.Error("Failed to mark study as failed after scoring error", "study_id", *result.StudyID, "error", uerr)
		}
		return &ProcessResult{StudyID: result.StudyID, Status: types.StatusFailure, Message: message}
	}
	return result
}

func (s *batchUploadService) storeArchive(upload ArchiveUpload) (string, error) {
	if err := os.MkdirAll(s.cfg.ZipDir(), 0o755); err != nil {
		return "", fmt.Errorf("create zip dir: %w", err)
	}
	zipPath := filepath.Join(s.cfg.ZipDir(), filepath.Base(upload.Name))
	if err := os.WriteFile(zipPath, upload.Data, 0o644); err != nil {
		return "", fmt.Errorf("store archive %s: %w", upload.Name, err)
	}
	if !archive.IsValidZip(zipPath) {
		_ = os.Remove(zipPath)
		return "", fmt.Errorf("archive %s is not a valid ZIP file", upload.Name)
	}
	return zipPath, nil
}
