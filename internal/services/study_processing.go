package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/imaging"
	"github.com/thoraxlab/thorax-backend/internal/ingestion/archive"
	"github.com/thoraxlab/thorax-backend/internal/ingestion/inspect"
	"github.com/thoraxlab/thorax-backend/internal/ingestion/series"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// ProcessResult is the terminal outcome of processing one archive.
type ProcessResult struct {
	StudyID *uuid.UUID             `json:"study_id,omitempty"`
	Status  types.ProcessingStatus `json:"status"`
	Message string                 `json:"message,omitempty"`
}

type StudyProcessingService interface {
	// ProcessArchive runs one archive through unpack, inspection, series
	// selection and image extraction. Failures are converted into a
	// Failure result, never propagated as errors.
	ProcessArchive(ctx context.Context, tx *gorm.DB, zipPath, archiveName string, batchID *uuid.UUID) *ProcessResult
}

type studyProcessingService struct {
	db  *gorm.DB
	log *logger.Logger
	cfg Config

	studyRepo  repos.StudyRepo
	seriesRepo repos.SeriesRepo
	mapping    MappingService

	unpacker  *archive.Unpacker
	inspector *inspect.Inspector
	extractor *imaging.Extractor
}

func NewStudyProcessingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg Config,
	studyRepo repos.StudyRepo,
	seriesRepo repos.SeriesRepo,
	mapping MappingService,
) StudyProcessingService {
	serviceLog := baseLog.With("service", "StudyProcessingService")
	return &studyProcessingService{
		db:         db,
		log:        serviceLog,
		cfg:        cfg,
		studyRepo:  studyRepo,
		seriesRepo: seriesRepo,
		mapping:    mapping,
		unpacker:   archive.NewUnpacker(baseLog),
		inspector:  inspect.NewInspector(baseLog),
		extractor:  imaging.NewExtractor(baseLog),
	}
}

func (s *studyProcessingService) ProcessArchive(ctx context.Context, tx *gorm.DB, zipPath, archiveName string, batchID *uuid.UUID) (result *ProcessResult) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := s.log.With("archive", archiveName)

	unpackDir := filepath.Join(s.cfg.TempDir(), uuid.New().String())
	defer func() {
		if err := os.RemoveAll(unpackDir); err != nil {
			log.Warn("Failed to remove unpack dir", "dir", unpackDir, "error", err)
		}
	}()

	var studyID *uuid.UUID
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic during study processing", "panic", fmt.Sprintf("%v", r))
			result = s.fail(dbc, log, studyID, nil, fmt.Sprintf("internal error: %v", r))
		}
	}()

	startTime := time.Now()

	// Unpack before touching the database; a corrupt archive never
	// produces a study row.
	if _, err := s.unpacker.Unpack(zipPath, unpackDir); err != nil {
		log.Error("Archive unpack failed", "error", err)
		return &ProcessResult{Status: types.StatusFailure, Message: fmt.Sprintf("failed to unpack archive: %v", err)}
	}

	study := &types.Study{
		ID:                  uuid.New(),
		UploadBatchID:       batchID,
		ArchiveName:         archiveName,
		ProcessingStatus:    types.StatusProcessing,
		ProcessingStartTime: &startTime,
	}
	if s.cfg.SaveZipFiles {
		study.ZipPath = &zipPath
	}
	if _, err := s.studyRepo.Create(dbc, study); err != nil {
		log.Error("Failed to create study record", "error", err)
		return &ProcessResult{Status: types.StatusFailure, Message: fmt.Sprintf("failed to create study: %v", err)}
	}
	studyID = &study.ID
	log = log.With("study_id", study.ID)

	accepted, stats, err := s.inspector.Inspect(ctx, unpackDir)
	if err != nil {
		return s.fail(dbc, log, studyID, nil, fmt.Sprintf("inspection failed: %v", err))
	}
	if err := s.studyRepo.UpdateFields(dbc, study.ID, map[string]interface{}{
		"total_files_found": stats.TotalFiles,
		"dicom_files_found": stats.DicomFiles,
		"valid_ct_files":    stats.ValidCTFiles,
		"is_single_dicom":   stats.DicomFiles == 1,
	}); err != nil {
		return s.fail(dbc, log, studyID, nil, fmt.Sprintf("failed to persist inspection stats: %v", err))
	}

	studyUID, groups := series.GroupBySeries(accepted, log)
	if len(groups) == 0 {
		return s.fail(dbc, log, studyID, nil,
			fmt.Sprintf("no valid DICOM series found in archive (%d DICOM files, %d valid chest-CT)",
				stats.DicomFiles, stats.ValidCTFiles))
	}

	mappedID, reused, err := s.mapping.EnsureStudyMapping(ctx, tx, studyUID, study.ID)
	if err != nil {
		return s.fail(dbc, log, studyID, nil, fmt.Sprintf("study UID mapping failed: %v", err))
	}
	if reused {
		log.Info("Study UID previously mapped", "mapped_study_id", mappedID)
	}

	selection := series.SelectOptimal(archiveName, unpackDir, groups, log)
	if selection == nil {
		return s.fail(dbc, log, studyID, nil, "series selection produced no candidate")
	}

	seriesStart := time.Now()
	seriesRow := &types.Series{
		ID:               uuid.New(),
		StudyID:          study.ID,
		ProcessingStatus: types.StatusProcessing,
		DicomCount:       len(selection.Files),
	}
	if _, err := s.seriesRepo.Create(dbc, seriesRow); err != nil {
		return s.fail(dbc, log, studyID, nil, fmt.Sprintf("failed to create series: %v", err))
	}
	if err := s.mapping.CreateSeriesMapping(ctx, tx, selection.SeriesUID, seriesRow.ID); err != nil {
		return s.fail(dbc, log, studyID, &seriesRow.ID, fmt.Sprintf("series UID mapping failed: %v", err))
	}

	if err := s.studyRepo.UpdateFields(dbc, study.ID, map[string]interface{}{
		"study_path":           selection.StudyPath,
		"skipped_series_count": len(groups) - 1,
	}); err != nil {
		return s.fail(dbc, log, studyID, &seriesRow.ID, fmt.Sprintf("failed to persist study path: %v", err))
	}

	dicomPaths := make([]string, 0, len(selection.Files))
	for _, f := range selection.Files {
		dicomPaths = append(dicomPaths, f.Path)
	}

	seriesFields := map[string]interface{}{}
	if s.cfg.SaveExtractedData {
		dicomDir := s.cfg.SeriesDicomDir(study.ID, seriesRow.ID)
		if err := copyFiles(dicomPaths, dicomDir); err != nil {
			return s.fail(dbc, log, studyID, &seriesRow.ID, fmt.Sprintf("failed to copy DICOM files: %v", err))
		}
		seriesFields["dicom_dir"] = dicomDir
	}
	if s.cfg.SaveImages {
		imagesDir := s.cfg.SeriesImagesDir(study.ID, seriesRow.ID)
		if _, err := s.extractor.ExtractImages(ctx, dicomPaths, imagesDir); err != nil {
			return s.fail(dbc, log, studyID, &seriesRow.ID, fmt.Sprintf("image extraction failed: %v", err))
		}
		seriesFields["images_dir"] = imagesDir
	}

	seriesDuration := time.Since(seriesStart).Seconds()
	seriesFields["processing_time"] = seriesDuration
	if err := s.transitionSeries(dbc, seriesRow.ID, types.StatusSuccess, seriesFields); err != nil {
		return s.fail(dbc, log, studyID, &seriesRow.ID, fmt.Sprintf("failed to finalize series: %v", err))
	}

	studyDuration := time.Since(startTime).Seconds()
	if err := s.transitionStudy(dbc, study.ID, types.StatusSuccess, map[string]interface{}{
		"processing_time":        studyDuration,
		"processed_series_count": 1,
	}); err != nil {
		return s.fail(dbc, log, studyID, &seriesRow.ID, fmt.Sprintf("failed to finalize study: %v", err))
	}

	log.Info("Study processed",
		"series_id", seriesRow.ID,
		"dicom_count", len(selection.Files),
		"duration_seconds", studyDuration)
	return &ProcessResult{StudyID: studyID, Status: types.StatusSuccess}
}

// transitionStudy moves the study to next through the status state
// machine; an illegal transition leaves the row untouched.
func (s *studyProcessingService) transitionStudy(dbc dbctx.Context, studyID uuid.UUID, next types.ProcessingStatus, fields map[string]interface{}) error {
	study, err := s.studyRepo.GetByID(dbc, studyID)
	if err != nil {
		return err
	}
	status, err := study.ProcessingStatus.Transition(next)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["processing_status"] = status
	return s.studyRepo.UpdateFields(dbc, studyID, fields)
}

func (s *studyProcessingService) transitionSeries(dbc dbctx.Context, seriesID uuid.UUID, next types.ProcessingStatus, fields map[string]interface{}) error {
	series, err := s.seriesRepo.GetByID(dbc, seriesID)
	if err != nil {
		return err
	}
	status, err := series.ProcessingStatus.Transition(next)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["processing_status"] = status
	return s.seriesRepo.UpdateFields(dbc, seriesID, fields)
}

// fail marks the study (and series, when one exists) Failure and returns
// the matching result. Persistence errors during failure handling are
// logged and swallowed; the original message wins.
func (s *studyProcessingService) fail(dbc dbctx.Context, log *logger.Logger, studyID, seriesID *uuid.UUID, message string) *ProcessResult {
	log.Error("Study processing failed", "message", message)

	if seriesID != nil {
		if err := s.transitionSeries(dbc, *seriesID, types.StatusFailure, map[string]interface{}{
			"error_message": message,
		}); err != nil {
			log.Error("Failed to mark series as failed", "series_id", *seriesID, "error", err)
		}
	}
	if studyID != nil {
		if err := s.transitionStudy(dbc, *studyID, types.StatusFailure, map[string]interface{}{
			"error_message": message,
		}); err != nil {
			log.Error("Failed to mark study as failed", "study_id", *studyID, "error", err)
		}
	}
	return &ProcessResult{StudyID: studyID, Status: types.StatusFailure, Message: message}
}

func copyFiles(paths []string, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, p := range paths {
		if err := copyFile(p, filepath.Join(destDir, filepath.Base(p))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
