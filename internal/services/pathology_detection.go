package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/clients/ml"
	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// PathologyDetectionService sends a processed study's images to the
// scoring service and persists the aggregate result.
type PathologyDetectionService interface {
	// DetectPathologies scores the study and writes the result onto the
	// study row and every series row. The study-level aggregate is
	// deliberately broadcast; per-series scoring is not supported by the
	// scoring service.
	DetectPathologies(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) error
	// ResolvePathologyDicoms maps flagged images back to the DICOM files
	// they were rendered from and persists the list.
	ResolvePathologyDicoms(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]string, error)
	BuildPathologyImagesZip(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]byte, error)
	BuildPathologyDicomZip(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]byte, error)
}

type pathologyDetectionService struct {
	db         *gorm.DB
	log        *logger.Logger
	studyRepo  repos.StudyRepo
	seriesRepo repos.SeriesRepo
	mlClient   ml.Client
}

func NewPathologyDetectionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	studyRepo repos.StudyRepo,
	seriesRepo repos.SeriesRepo,
	mlClient ml.Client,
) PathologyDetectionService {
	return &pathologyDetectionService{
		db:         db,
		log:        baseLog.With("service", "PathologyDetectionService"),
		studyRepo:  studyRepo,
		seriesRepo: seriesRepo,
		mlClient:   mlClient,
	}
}

func (s *pathologyDetectionService) DetectPathologies(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := s.log.With("study_id", studyID)

	seriesRows, err := s.seriesRepo.GetByStudyID(dbc, studyID)
	if err != nil {
		return err
	}

	imagePaths := collectImages(seriesRows)
	if len(imagePaths) == 0 {
		return fmt.Errorf("study %s has no extracted images to score", studyID)
	}

	pred, err := s.mlClient.PredictStudy(ctx, studyID.String(), imagePaths)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	pathology := pred.PredictedClass == 1
	pathologyImages := filterLungImages(pred.PathologyImages)
	imagesJSON, err := json.Marshal(pathologyImages)
	if err != nil {
		return fmt.Errorf("encode pathology images: %w", err)
	}

	if err := s.studyRepo.UpdateFields(dbc, studyID, map[string]interface{}{
		"probability_of_pathology": pred.MeanProb,
		"pathology":                pathology,
		"ci_95":                    pred.CI95,
		"pathology_images":         datatypes.JSON(imagesJSON),
	}); err != nil {
		return fmt.Errorf("persist study score: %w", err)
	}
	for _, sr := range seriesRows {
		if err := s.seriesRepo.UpdateFields(dbc, sr.ID, map[string]interface{}{
			"probability_of_pathology": pred.MeanProb,
			"pathology":                pathology,
			"ci_95":                    pred.CI95,
		}); err != nil {
			return fmt.Errorf("persist series score: %w", err)
		}
	}

	log.Info("Pathology detection complete",
		"mean_prob", pred.MeanProb,
		"pathology", pathology,
		"flagged_images", len(pathologyImages),
		"series_updated", len(seriesRows))
	return nil
}

func (s *pathologyDetectionService) ResolvePathologyDicoms(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]string, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	study, err := s.studyRepo.GetByID(dbc, studyID)
	if err != nil {
		return nil, err
	}
	seriesRows, err := s.seriesRepo.GetByStudyID(dbc, studyID)
	if err != nil {
		return nil, err
	}

	var flagged []string
	if len(study.PathologyImages) > 0 {
		if err := json.Unmarshal(study.PathologyImages, &flagged); err != nil {
			return nil, fmt.Errorf("decode pathology images: %w", err)
		}
	}
	if len(flagged) == 0 {
		return nil, nil
	}

	dicomFiles := collectDicoms(seriesRows)
	matched := matchImagesToDicoms(flagged, dicomFiles)

	dicomsJSON, err := json.Marshal(matched)
	if err != nil {
		return nil, fmt.Errorf("encode pathology dicom files: %w", err)
	}
	if err := s.studyRepo.UpdateFields(dbc, studyID, map[string]interface{}{
		"pathology_dicom_files": datatypes.JSON(dicomsJSON),
	}); err != nil {
		return nil, fmt.Errorf("persist pathology dicom files: %w", err)
	}
	return matched, nil
}

func (s *pathologyDetectionService) BuildPathologyImagesZip(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]byte, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	study, err := s.studyRepo.GetByID(dbc, studyID)
	if err != nil {
		return nil, err
	}
	var flagged []string
	if len(study.PathologyImages) > 0 {
		if err := json.Unmarshal(study.PathologyImages, &flagged); err != nil {
			return nil, fmt.Errorf("decode pathology images: %w", err)
		}
	}
	if len(flagged) == 0 {
		return nil, fmt.Errorf("study %s has no pathology images", studyID)
	}
	return buildZip(flagged)
}

func (s *pathologyDetectionService) BuildPathologyDicomZip(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) ([]byte, error) {
	matched, err := s.ResolvePathologyDicoms(ctx, tx, studyID)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("study %s has no pathology DICOM files", studyID)
	}
	return buildZip(matched)
}

// collectImages gathers every PNG under the series image directories, in
// stable order.
func collectImages(seriesRows []*types.Series) []string {
	var paths []string
	for _, sr := range seriesRows {
		if sr.ImagesDir == nil {
			continue
		}
		entries, err := os.ReadDir(*sr.ImagesDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".png") {
				paths = append(paths, filepath.Join(*sr.ImagesDir, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths
}

func collectDicoms(seriesRows []*types.Series) []string {
	var paths []string
	for _, sr := range seriesRows {
		if sr.DicomDir == nil {
			continue
		}
		entries, err := os.ReadDir(*sr.DicomDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				paths = append(paths, filepath.Join(*sr.DicomDir, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// filterLungImages keeps only lung-window renders and drops duplicates;
// the three presets render the same frame and one copy is enough.
func filterLungImages(images []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, img := range images {
		if !strings.HasSuffix(img, "_lung.png") {
			continue
		}
		if _, ok := seen[img]; ok {
			continue
		}
		seen[img] = struct{}{}
		out = append(out, img)
	}
	return out
}

// matchImagesToDicoms resolves each flagged image back to its source
// DICOM file: image names are derived from the source file's stem, so a
// DICOM file matches when its stem prefixes the image name.
func matchImagesToDicoms(images, dicomFiles []string) []string {
	seen := make(map[string]struct{})
	var matched []string
	for _, img := range images {
		imgBase := filepath.Base(img)
		for _, dcm := range dicomFiles {
			stem := strings.TrimSuffix(filepath.Base(dcm), filepath.Ext(dcm))
			if !strings.HasPrefix(imgBase, stem+"_") {
				continue
			}
			if _, ok := seen[dcm]; ok {
				continue
			}
			seen[dcm] = struct{}{}
			matched = append(matched, dcm)
		}
	}
	return matched
}

func buildZip(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		w, err := zw.Create(filepath.Base(p))
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := io.Copy(w, f); err != nil {
			f.Close()
			return nil, fmt.Errorf("write %s: %w", p, err)
		}
		f.Close()
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
