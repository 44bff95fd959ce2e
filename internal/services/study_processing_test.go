package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thoraxlab/thorax-backend/internal/data/repos/testutil"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/ingestion/dicomtest"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
)

func TestProcessArchiveSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stage := t.TempDir()
	folder := filepath.Join(stage, "axial")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		dicomtest.WriteFile(t, filepath.Join(folder, fmt.Sprintf("slice%02d.dcm", i)), dicomtest.Options{
			StudyUID:   "1.2.840.777.1",
			SeriesUID:  "1.2.840.777.1.1",
			SOPUID:     fmt.Sprintf("1.2.840.777.1.1.%d", i),
			BodyPart:   "CHEST",
			PixelValue: 100,
			Intercept:  "-1024",
		})
	}
	zipPath := filepath.Join(t.TempDir(), "chest.zip")
	zipDir(t, stage, zipPath)

	result := env.processingService().ProcessArchive(ctx, nil, zipPath, "chest.zip", nil)
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected Success, got %s (%s)", result.Status, result.Message)
	}
	if result.StudyID == nil {
		t.Fatal("expected study ID in result")
	}

	dbc := dbctx.Context{Ctx: ctx}
	study, err := env.studyRepo.GetByID(dbc, *result.StudyID)
	if err != nil {
		t.Fatalf("get study: %v", err)
	}
	if study.ProcessingStatus != types.StatusSuccess {
		t.Errorf("study status = %s, want Success", study.ProcessingStatus)
	}
	if study.TotalFilesFound != 5 || study.DicomFilesFound != 5 || study.ValidCTFiles != 5 {
		t.Errorf("file counters = %d/%d/%d, want 5/5/5",
			study.TotalFilesFound, study.DicomFilesFound, study.ValidCTFiles)
	}
	if study.StudyPath == nil || *study.StudyPath != "chest.zip/axial" {
		t.Errorf("study path = %v, want chest.zip/axial", study.StudyPath)
	}
	if study.ProcessedSeriesCount != 1 || study.SkippedSeriesCount != 0 {
		t.Errorf("series counters = %d/%d, want 1/0", study.ProcessedSeriesCount, study.SkippedSeriesCount)
	}
	if study.ProcessingTime == nil {
		t.Error("expected processing time to be recorded")
	}
	if study.IsSingleDicom {
		t.Error("five files must not be flagged single-DICOM")
	}

	seriesRows, err := env.seriesRepo.GetByStudyID(dbc, *result.StudyID)
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if len(seriesRows) != 1 {
		t.Fatalf("expected 1 series, got %d", len(seriesRows))
	}
	sr := seriesRows[0]
	if sr.ProcessingStatus != types.StatusSuccess || sr.DicomCount != 5 {
		t.Errorf("series status=%s count=%d, want Success/5", sr.ProcessingStatus, sr.DicomCount)
	}
	if sr.DicomDir == nil || sr.ImagesDir == nil {
		t.Fatal("expected dicom and images dirs to be persisted")
	}
	if n := countFiles(t, *sr.DicomDir); n != 5 {
		t.Errorf("copied DICOM files = %d, want 5", n)
	}
	if n := countFiles(t, *sr.ImagesDir); n != 15 {
		t.Errorf("extracted PNGs = %d, want 15 (5 slices x 3 presets)", n)
	}

	mapping, err := env.studyMappingRepo.GetByStudyInstanceUID(dbc, "1.2.840.777.1")
	if err != nil {
		t.Fatalf("get study mapping: %v", err)
	}
	if mapping.StudyID != *result.StudyID {
		t.Errorf("mapping points at %s, want %s", mapping.StudyID, *result.StudyID)
	}
}

func TestProcessArchiveNoDicomFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stage := t.TempDir()
	if err := os.WriteFile(filepath.Join(stage, "readme.txt"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "notes.zip")
	zipDir(t, stage, zipPath)

	result := env.processingService().ProcessArchive(ctx, nil, zipPath, "notes.zip", nil)
	if result.Status != types.StatusFailure {
		t.Fatalf("expected Failure, got %s", result.Status)
	}
	if result.StudyID == nil {
		t.Fatal("a readable archive must still produce a study row")
	}

	study, err := env.studyRepo.GetByID(dbctx.Context{Ctx: ctx}, *result.StudyID)
	if err != nil {
		t.Fatalf("get study: %v", err)
	}
	if study.ProcessingStatus != types.StatusFailure {
		t.Errorf("study status = %s, want Failure", study.ProcessingStatus)
	}
	if study.DicomFilesFound != 0 {
		t.Errorf("dicom files found = %d, want 0", study.DicomFilesFound)
	}
	if study.ErrorMessage == nil {
		t.Error("expected error message on failed study")
	}
}

func TestProcessArchiveRejectedModality(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stage := t.TempDir()
	dicomtest.WriteFile(t, filepath.Join(stage, "brain.dcm"), dicomtest.Options{
		Modality:   "MR",
		PixelValue: 10,
	})
	zipPath := filepath.Join(t.TempDir(), "brain.zip")
	zipDir(t, stage, zipPath)

	result := env.processingService().ProcessArchive(ctx, nil, zipPath, "brain.zip", nil)
	if result.Status != types.StatusFailure {
		t.Fatalf("expected Failure, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "no valid DICOM series") {
		t.Errorf("unexpected failure message: %s", result.Message)
	}

	study, err := env.studyRepo.GetByID(dbctx.Context{Ctx: ctx}, *result.StudyID)
	if err != nil {
		t.Fatalf("get study: %v", err)
	}
	if study.DicomFilesFound != 1 || study.ValidCTFiles != 0 {
		t.Errorf("counters = %d/%d, want 1 DICOM and 0 valid", study.DicomFilesFound, study.ValidCTFiles)
	}
}

func TestProcessArchiveCorruptZip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	zipPath := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(zipPath, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := env.processingService().ProcessArchive(ctx, nil, zipPath, "broken.zip", nil)
	if result.Status != types.StatusFailure {
		t.Fatalf("expected Failure, got %s", result.Status)
	}
	if result.StudyID != nil {
		t.Error("a corrupt archive must not produce a study row")
	}

	studies, err := env.studyRepo.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("list studies: %v", err)
	}
	if len(studies) != 0 {
		t.Errorf("expected no study rows, got %d", len(studies))
	}
}

func TestProcessingStatusTransitionsGuarded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc, ok := env.processingService().(*studyProcessingService)
	if !ok {
		t.Fatal("unexpected processing service implementation")
	}
	dbc := dbctx.Context{Ctx: ctx}

	study := testutil.SeedStudy(t, ctx, env.db, nil, "guard.zip")
	if err := svc.transitionStudy(dbc, study.ID, types.StatusSuccess, nil); err == nil {
		t.Fatal("Pending -> Success must be rejected")
	}
	if err := svc.transitionStudy(dbc, study.ID, types.StatusProcessing, nil); err != nil {
		t.Fatalf("Pending -> Processing: %v", err)
	}
	if err := svc.transitionStudy(dbc, study.ID, types.StatusSuccess, nil); err != nil {
		t.Fatalf("Processing -> Success: %v", err)
	}
	if err := svc.transitionStudy(dbc, study.ID, types.StatusFailure, nil); err == nil {
		t.Fatal("terminal study must not change status again")
	}
	reloaded, err := env.studyRepo.GetByID(dbc, study.ID)
	if err != nil {
		t.Fatalf("get study: %v", err)
	}
	if reloaded.ProcessingStatus != types.StatusSuccess {
		t.Errorf("study status = %s, want Success", reloaded.ProcessingStatus)
	}

	series := testutil.SeedSeries(t, ctx, env.db, study.ID)
	if err := svc.transitionSeries(dbc, series.ID, types.StatusProcessing, nil); err != nil {
		t.Fatalf("series Pending -> Processing: %v", err)
	}
	if err := svc.transitionSeries(dbc, series.ID, types.StatusFailure, map[string]interface{}{
		"error_message": "decode failed",
	}); err != nil {
		t.Fatalf("series Processing -> Failure: %v", err)
	}
	sr, err := env.seriesRepo.GetByID(dbc, series.ID)
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if sr.ProcessingStatus != types.StatusFailure || sr.ErrorMessage == nil {
		t.Errorf("series = %s/%v, want Failure with message", sr.ProcessingStatus, sr.ErrorMessage)
	}
	if err := svc.transitionSeries(dbc, series.ID, types.StatusSuccess, nil); err == nil {
		t.Fatal("terminal series must not change status again")
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n
}
