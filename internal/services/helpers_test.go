package services

import (
	"archive/zip"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/clients/ml"
	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	"github.com/thoraxlab/thorax-backend/internal/data/repos/testutil"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// testEnv wires a fresh database, temp upload dir and repos for one test.
type testEnv struct {
	db  *gorm.DB
	log *logger.Logger
	cfg Config

	studyRepo         repos.StudyRepo
	seriesRepo        repos.SeriesRepo
	studyMappingRepo  repos.StudyDicomMappingRepo
	seriesMappingRepo repos.SeriesDicomMappingRepo
	batchRepo         repos.UploadBatchRepo
	activeRepo        repos.ActiveAnalysisRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return &testEnv{
		db:  db,
		log: log,
		cfg: Config{
			UploadDir:         t.TempDir(),
			SaveZipFiles:      true,
			SaveExtractedData: true,
			SaveImages:        true,
		},
		studyRepo:         repos.NewStudyRepo(db, log),
		seriesRepo:        repos.NewSeriesRepo(db, log),
		studyMappingRepo:  repos.NewStudyDicomMappingRepo(db, log),
		seriesMappingRepo: repos.NewSeriesDicomMappingRepo(db, log),
		batchRepo:         repos.NewUploadBatchRepo(db, log),
		activeRepo:        repos.NewActiveAnalysisRepo(db, log),
	}
}

func (e *testEnv) mappingService() MappingService {
	return NewMappingService(e.db, e.log, e.studyMappingRepo, e.seriesMappingRepo)
}

func (e *testEnv) processingService() StudyProcessingService {
	return NewStudyProcessingService(e.db, e.log, e.cfg, e.studyRepo, e.seriesRepo, e.mappingService())
}

func (e *testEnv) activeAnalysisService() ActiveAnalysisService {
	return NewActiveAnalysisService(e.db, e.log, e.activeRepo)
}

func (e *testEnv) studyService() StudyService {
	return NewStudyService(e.db, e.log, e.studyRepo, e.seriesRepo, e.studyMappingRepo, e.seriesMappingRepo)
}

func (e *testEnv) batchUploadService(mlc ml.Client) BatchUploadService {
	batchService := NewUploadBatchService(e.db, e.log, e.batchRepo)
	pathology := NewPathologyDetectionService(e.db, e.log, e.studyRepo, e.seriesRepo, mlc)
	return NewBatchUploadService(
		e.db, e.log, e.cfg,
		e.studyRepo, e.studyService(), batchService,
		e.activeAnalysisService(), e.processingService(), pathology, mlc,
	)
}

// zipDir archives every regular file under srcDir, keeping relative paths.
func zipDir(t *testing.T, srcDir, zipPath string) {
	t.Helper()

	out, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create %s: %v", zipPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		t.Fatalf("zip %s: %v", srcDir, err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

// fakeMLClient is a scripted stand-in for the scoring service.
type fakeMLClient struct {
	healthErr error
	pred      *ml.Prediction
	predErr   error

	predictCalls int
	gotStudyID   string
	gotImages    []string
}

func (f *fakeMLClient) PredictStudy(ctx context.Context, studyID string, imagePaths []string) (*ml.Prediction, error) {
	f.predictCalls++
	f.gotStudyID = studyID
	f.gotImages = append([]string(nil), imagePaths...)
	if f.predErr != nil {
		return nil, f.predErr
	}
	if f.pred != nil {
		return f.pred, nil
	}
	return &ml.Prediction{MeanProb: 0.1, PredictedClass: 0, CI95: "0.05-0.15"}, nil
}

func (f *fakeMLClient) HealthCheck(ctx context.Context) error {
	return f.healthErr
}

var _ ml.Client = (*fakeMLClient)(nil)
