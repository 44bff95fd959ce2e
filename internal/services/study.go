package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

type StudyService interface {
	ListStudies(ctx context.Context, tx *gorm.DB) ([]*types.Study, error)
	GetStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (*StudyWithSeries, error)
	// IsDuplicateArchive reports whether an archive with this name was
	// already ingested; duplicates are skipped before any extraction work.
	IsDuplicateArchive(ctx context.Context, tx *gorm.DB, archiveName string) (bool, error)
	DeleteStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) error
}

type StudyWithSeries struct {
	Study  *types.Study    `json:"study"`
	Series []*types.Series `json:"series"`
}

type studyService struct {
	db                *gorm.DB
	log               *logger.Logger
	studyRepo         repos.StudyRepo
	seriesRepo        repos.SeriesRepo
	studyMappingRepo  repos.StudyDicomMappingRepo
	seriesMappingRepo repos.SeriesDicomMappingRepo
}

func NewStudyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	studyRepo repos.StudyRepo,
	seriesRepo repos.SeriesRepo,
	studyMappingRepo repos.StudyDicomMappingRepo,
	seriesMappingRepo repos.SeriesDicomMappingRepo,
) StudyService {
	return &studyService{
		db:                db,
		log:               baseLog.With("service", "StudyService"),
		studyRepo:         studyRepo,
		seriesRepo:        seriesRepo,
		studyMappingRepo:  studyMappingRepo,
		seriesMappingRepo: seriesMappingRepo,
	}
}

func (s *studyService) ListStudies(ctx context.Context, tx *gorm.DB) ([]*types.Study, error) {
	return s.studyRepo.List(dbctx.Context{Ctx: ctx, Tx: tx})
}

func (s *studyService) GetStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (*StudyWithSeries, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	study, err := s.studyRepo.GetByID(dbc, studyID)
	if err != nil {
		return nil, err
	}
	series, err := s.seriesRepo.GetByStudyID(dbc, studyID)
	if err != nil {
		return nil, err
	}
	return &StudyWithSeries{Study: study, Series: series}, nil
}

func (s *studyService) IsDuplicateArchive(ctx context.Context, tx *gorm.DB, archiveName string) (bool, error) {
	return s.studyRepo.ExistsByArchiveName(dbctx.Context{Ctx: ctx, Tx: tx}, archiveName)
}

func (s *studyService) DeleteStudy(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	series, err := s.seriesRepo.GetByStudyID(dbc, studyID)
	if err != nil {
		return err
	}
	seriesIDs := make([]uuid.UUID, 0, len(series))
	for _, sr := range series {
		seriesIDs = append(seriesIDs, sr.ID)
	}

	if err := s.seriesMappingRepo.DeleteBySeriesIDs(dbc, seriesIDs); err != nil {
		return fmt.Errorf("delete series mappings: %w", err)
	}
	if err := s.studyMappingRepo.DeleteByStudyIDs(dbc, []uuid.UUID{studyID}); err != nil {
		return fmt.Errorf("delete study mappings: %w", err)
	}
	if err := s.seriesRepo.SoftDeleteByStudyIDs(dbc, []uuid.UUID{studyID}); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	if err := s.studyRepo.SoftDeleteByIDs(dbc, []uuid.UUID{studyID}); err != nil {
		return fmt.Errorf("delete study: %w", err)
	}

	s.log.Info("Study deleted", "study_id", studyID, "series_count", len(seriesIDs))
	return nil
}
