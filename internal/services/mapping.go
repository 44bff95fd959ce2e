package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/errs"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// MappingService pins DICOM instance UIDs to internal identifiers.
type MappingService interface {
	// EnsureStudyMapping maps a StudyInstanceUID to a study row. When the
	// UID is already mapped the existing row wins and reused is true.
	EnsureStudyMapping(ctx context.Context, tx *gorm.DB, studyInstanceUID string, studyID uuid.UUID) (mappedID uuid.UUID, reused bool, err error)
	CreateSeriesMapping(ctx context.Context, tx *gorm.DB, seriesInstanceUID string, seriesID uuid.UUID) error
}

type mappingService struct {
	db         *gorm.DB
	log        *logger.Logger
	studyRepo  repos.StudyDicomMappingRepo
	seriesRepo repos.SeriesDicomMappingRepo
}

func NewMappingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	studyRepo repos.StudyDicomMappingRepo,
	seriesRepo repos.SeriesDicomMappingRepo,
) MappingService {
	return &mappingService{
		db:         db,
		log:        baseLog.With("service", "MappingService"),
		studyRepo:  studyRepo,
		seriesRepo: seriesRepo,
	}
}

func (s *mappingService) EnsureStudyMapping(ctx context.Context, tx *gorm.DB, studyInstanceUID string, studyID uuid.UUID) (uuid.UUID, bool, error) {
	if studyInstanceUID == "" {
		return uuid.Nil, false, fmt.Errorf("study instance UID is empty")
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	existing, err := s.studyRepo.GetByStudyInstanceUID(dbc, studyInstanceUID)
	if err == nil {
		s.log.Info("Study UID already mapped, reusing",
			"study_instance_uid", studyInstanceUID,
			"study_id", existing.StudyID)
		return existing.StudyID, true, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return uuid.Nil, false, err
	}

	if _, err := s.studyRepo.Create(dbc, &types.StudyDicomMapping{
		ID:               uuid.New(),
		StudyInstanceUID: studyInstanceUID,
		StudyID:          studyID,
	}); err != nil {
		return uuid.Nil, false, fmt.Errorf("create study mapping: %w", err)
	}
	return studyID, false, nil
}

func (s *mappingService) CreateSeriesMapping(ctx context.Context, tx *gorm.DB, seriesInstanceUID string, seriesID uuid.UUID) error {
	if seriesInstanceUID == "" {
		return fmt.Errorf("series instance UID is empty")
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	if _, err := s.seriesRepo.Create(dbc, &types.SeriesDicomMapping{
		ID:                uuid.New(),
		SeriesInstanceUID: seriesInstanceUID,
		SeriesID:          seriesID,
	}); err != nil {
		return fmt.Errorf("create series mapping: %w", err)
	}
	return nil
}
