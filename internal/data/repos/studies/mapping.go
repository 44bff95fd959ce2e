package studies

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/errs"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"

	types "github.com/thoraxlab/thorax-backend/internal/domain"
)

type StudyDicomMappingRepo interface {
	Create(dbc dbctx.Context, mapping *types.StudyDicomMapping) (*types.StudyDicomMapping, error)
	GetByStudyInstanceUID(dbc dbctx.Context, uid string) (*types.StudyDicomMapping, error)
	GetByStudyID(dbc dbctx.Context, studyID uuid.UUID) ([]*types.StudyDicomMapping, error)
	DeleteByStudyIDs(dbc dbctx.Context, studyIDs []uuid.UUID) error
}

type studyDicomMappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyDicomMappingRepo(db *gorm.DB, baseLog *logger.Logger) StudyDicomMappingRepo {
	repoLog := baseLog.With("repo", "StudyDicomMappingRepo")
	return &studyDicomMappingRepo{db: db, log: repoLog}
}

func (r *studyDicomMappingRepo) Create(dbc dbctx.Context, mapping *types.StudyDicomMapping) (*types.StudyDicomMapping, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(mapping).Error; err != nil {
		return nil, err
	}
	return mapping, nil
}

func (r *studyDicomMappingRepo) GetByStudyInstanceUID(dbc dbctx.Context, uid string) (*types.StudyDicomMapping, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.StudyDicomMapping
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_instance_uid = ?", uid).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *studyDicomMappingRepo) GetByStudyID(dbc dbctx.Context, studyID uuid.UUID) ([]*types.StudyDicomMapping, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudyDicomMapping
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ?", studyID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *studyDicomMappingRepo) DeleteByStudyIDs(dbc dbctx.Context, studyIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(studyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id IN ?", studyIDs).
		Delete(&types.StudyDicomMapping{}).Error; err != nil {
		return err
	}
	return nil
}

type SeriesDicomMappingRepo interface {
	Create(dbc dbctx.Context, mapping *types.SeriesDicomMapping) (*types.SeriesDicomMapping, error)
	GetBySeriesInstanceUID(dbc dbctx.Context, uid string) (*types.SeriesDicomMapping, error)
	DeleteBySeriesIDs(dbc dbctx.Context, seriesIDs []uuid.UUID) error
}

type seriesDicomMappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeriesDicomMappingRepo(db *gorm.DB, baseLog *logger.Logger) SeriesDicomMappingRepo {
	repoLog := baseLog.With("repo", "SeriesDicomMappingRepo")
	return &seriesDicomMappingRepo{db: db, log: repoLog}
}

func (r *seriesDicomMappingRepo) Create(dbc dbctx.Context, mapping *types.SeriesDicomMapping) (*types.SeriesDicomMapping, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(mapping).Error; err != nil {
		return nil, err
	}
	return mapping, nil
}

func (r *seriesDicomMappingRepo) GetBySeriesInstanceUID(dbc dbctx.Context, uid string) (*types.SeriesDicomMapping, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.SeriesDicomMapping
	if err := transaction.WithContext(dbc.Ctx).
		Where("series_instance_uid = ?", uid).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *seriesDicomMappingRepo) DeleteBySeriesIDs(dbc dbctx.Context, seriesIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(seriesIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("series_id IN ?", seriesIDs).
		Delete(&types.SeriesDicomMapping{}).Error; err != nil {
		return err
	}
	return nil
}
