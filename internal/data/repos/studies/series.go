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

type SeriesRepo interface {
	Create(dbc dbctx.Context, series *types.Series) (*types.Series, error)
	GetByID(dbc dbctx.Context, seriesID uuid.UUID) (*types.Series, error)
	GetByStudyID(dbc dbctx.Context, studyID uuid.UUID) ([]*types.Series, error)
	GetByStudyIDs(dbc dbctx.Context, studyIDs []uuid.UUID) ([]*types.Series, error)
	Update(dbc dbctx.Context, series *types.Series) error
	UpdateFields(dbc dbctx.Context, seriesID uuid.UUID, fields map[string]interface{}) error
	SoftDeleteByStudyIDs(dbc dbctx.Context, studyIDs []uuid.UUID) error
}

type seriesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeriesRepo(db *gorm.DB, baseLog *logger.Logger) SeriesRepo {
	repoLog := baseLog.With("repo", "SeriesRepo")
	return &seriesRepo{db: db, log: repoLog}
}

func (r *seriesRepo) Create(dbc dbctx.Context, series *types.Series) (*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(series).Error; err != nil {
		return nil, err
	}
	return series, nil
}

func (r *seriesRepo) GetByID(dbc dbctx.Context, seriesID uuid.UUID) (*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Series
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", seriesID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *seriesRepo) GetByStudyID(dbc dbctx.Context, studyID uuid.UUID) ([]*types.Series, error) {
	return r.GetByStudyIDs(dbc, []uuid.UUID{studyID})
}

func (r *seriesRepo) GetByStudyIDs(dbc dbctx.Context, studyIDs []uuid.UUID) ([]*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Series
	if len(studyIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id IN ?", studyIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *seriesRepo) Update(dbc dbctx.Context, series *types.Series) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Save(series).Error; err != nil {
		return err
	}
	return nil
}

func (r *seriesRepo) UpdateFields(dbc dbctx.Context, seriesID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Series{}).
		Where("id = ?", seriesID).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *seriesRepo) SoftDeleteByStudyIDs(dbc dbctx.Context, studyIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(studyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id IN ?", studyIDs).
		Delete(&types.Series{}).Error; err != nil {
		return err
	}
	return nil
}
