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

type StudyRepo interface {
	Create(dbc dbctx.Context, study *types.Study) (*types.Study, error)
	GetByID(dbc dbctx.Context, studyID uuid.UUID) (*types.Study, error)
	GetByUploadBatchID(dbc dbctx.Context, batchID uuid.UUID) ([]*types.Study, error)
	List(dbc dbctx.Context) ([]*types.Study, error)
	ExistsByArchiveName(dbc dbctx.Context, archiveName string) (bool, error)
	Update(dbc dbctx.Context, study *types.Study) error
	UpdateFields(dbc dbctx.Context, studyID uuid.UUID, fields map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, studyIDs []uuid.UUID) error
}

type studyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyRepo(db *gorm.DB, baseLog *logger.Logger) StudyRepo {
	repoLog := baseLog.With("repo", "StudyRepo")
	return &studyRepo{db: db, log: repoLog}
}

func (r *studyRepo) Create(dbc dbctx.Context, study *types.Study) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(study).Error; err != nil {
		return nil, err
	}
	return study, nil
}

func (r *studyRepo) GetByID(dbc dbctx.Context, studyID uuid.UUID) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", studyID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *studyRepo) GetByUploadBatchID(dbc dbctx.Context, batchID uuid.UUID) ([]*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Where("upload_batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *studyRepo) List(dbc dbctx.Context) ([]*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *studyRepo) ExistsByArchiveName(dbc dbctx.Context, archiveName string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Study{}).
		Where("archive_name = ?", archiveName).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *studyRepo) Update(dbc dbctx.Context, study *types.Study) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Save(study).Error; err != nil {
		return err
	}
	return nil
}

func (r *studyRepo) UpdateFields(dbc dbctx.Context, studyID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Study{}).
		Where("id = ?", studyID).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *studyRepo) SoftDeleteByIDs(dbc dbctx.Context, studyIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(studyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", studyIDs).
		Delete(&types.Study{}).Error; err != nil {
		return err
	}
	return nil
}
