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

type UploadBatchRepo interface {
	Create(dbc dbctx.Context, batch *types.UploadBatch) (*types.UploadBatch, error)
	GetByID(dbc dbctx.Context, batchID uuid.UUID) (*types.UploadBatch, error)
	List(dbc dbctx.Context) ([]*types.UploadBatch, error)
	Update(dbc dbctx.Context, batch *types.UploadBatch) error
}

type uploadBatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadBatchRepo(db *gorm.DB, baseLog *logger.Logger) UploadBatchRepo {
	repoLog := baseLog.With("repo", "UploadBatchRepo")
	return &uploadBatchRepo{db: db, log: repoLog}
}

func (r *uploadBatchRepo) Create(dbc dbctx.Context, batch *types.UploadBatch) (*types.UploadBatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *uploadBatchRepo) GetByID(dbc dbctx.Context, batchID uuid.UUID) (*types.UploadBatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.UploadBatch
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", batchID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *uploadBatchRepo) List(dbc dbctx.Context) ([]*types.UploadBatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.UploadBatch
	if err := transaction.WithContext(dbc.Ctx).
		Order("upload_date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *uploadBatchRepo) Update(dbc dbctx.Context, batch *types.UploadBatch) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Save(batch).Error; err != nil {
		return err
	}
	return nil
}
