package studies

import (
	"errors"

	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/errs"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"

	types "github.com/thoraxlab/thorax-backend/internal/domain"
)

type ActiveAnalysisRepo interface {
	Get(dbc dbctx.Context) (*types.ActiveAnalysis, error)
	Create(dbc dbctx.Context, marker *types.ActiveAnalysis) (*types.ActiveAnalysis, error)
	Delete(dbc dbctx.Context) error
}

type activeAnalysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActiveAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) ActiveAnalysisRepo {
	repoLog := baseLog.With("repo", "ActiveAnalysisRepo")
	return &activeAnalysisRepo{db: db, log: repoLog}
}

func (r *activeAnalysisRepo) Get(dbc dbctx.Context) (*types.ActiveAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ActiveAnalysis
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", types.ActiveAnalysisRowID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *activeAnalysisRepo) Create(dbc dbctx.Context, marker *types.ActiveAnalysis) (*types.ActiveAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	marker.ID = types.ActiveAnalysisRowID
	if err := transaction.WithContext(dbc.Ctx).Create(marker).Error; err != nil {
		return nil, err
	}
	return marker, nil
}

func (r *activeAnalysisRepo) Delete(dbc dbctx.Context) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", types.ActiveAnalysisRowID).
		Delete(&types.ActiveAnalysis{}).Error; err != nil {
		return err
	}
	return nil
}
