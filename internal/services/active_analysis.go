package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/errs"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// ActiveAnalysisService guards the single-row busy marker. It is an
// advisory lock: two callers racing through Acquire can both observe
// "idle", and only the unique primary key stops the second insert.
type ActiveAnalysisService interface {
	Acquire(ctx context.Context, tx *gorm.DB) error
	Release(ctx context.Context, tx *gorm.DB) error
	IsBusy(ctx context.Context, tx *gorm.DB) (bool, error)
}

type activeAnalysisService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.ActiveAnalysisRepo
}

func NewActiveAnalysisService(db *gorm.DB, baseLog *logger.Logger, repo repos.ActiveAnalysisRepo) ActiveAnalysisService {
	return &activeAnalysisService{
		db:   db,
		log:  baseLog.With("service", "ActiveAnalysisService"),
		repo: repo,
	}
}

func (s *activeAnalysisService) Acquire(ctx context.Context, tx *gorm.DB) error {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	busy, err := s.IsBusy(ctx, tx)
	if err != nil {
		return err
	}
	if busy {
		return errs.ErrBusy
	}

	if _, err := s.repo.Create(dbc, &types.ActiveAnalysis{StartedAt: time.Now().UTC()}); err != nil {
		// Lost the race to another caller between check and insert.
		return fmt.Errorf("%w: %v", errs.ErrBusy, err)
	}
	s.log.Info("Analysis marker acquired")
	return nil
}

func (s *activeAnalysisService) Release(ctx context.Context, tx *gorm.DB) error {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	if err := s.repo.Delete(dbc); err != nil {
		return fmt.Errorf("release analysis marker: %w", err)
	}
	s.log.Info("Analysis marker released")
	return nil
}

func (s *activeAnalysisService) IsBusy(ctx context.Context, tx *gorm.DB) (bool, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	if _, err := s.repo.Get(dbc); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
