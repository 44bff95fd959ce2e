package services

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/errs"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// CleanupSummary reports what a mass cleanup touched.
type CleanupSummary struct {
	StudiesCleaned int      `json:"studies_cleaned"`
	Errors         []string `json:"errors,omitempty"`
}

// MassCleanupService removes stored files (archives, DICOM copies,
// images) for every study while keeping the database rows.
type MassCleanupService interface {
	CleanupAllFiles(ctx context.Context, tx *gorm.DB) (*CleanupSummary, error)
}

type massCleanupService struct {
	db             *gorm.DB
	log            *logger.Logger
	cfg            Config
	studyRepo      repos.StudyRepo
	activeAnalysis ActiveAnalysisService
}

func NewMassCleanupService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg Config,
	studyRepo repos.StudyRepo,
	activeAnalysis ActiveAnalysisService,
) MassCleanupService {
	return &massCleanupService{
		db:             db,
		log:            baseLog.With("service", "MassCleanupService"),
		cfg:            cfg,
		studyRepo:      studyRepo,
		activeAnalysis: activeAnalysis,
	}
}

func (s *massCleanupService) CleanupAllFiles(ctx context.Context, tx *gorm.DB) (*CleanupSummary, error) {
	busy, err := s.activeAnalysis.IsBusy(ctx, tx)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("%w: refusing to delete files during analysis", errs.ErrBusy)
	}

	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	studies, err := s.studyRepo.List(dbc)
	if err != nil {
		return nil, err
	}

	summary := &CleanupSummary{}
	for _, study := range studies {
		if study.IsFilesDeleted {
			continue
		}

		var failed bool
		remove := func(path string) {
			if err := os.RemoveAll(path); err != nil {
				failed = true
				summary.Errors = append(summary.Errors,
					fmt.Sprintf("study %s: remove %s: %v", study.ID, path, err))
			}
		}

		if study.ZipPath != nil {
			remove(*study.ZipPath)
		}
		remove(s.cfg.StudyDir(study.ID))

		if failed {
			continue
		}
		if err := s.studyRepo.UpdateFields(dbc, study.ID, map[string]interface{}{
			"is_files_deleted": true,
		}); err != nil {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("study %s: flag files deleted: %v", study.ID, err))
			continue
		}
		summary.StudiesCleaned++
	}

	s.log.Info("Mass cleanup finished",
		"studies_cleaned", summary.StudiesCleaned,
		"errors", len(summary.Errors))
	return summary, nil
}
