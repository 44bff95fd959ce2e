package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

type UploadBatchService interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, totalStudies int) (*types.UploadBatch, error)
	UpdateStats(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, processed, failed int) (*types.UploadBatch, error)
	GetBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*types.UploadBatch, error)
	ListBatches(ctx context.Context, tx *gorm.DB) ([]*types.UploadBatch, error)
	Statistics(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*BatchStatistics, error)
}

// BatchStatistics is the derived view of one batch's counters.
type BatchStatistics struct {
	BatchID          uuid.UUID `json:"batch_id"`
	TotalStudies     int       `json:"total_studies"`
	ProcessedStudies int       `json:"processed_studies"`
	FailedStudies    int       `json:"failed_studies"`
	PendingStudies   int       `json:"pending_studies"`
	SuccessRate      float64   `json:"success_rate"`
	UploadDate       time.Time `json:"upload_date"`
}

type uploadBatchService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.UploadBatchRepo
}

func NewUploadBatchService(db *gorm.DB, baseLog *logger.Logger, repo repos.UploadBatchRepo) UploadBatchService {
	return &uploadBatchService{
		db:   db,
		log:  baseLog.With("service", "UploadBatchService"),
		repo: repo,
	}
}

func (s *uploadBatchService) CreateBatch(ctx context.Context, tx *gorm.DB, totalStudies int) (*types.UploadBatch, error) {
	if totalStudies < 0 {
		return nil, fmt.Errorf("total studies must be non-negative, got %d", totalStudies)
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	batch := &types.UploadBatch{
		ID:           uuid.New(),
		UploadDate:   time.Now().UTC(),
		TotalStudies: totalStudies,
	}
	if _, err := s.repo.Create(dbc, batch); err != nil {
		return nil, fmt.Errorf("create upload batch: %w", err)
	}
	s.log.Info("Upload batch created", "batch_id", batch.ID, "total_studies", totalStudies)
	return batch, nil
}

func (s *uploadBatchService) UpdateStats(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, processed, failed int) (*types.UploadBatch, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	batch, err := s.repo.GetByID(dbc, batchID)
	if err != nil {
		return nil, err
	}
	if processed < 0 || failed < 0 {
		return nil, fmt.Errorf("batch counters must be non-negative: processed=%d failed=%d", processed, failed)
	}
	if processed+failed > batch.TotalStudies {
		return nil, fmt.Errorf("batch counters exceed total: processed=%d failed=%d total=%d",
			processed, failed, batch.TotalStudies)
	}

	batch.ProcessedStudies = processed
	batch.FailedStudies = failed
	if err := s.repo.Update(dbc, batch); err != nil {
		return nil, fmt.Errorf("update upload batch: %w", err)
	}
	return batch, nil
}

func (s *uploadBatchService) GetBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*types.UploadBatch, error) {
	return s.repo.GetByID(dbctx.Context{Ctx: ctx, Tx: tx}, batchID)
}

func (s *uploadBatchService) ListBatches(ctx context.Context, tx *gorm.DB) ([]*types.UploadBatch, error) {
	return s.repo.List(dbctx.Context{Ctx: ctx, Tx: tx})
}

func (s *uploadBatchService) Statistics(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*BatchStatistics, error) {
	batch, err := s.repo.GetByID(dbctx.Context{Ctx: ctx, Tx: tx}, batchID)
	if err != nil {
		return nil, err
	}

	stats := &BatchStatistics{
		BatchID:          batch.ID,
		TotalStudies:     batch.TotalStudies,
		ProcessedStudies: batch.ProcessedStudies,
		FailedStudies:    batch.FailedStudies,
		PendingStudies:   batch.TotalStudies - batch.ProcessedStudies - batch.FailedStudies,
		UploadDate:       batch.UploadDate,
	}
	finished := batch.ProcessedStudies + batch.FailedStudies
	if finished > 0 {
		stats.SuccessRate = float64(batch.ProcessedStudies) / float64(finished)
	}
	return stats, nil
}
