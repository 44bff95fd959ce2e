package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/thoraxlab/thorax-backend/internal/domain"
)

func SeedUploadBatch(tb testing.TB, ctx context.Context, tx *gorm.DB, total int) *types.UploadBatch {
	tb.Helper()
	b := &types.UploadBatch{
		ID:           uuid.New(),
		UploadDate:   time.Now().UTC(),
		TotalStudies: total,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed upload batch: %v", err)
	}
	return b
}

func SeedStudy(tb testing.TB, ctx context.Context, tx *gorm.DB, batchID *uuid.UUID, archiveName string) *types.Study {
	tb.Helper()
	s := &types.Study{
		ID:               uuid.New(),
		UploadBatchID:    batchID,
		ArchiveName:      archiveName,
		ProcessingStatus: types.StatusPending,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed study: %v", err)
	}
	return s
}

func SeedSeries(tb testing.TB, ctx context.Context, tx *gorm.DB, studyID uuid.UUID) *types.Series {
	tb.Helper()
	s := &types.Series{
		ID:               uuid.New(),
		StudyID:          studyID,
		ProcessingStatus: types.StatusPending,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed series: %v", err)
	}
	return s
}
