package services

import (
	"context"
	"math"
	"testing"
)

func TestUploadBatchCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewUploadBatchService(env.db, env.log, env.batchRepo)

	if _, err := svc.CreateBatch(ctx, nil, -1); err == nil {
		t.Error("negative total must be rejected")
	}

	batch, err := svc.CreateBatch(ctx, nil, 3)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	updated, err := svc.UpdateStats(ctx, nil, batch.ID, 2, 1)
	if err != nil {
		t.Fatalf("UpdateStats: %v", err)
	}
	if updated.ProcessedStudies != 2 || updated.FailedStudies != 1 {
		t.Errorf("counters = %d/%d, want 2/1", updated.ProcessedStudies, updated.FailedStudies)
	}

	if _, err := svc.UpdateStats(ctx, nil, batch.ID, 3, 1); err == nil {
		t.Error("processed+failed above total must be rejected")
	}
	if _, err := svc.UpdateStats(ctx, nil, batch.ID, -1, 0); err == nil {
		t.Error("negative counters must be rejected")
	}
}

func TestUploadBatchStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewUploadBatchService(env.db, env.log, env.batchRepo)

	batch, err := svc.CreateBatch(ctx, nil, 4)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if _, err := svc.UpdateStats(ctx, nil, batch.ID, 2, 1); err != nil {
		t.Fatalf("UpdateStats: %v", err)
	}

	stats, err := svc.Statistics(ctx, nil, batch.ID)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.PendingStudies != 1 {
		t.Errorf("pending = %d, want 1", stats.PendingStudies)
	}
	want := 2.0 / 3.0
	if math.Abs(stats.SuccessRate-want) > 1e-9 {
		t.Errorf("success rate = %f, want %f", stats.SuccessRate, want)
	}
}

func TestUploadBatchStatisticsNoFinishedStudies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewUploadBatchService(env.db, env.log, env.batchRepo)

	batch, err := svc.CreateBatch(ctx, nil, 2)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	stats, err := svc.Statistics(ctx, nil, batch.ID)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.SuccessRate != 0 {
		t.Errorf("success rate with no finished studies = %f, want 0", stats.SuccessRate)
	}
	if stats.PendingStudies != 2 {
		t.Errorf("pending = %d, want 2", stats.PendingStudies)
	}
}
