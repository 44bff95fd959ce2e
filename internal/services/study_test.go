package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/thoraxlab/thorax-backend/internal/data/repos/testutil"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/errs"
)

func TestGetStudyWithSeries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.studyService()

	study := testutil.SeedStudy(t, ctx, env.db, nil, "a.zip")
	testutil.SeedSeries(t, ctx, env.db, study.ID)
	testutil.SeedSeries(t, ctx, env.db, study.ID)

	got, err := svc.GetStudy(ctx, nil, study.ID)
	if err != nil {
		t.Fatalf("GetStudy: %v", err)
	}
	if got.Study.ArchiveName != "a.zip" {
		t.Errorf("archive = %s, want a.zip", got.Study.ArchiveName)
	}
	if len(got.Series) != 2 {
		t.Errorf("series = %d, want 2", len(got.Series))
	}

	if _, err := svc.GetStudy(ctx, nil, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown study = %v, want ErrNotFound", err)
	}
}

func TestIsDuplicateArchive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.studyService()

	testutil.SeedStudy(t, ctx, env.db, nil, "seen.zip")

	dup, err := svc.IsDuplicateArchive(ctx, nil, "seen.zip")
	if err != nil {
		t.Fatalf("IsDuplicateArchive: %v", err)
	}
	if !dup {
		t.Error("expected seen.zip to be a duplicate")
	}
	dup, err = svc.IsDuplicateArchive(ctx, nil, "new.zip")
	if err != nil {
		t.Fatalf("IsDuplicateArchive: %v", err)
	}
	if dup {
		t.Error("new.zip must not be a duplicate")
	}
}

func TestDeleteStudy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.studyService()
	mapping := env.mappingService()

	study := testutil.SeedStudy(t, ctx, env.db, nil, "del.zip")
	series := testutil.SeedSeries(t, ctx, env.db, study.ID)
	if _, _, err := mapping.EnsureStudyMapping(ctx, nil, "1.2.840.600.1", study.ID); err != nil {
		t.Fatalf("map study: %v", err)
	}
	if err := mapping.CreateSeriesMapping(ctx, nil, "1.2.840.600.1.1", series.ID); err != nil {
		t.Fatalf("map series: %v", err)
	}

	if err := svc.DeleteStudy(ctx, nil, study.ID); err != nil {
		t.Fatalf("DeleteStudy: %v", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if _, err := env.studyRepo.GetByID(dbc, study.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("study after delete = %v, want ErrNotFound", err)
	}
	rows, err := env.seriesRepo.GetByStudyID(dbc, study.ID)
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("series after delete = %d, want 0", len(rows))
	}
	if _, err := env.studyMappingRepo.GetByStudyInstanceUID(dbc, "1.2.840.600.1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("study mapping after delete = %v, want ErrNotFound", err)
	}
	if _, err := env.seriesMappingRepo.GetBySeriesInstanceUID(dbc, "1.2.840.600.1.1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("series mapping after delete = %v, want ErrNotFound", err)
	}
}
