package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/thoraxlab/thorax-backend/internal/data/repos/testutil"
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
)

func TestGenerateStudiesReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewReportService(env.db, env.log, env.studyRepo)

	study := testutil.SeedStudy(t, ctx, env.db, nil, "report.zip")
	if err := env.studyRepo.UpdateFields(dbctx.Context{Ctx: ctx}, study.ID, map[string]interface{}{
		"processing_status":        types.StatusSuccess,
		"study_path":               "report.zip/ser1",
		"probability_of_pathology": 0.42,
		"pathology":                false,
		"processing_time":          12.5,
	}); err != nil {
		t.Fatalf("update study: %v", err)
	}

	data, err := svc.GenerateStudiesReport(ctx, nil)
	if err != nil {
		t.Fatalf("GenerateStudiesReport: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue("Studies", "A1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "Archive" {
		t.Errorf("header A1 = %q, want Archive", header)
	}

	archive, err := f.GetCellValue("Studies", "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if archive != "report.zip" {
		t.Errorf("A2 = %q, want report.zip", archive)
	}
	path, err := f.GetCellValue("Studies", "B2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if path != "report.zip/ser1" {
		t.Errorf("B2 = %q, want report.zip/ser1", path)
	}
	status, err := f.GetCellValue("Studies", "E2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if status != string(types.StatusSuccess) {
		t.Errorf("E2 = %q, want %s", status, types.StatusSuccess)
	}
}

func TestGenerateStudiesReportEmpty(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReportService(env.db, env.log, env.studyRepo)

	data, err := svc.GenerateStudiesReport(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateStudiesReport: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Studies")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want header only", len(rows))
	}
}
