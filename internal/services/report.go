package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/thoraxlab/thorax-backend/internal/data/repos"
	"github.com/thoraxlab/thorax-backend/internal/pkg/dbctx"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// ReportService renders study results as an Excel workbook.
type ReportService interface {
	GenerateStudiesReport(ctx context.Context, tx *gorm.DB) ([]byte, error)
}

type reportService struct {
	db        *gorm.DB
	log       *logger.Logger
	studyRepo repos.StudyRepo
}

func NewReportService(db *gorm.DB, baseLog *logger.Logger, studyRepo repos.StudyRepo) ReportService {
	return &reportService{
		db:        db,
		log:       baseLog.With("service", "ReportService"),
		studyRepo: studyRepo,
	}
}

var reportHeaders = []string{
	"Archive", "Study Path", "Probability of Pathology", "Pathology",
	"Status", "Processing Time (s)", "Error",
}

func (s *reportService) GenerateStudiesReport(ctx context.Context, tx *gorm.DB) ([]byte, error) {
	studies, err := s.studyRepo.List(dbctx.Context{Ctx: ctx, Tx: tx})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	const sheet = "Studies"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for col, header := range reportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for row, study := range studies {
		values := []interface{}{
			study.ArchiveName,
			deref(study.StudyPath),
			derefFloat(study.ProbabilityOfPathology),
			derefBool(study.Pathology),
			string(study.ProcessingStatus),
			derefFloat(study.ProcessingTime),
			deref(study.ErrorMessage),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	s.log.Info("Studies report generated", "studies", len(studies))
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}

func derefBool(b *bool) interface{} {
	if b == nil {
		return ""
	}
	return *b
}
