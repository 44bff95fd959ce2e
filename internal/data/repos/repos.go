package repos

import (
	"github.com/thoraxlab/thorax-backend/internal/data/repos/studies"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type StudyRepo = studies.StudyRepo
type SeriesRepo = studies.SeriesRepo
type StudyDicomMappingRepo = studies.StudyDicomMappingRepo
type SeriesDicomMappingRepo = studies.SeriesDicomMappingRepo
type UploadBatchRepo = studies.UploadBatchRepo
type ActiveAnalysisRepo = studies.ActiveAnalysisRepo

func NewStudyRepo(db *gorm.DB, baseLog *logger.Logger) StudyRepo {
	return studies.NewStudyRepo(db, baseLog)
}
func NewSeriesRepo(db *gorm.DB, baseLog *logger.Logger) SeriesRepo {
	return studies.NewSeriesRepo(db, baseLog)
}
func NewStudyDicomMappingRepo(db *gorm.DB, baseLog *logger.Logger) StudyDicomMappingRepo {
	return studies.NewStudyDicomMappingRepo(db, baseLog)
}
func NewSeriesDicomMappingRepo(db *gorm.DB, baseLog *logger.Logger) SeriesDicomMappingRepo {
	return studies.NewSeriesDicomMappingRepo(db, baseLog)
}
func NewUploadBatchRepo(db *gorm.DB, baseLog *logger.Logger) UploadBatchRepo {
	return studies.NewUploadBatchRepo(db, baseLog)
}
func NewActiveAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) ActiveAnalysisRepo {
	return studies.NewActiveAnalysisRepo(db, baseLog)
}
