package db

import (
	types "github.com/thoraxlab/thorax-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.UploadBatch{},
		&types.Study{},
		&types.Series{},
		&types.StudyDicomMapping{},
		&types.SeriesDicomMapping{},
		&types.ActiveAnalysis{},
	)
}
