package domain

import (
	"time"

	"github.com/google/uuid"
)

// StudyDicomMapping pins a DICOM StudyInstanceUID to an internal study row.
// The UID is unique; re-ingesting the same study reuses the existing row.
type StudyDicomMapping struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudyInstanceUID string    `gorm:"column:study_instance_uid;not null;uniqueIndex" json:"study_instance_uid"`
	StudyID          uuid.UUID `gorm:"type:uuid;not null;index" json:"study_id"`
	Study            *Study    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudyID;references:ID" json:"study,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (StudyDicomMapping) TableName() string { return "study_dicom_mapping" }

type SeriesDicomMapping struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SeriesInstanceUID string    `gorm:"column:series_instance_uid;not null;uniqueIndex" json:"series_instance_uid"`
	SeriesID          uuid.UUID `gorm:"type:uuid;not null;index" json:"series_id"`
	Series            *Series   `gorm:"constraint:OnDelete:CASCADE;foreignKey:SeriesID;references:ID" json:"series,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SeriesDicomMapping) TableName() string { return "series_dicom_mapping" }
