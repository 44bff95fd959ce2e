package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadBatch groups the studies that arrived in one upload request.
// ProcessedStudies + FailedStudies never exceeds TotalStudies.
type UploadBatch struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UploadDate       time.Time `gorm:"column:upload_date;not null" json:"upload_date"`
	TotalStudies     int       `gorm:"column:total_studies;not null;default:0" json:"total_studies"`
	ProcessedStudies int       `gorm:"column:processed_studies;not null;default:0" json:"processed_studies"`
	FailedStudies    int       `gorm:"column:failed_studies;not null;default:0" json:"failed_studies"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UploadBatch) TableName() string { return "upload_batch" }

// Study is one uploaded archive and the outcome of processing it.
type Study struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UploadBatchID *uuid.UUID   `gorm:"type:uuid;index" json:"upload_batch_id,omitempty"`
	UploadBatch   *UploadBatch `gorm:"constraint:OnDelete:SET NULL;foreignKey:UploadBatchID;references:ID" json:"upload_batch,omitempty"`

	ArchiveName string  `gorm:"column:archive_name;not null;index" json:"archive_name"`
	ZipPath     *string `gorm:"column:zip_path" json:"zip_path,omitempty"`
	StudyPath   *string `gorm:"column:study_path" json:"study_path,omitempty"`

	ProbabilityOfPathology *float64 `gorm:"column:probability_of_pathology;check:probability_of_pathology IS NULL OR (probability_of_pathology >= 0 AND probability_of_pathology <= 1)" json:"probability_of_pathology,omitempty"`
	Pathology              *bool    `gorm:"column:pathology" json:"pathology,omitempty"`
	CI95                   *string  `gorm:"column:ci_95" json:"ci_95,omitempty"`

	ProcessingStatus    ProcessingStatus `gorm:"column:processing_status;not null;default:'Pending'" json:"processing_status"`
	ProcessingStartTime *time.Time       `gorm:"column:processing_start_time" json:"processing_start_time,omitempty"`
	ProcessingTime      *float64         `gorm:"column:processing_time" json:"processing_time,omitempty"`
	ErrorMessage        *string          `gorm:"column:error_message" json:"error_message,omitempty"`

	IsSingleDicom  bool `gorm:"column:is_single_dicom;not null;default:false" json:"is_single_dicom"`
	IsFilesDeleted bool `gorm:"column:is_files_deleted;not null;default:false" json:"is_files_deleted"`

	TotalFilesFound      int `gorm:"column:total_files_found;not null;default:0" json:"total_files_found"`
	DicomFilesFound      int `gorm:"column:dicom_files_found;not null;default:0" json:"dicom_files_found"`
	ValidCTFiles         int `gorm:"column:valid_ct_files;not null;default:0" json:"valid_ct_files"`
	ProcessedSeriesCount int `gorm:"column:processed_series_count;not null;default:0" json:"processed_series_count"`
	SkippedSeriesCount   int `gorm:"column:skipped_series_count;not null;default:0" json:"skipped_series_count"`

	PathologyImages     datatypes.JSON `gorm:"column:pathology_images" json:"pathology_images,omitempty"`
	PathologyDicomFiles datatypes.JSON `gorm:"column:pathology_dicom_files" json:"pathology_dicom_files,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Study) TableName() string { return "study" }

// Series is one DICOM series selected out of a study.
type Series struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudyID uuid.UUID `gorm:"type:uuid;not null;index" json:"study_id"`
	Study   *Study    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudyID;references:ID" json:"study,omitempty"`

	DicomDir  *string `gorm:"column:dicom_dir" json:"dicom_dir,omitempty"`
	ImagesDir *string `gorm:"column:images_dir" json:"images_dir,omitempty"`

	ProbabilityOfPathology *float64 `gorm:"column:probability_of_pathology;check:probability_of_pathology IS NULL OR (probability_of_pathology >= 0 AND probability_of_pathology <= 1)" json:"probability_of_pathology,omitempty"`
	Pathology              *bool    `gorm:"column:pathology" json:"pathology,omitempty"`
	CI95                   *string  `gorm:"column:ci_95" json:"ci_95,omitempty"`

	ProcessingStatus ProcessingStatus `gorm:"column:processing_status;not null;default:'Pending'" json:"processing_status"`
	ProcessingTime   *float64         `gorm:"column:processing_time" json:"processing_time,omitempty"`
	ErrorMessage     *string          `gorm:"column:error_message" json:"error_message,omitempty"`

	DicomCount int `gorm:"column:dicom_count;not null;default:0" json:"dicom_count"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Series) TableName() string { return "series" }
