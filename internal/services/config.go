package services

import (
	"path/filepath"

	"github.com/google/uuid"

	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
	"github.com/thoraxlab/thorax-backend/internal/utils"
)

// Config carries the filesystem layout and retention flags for the
// processing pipeline.
type Config struct {
	// UploadDir is the root under which all study artifacts live.
	UploadDir string

	// SaveZipFiles keeps the original archives after processing.
	SaveZipFiles bool
	// SaveExtractedData copies the selected series' DICOM files into the
	// study directory.
	SaveExtractedData bool
	// SaveImages runs PNG extraction for the selected series.
	SaveImages bool
}

func NewConfigFromEnv(log *logger.Logger) Config {
	return Config{
		UploadDir:         utils.GetEnv("THORAX_UPLOAD_DIR", "./uploads", log),
		SaveZipFiles:      utils.GetEnvAsBool("THORAX_SAVE_ZIP_FILES", true, log),
		SaveExtractedData: utils.GetEnvAsBool("THORAX_SAVE_EXTRACTED_DATA", true, log),
		SaveImages:        utils.GetEnvAsBool("THORAX_SAVE_IMAGES", true, log),
	}
}

func (c Config) ZipDir() string  { return filepath.Join(c.UploadDir, "zips") }
func (c Config) TempDir() string { return filepath.Join(c.UploadDir, "tmp") }

func (c Config) StudyDir(studyID uuid.UUID) string {
	return filepath.Join(c.UploadDir, "studies", studyID.String())
}

func (c Config) SeriesDicomDir(studyID, seriesID uuid.UUID) string {
	return filepath.Join(c.StudyDir(studyID), "series", seriesID.String(), "dicom")
}

func (c Config) SeriesImagesDir(studyID, seriesID uuid.UUID) string {
	return filepath.Join(c.StudyDir(studyID), "series", seriesID.String(), "images")
}
