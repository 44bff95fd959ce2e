package inspect

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/suyashkumar/dicom"

	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// Stats summarizes what a walk over an extracted archive found.
type Stats struct {
	TotalFiles   int
	DicomFiles   int
	ValidCTFiles int
}

// chestBodyParts are the accepted BodyPartExamined values.
var chestBodyParts = []string{"CHEST", "THORAX", "LUNG"}

// axialOrientation is the reference direction cosine set for axial slices.
var axialOrientation = [6]float64{1, 0, 0, 0, 1, 0}

const orientationTolerance = 0.1

type Inspector struct {
	log *logger.Logger
}

func NewInspector(baseLog *logger.Logger) *Inspector {
	return &Inspector{log: baseLog.With("component", "Inspector")}
}

// Inspect walks root, parses every regular file as DICOM regardless of
// extension, and returns metadata for the files that pass chest-CT
// validation. Individual unreadable or invalid files are logged and
// skipped; only a missing root aborts the walk.
func (i *Inspector) Inspect(ctx context.Context, root string) ([]*Metadata, Stats, error) {
	var stats Stats

	if _, err := os.Stat(root); err != nil {
		return nil, stats, fmt.Errorf("inspect root %s: %w", root, err)
	}

	var accepted []*Metadata
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}
		stats.TotalFiles++

		ds, err := dicom.ParseFile(path, nil)
		if err != nil {
			i.log.Debug("File is not DICOM, skipping", "path", path, "error", err)
			return nil
		}

		m := ReadMetadata(path, ds)
		if !m.hasRequiredUIDs() {
			i.log.Debug("Parsed file lacks required identifiers, skipping", "path", path)
			return nil
		}
		stats.DicomFiles++

		if err := ValidateChestCT(m); err != nil {
			i.log.Warn("DICOM file rejected", "path", path, "reason", err)
			return nil
		}
		if !m.IsAxial() {
			i.log.Warn("Non-axial image orientation", "path", path, "orientation", m.ImageOrientation())
		}

		stats.ValidCTFiles++
		accepted = append(accepted, m)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}

	i.log.Info("Archive inspected",
		"root", root,
		"total_files", stats.TotalFiles,
		"dicom_files", stats.DicomFiles,
		"valid_ct_files", stats.ValidCTFiles)
	return accepted, stats, nil
}

func (m *Metadata) hasRequiredUIDs() bool {
	return m.StudyInstanceUID != "" && m.SeriesInstanceUID != "" && m.SOPClassUID != ""
}

// ValidateChestCT applies the acceptance policy for one file. Orientation
// is deliberately not part of it; non-axial files are flagged, not dropped.
func ValidateChestCT(m *Metadata) error {
	if m.Modality != "CT" {
		return fmt.Errorf("unsupported modality %q, expected CT", m.Modality)
	}
	if !isChestBodyPart(m.BodyPartExamined) {
		return fmt.Errorf("body part %q is not a chest examination", m.BodyPartExamined)
	}
	if !m.HasPixelData {
		return fmt.Errorf("no decodable pixel data")
	}
	return nil
}

// An absent body part is accepted; scanners are inconsistent about
// filling the tag in.
func isChestBodyPart(bodyPart string) bool {
	if bodyPart == "" {
		return true
	}
	upper := strings.ToUpper(strings.TrimSpace(bodyPart))
	for _, keyword := range chestBodyParts {
		if upper == keyword {
			return true
		}
	}
	return false
}

// IsAxial reports whether the image orientation is within tolerance of the
// axial reference. Files without an orientation are treated as axial.
func (m *Metadata) IsAxial() bool {
	orient := m.ImageOrientation()
	if len(orient) != 6 {
		return true
	}
	for idx, v := range orient {
		if math.Abs(v-axialOrientation[idx]) > orientationTolerance {
			return false
		}
	}
	return true
}
