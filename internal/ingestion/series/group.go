package series

import (
	"github.com/google/uuid"

	"github.com/thoraxlab/thorax-backend/internal/ingestion/inspect"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// Group is one DICOM series and its member files in encounter order.
type Group struct {
	SeriesUID string
	Files     []*inspect.Metadata
}

// GroupBySeries buckets accepted files by SeriesInstanceUID, preserving
// encounter order of both series and members. The study UID comes from
// the first file that carries one; a synthetic identifier is generated
// when none do so the pipeline can still proceed.
func GroupBySeries(files []*inspect.Metadata, log *logger.Logger) (string, []*Group) {
	var studyUID string
	var groups []*Group
	index := make(map[string]*Group)

	for _, f := range files {
		if studyUID == "" && f.StudyInstanceUID != "" {
			studyUID = f.StudyInstanceUID
		}
		if f.SeriesInstanceUID == "" {
			log.Warn("File has no SeriesInstanceUID, cannot group", "path", f.Path)
			continue
		}
		g, ok := index[f.SeriesInstanceUID]
		if !ok {
			g = &Group{SeriesUID: f.SeriesInstanceUID}
			index[f.SeriesInstanceUID] = g
			groups = append(groups, g)
		}
		g.Files = append(g.Files, f)
	}

	if studyUID == "" {
		studyUID = uuid.New().String()
		log.Warn("No StudyInstanceUID found in archive, generated synthetic UID", "study_uid", studyUID)
	}
	return studyUID, groups
}
