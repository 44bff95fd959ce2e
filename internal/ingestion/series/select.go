package series

import (
	"path/filepath"
	"sort"

	"github.com/thoraxlab/thorax-backend/internal/ingestion/inspect"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// Selection is the outcome of picking the optimal series out of an archive.
type Selection struct {
	SeriesUID string
	// Files is every member of the winning series archive-wide, not just
	// the portion inside the winning folder.
	Files []*inspect.Metadata
	// Folder is the winning folder relative to the extraction root, or ""
	// when selection fell back to the first series.
	Folder string
	// StudyPath is the display path, "{archive}/{folder}" or the archive
	// name alone.
	StudyPath string
}

type folderStat struct {
	folder    string
	fileCount int
	series    map[string]int // series UID -> files of that series in this folder
}

// SelectOptimal picks the folder with the most distinct series (ties broken
// by file count, then folder name for determinism), then the series
// contributing the most files inside that folder. A greedy single-pass
// heuristic; with no usable folder statistics it falls back to the first
// series in encounter order.
func SelectOptimal(archiveName, root string, groups []*Group, log *logger.Logger) *Selection {
	if len(groups) == 0 {
		return nil
	}

	stats := collectFolderStats(root, groups, log)
	if len(stats) == 0 {
		first := groups[0]
		log.Warn("No folder statistics available, falling back to first series",
			"series_uid", first.SeriesUID)
		return &Selection{
			SeriesUID: first.SeriesUID,
			Files:     first.Files,
			StudyPath: archiveName,
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if len(stats[i].series) != len(stats[j].series) {
			return len(stats[i].series) > len(stats[j].series)
		}
		if stats[i].fileCount != stats[j].fileCount {
			return stats[i].fileCount > stats[j].fileCount
		}
		return stats[i].folder < stats[j].folder
	})
	winner := stats[0]

	seriesUID := dominantSeries(winner, groups)
	var files []*inspect.Metadata
	for _, g := range groups {
		if g.SeriesUID == seriesUID {
			files = g.Files
			break
		}
	}

	studyPath := archiveName
	folder := winner.folder
	if folder == "." {
		folder = ""
	}
	if folder != "" {
		studyPath = archiveName + "/" + folder
	}

	log.Info("Optimal series selected",
		"folder", winner.folder,
		"distinct_series", len(winner.series),
		"folder_files", winner.fileCount,
		"series_uid", seriesUID,
		"series_files", len(files))

	return &Selection{
		SeriesUID: seriesUID,
		Files:     files,
		Folder:    folder,
		StudyPath: studyPath,
	}
}

func collectFolderStats(root string, groups []*Group, log *logger.Logger) []*folderStat {
	index := make(map[string]*folderStat)
	var order []*folderStat

	for _, g := range groups {
		for _, f := range g.Files {
			rel, err := filepath.Rel(root, f.Path)
			if err != nil {
				log.Warn("Cannot relativize file path", "path", f.Path, "error", err)
				continue
			}
			folder := filepath.Dir(rel)

			st, ok := index[folder]
			if !ok {
				st = &folderStat{folder: folder, series: make(map[string]int)}
				index[folder] = st
				order = append(order, st)
			}
			st.fileCount++
			st.series[g.SeriesUID]++
		}
	}
	return order
}

// dominantSeries returns the series with the most files located inside the
// winning folder. Encounter order of groups breaks ties.
func dominantSeries(winner *folderStat, groups []*Group) string {
	best := ""
	bestCount := -1
	for _, g := range groups {
		count, ok := winner.series[g.SeriesUID]
		if !ok {
			continue
		}
		if count > bestCount {
			best = g.SeriesUID
			bestCount = count
		}
	}
	return best
}
