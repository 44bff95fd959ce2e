package imaging

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/thoraxlab/thorax-backend/internal/ingestion/inspect"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

type Extractor struct {
	log *logger.Logger
}

func NewExtractor(baseLog *logger.Logger) *Extractor {
	return &Extractor{log: baseLog.With("component", "Extractor")}
}

// ExtractImages renders every frame of every DICOM file into outDir, one
// PNG per window preset. Files that fail to decode are logged and
// skipped; the call fails only when nothing could be processed.
func (e *Extractor) ExtractImages(ctx context.Context, dicomPaths []string, outDir string) (int, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create images dir: %w", err)
	}

	processed := 0
	for _, path := range dicomPaths {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := e.extractFile(path, outDir); err != nil {
			e.log.Warn("Failed to extract images from DICOM file", "path", path, "error", err)
			continue
		}
		processed++
	}

	if processed == 0 && len(dicomPaths) > 0 {
		return 0, fmt.Errorf("no images extracted from %d files", len(dicomPaths))
	}
	e.log.Info("Images extracted", "files", processed, "dir", outDir)
	return processed, nil
}

func (e *Extractor) extractFile(path, outDir string) error {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	meta := inspect.ReadMetadata(path, ds)

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return fmt.Errorf("no pixel data: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return fmt.Errorf("pixel data holds no frames")
	}

	slope := meta.RescaleSlope()
	intercept := meta.RescaleIntercept()
	padding, hasPadding := meta.PixelPadding()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	multiFrame := len(info.Frames) > 1

	for idx, fr := range info.Frames {
		nd := fr.NativeData
		if nd == nil {
			return fmt.Errorf("frame %d is not native pixel data", idx)
		}
		rows := nd.Rows()
		cols := nd.Cols()
		if rows == 0 || cols == 0 {
			return fmt.Errorf("frame %d has empty dimensions", idx)
		}

		hu := make([]float64, rows*cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				px, err := nd.GetPixel(r, c)
				if err != nil {
					return fmt.Errorf("frame %d pixel (%d,%d): %w", idx, r, c, err)
				}
				raw := px[0]
				if hasPadding && raw == padding {
					raw = 0
				}
				hu[r*cols+c] = float64(raw)*slope + intercept
			}
		}

		for _, preset := range Presets {
			name := stem + "_" + preset.Name + ".png"
			if multiFrame {
				name = fmt.Sprintf("%s_slice_%03d_%s.png", stem, idx, preset.Name)
			}
			img := &image.Gray{
				Pix:    preset.Apply(hu),
				Stride: cols,
				Rect:   image.Rect(0, 0, cols, rows),
			}
			if err := writePNG(filepath.Join(outDir, name), img); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
