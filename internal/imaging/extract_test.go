package imaging

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/thoraxlab/thorax-backend/internal/ingestion/dicomtest"
	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func listPNGs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func grayAt(t *testing.T, path string, x, y int) uint8 {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("decoded image is %T, want *image.Gray", img)
	}
	return gray.GrayAt(x, y).Y
}

func TestExtractImagesSingleFrame(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ct0001.dcm")
	dicomtest.WriteFile(t, src, dicomtest.Options{
		PixelValue: 100,
		Slope:      "1",
		Intercept:  "-1024",
	})

	outDir := filepath.Join(dir, "images")
	e := NewExtractor(testLogger(t))
	n, err := e.ExtractImages(context.Background(), []string{src}, outDir)
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}

	names := listPNGs(t, outDir)
	want := []string{"ct0001_bone.png", "ct0001_lung.png", "ct0001_soft.png"}
	if len(names) != len(want) {
		t.Fatalf("images = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("images = %v, want %v", names, want)
		}
	}

	// Raw 100 with intercept -1024 is -924 HU; through the lung window
	// that lands on 38.
	if v := grayAt(t, filepath.Join(outDir, "ct0001_lung.png"), 0, 0); v != 38 {
		t.Fatalf("lung pixel = %d, want 38", v)
	}
}

func TestExtractImagesMultiFrame(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "volume.dcm")
	dicomtest.WriteFile(t, src, dicomtest.Options{
		Frames:     4,
		PixelValue: 100,
	})

	outDir := filepath.Join(dir, "images")
	e := NewExtractor(testLogger(t))
	if _, err := e.ExtractImages(context.Background(), []string{src}, outDir); err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}

	names := listPNGs(t, outDir)
	if len(names) != 12 {
		t.Fatalf("images = %d, want 12 (4 frames x 3 presets): %v", len(names), names)
	}
	if names[0] != "volume_slice_000_bone.png" {
		t.Fatalf("first image = %q", names[0])
	}
}

func TestExtractImagesPaddingZeroed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "padded.dcm")
	padding := 100
	dicomtest.WriteFile(t, src, dicomtest.Options{
		PixelValue: 100,
		Slope:      "1",
		Intercept:  "-1024",
		Padding:    &padding,
	})

	outDir := filepath.Join(dir, "images")
	e := NewExtractor(testLogger(t))
	if _, err := e.ExtractImages(context.Background(), []string{src}, outDir); err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}

	// Every pixel matches the padding value, so all become 0 raw, which is
	// -1024 HU: (-1024 + 1150) / 1500 * 255 = 21.42, truncated.
	if v := grayAt(t, filepath.Join(outDir, "padded_lung.png"), 0, 0); v != 21 {
		t.Fatalf("padded lung pixel = %d, want 21", v)
	}
}

func TestExtractImagesSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.dcm")
	dicomtest.WriteFile(t, good, dicomtest.Options{PixelValue: 50})
	bad := filepath.Join(dir, "bad.dcm")
	if err := os.WriteFile(bad, []byte("not dicom"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}

	outDir := filepath.Join(dir, "images")
	e := NewExtractor(testLogger(t))
	n, err := e.ExtractImages(context.Background(), []string{bad, good}, outDir)
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}
}

func TestExtractImagesFailsWhenNothingProcessed(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.dcm")
	if err := os.WriteFile(bad, []byte("not dicom"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}

	e := NewExtractor(testLogger(t))
	if _, err := e.ExtractImages(context.Background(), []string{bad}, filepath.Join(dir, "images")); err == nil {
		t.Fatal("expected error when zero files processed")
	}
}
