package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thoraxlab/thorax-backend/internal/pkg/logger"
)

// IsValidZip reports whether the file at path is a readable ZIP archive.
func IsValidZip(path string) bool {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer rc.Close()
	return true
}

type Unpacker struct {
	log *logger.Logger
}

func NewUnpacker(baseLog *logger.Logger) *Unpacker {
	return &Unpacker{log: baseLog.With("component", "Unpacker")}
}

// Unpack extracts the archive at zipPath into destDir and returns the
// number of regular files written.
func (u *Unpacker) Unpack(zipPath, destDir string) (int, error) {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open archive %s: %w", filepath.Base(zipPath), err)
	}
	defer rc.Close()

	return u.extract(&rc.Reader, destDir)
}

// UnpackBytes extracts an in-memory archive into destDir.
func (u *Unpacker) UnpackBytes(data []byte, destDir string) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("read archive: %w", err)
	}
	return u.extract(zr, destDir)
}

func (u *Unpacker) extract(zr *zip.Reader, destDir string) (int, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, fmt.Errorf("create extraction dir: %w", err)
	}

	written := 0
	for _, entry := range zr.File {
		target, err := sanitizePath(destDir, entry.Name)
		if err != nil {
			return written, err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("create dir %s: %w", entry.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("create dir for %s: %w", entry.Name, err)
		}
		if err := writeEntry(entry, target); err != nil {
			return written, err
		}
		written++
	}

	u.log.Debug("Archive extracted", "dest", destDir, "files", written)
	return written, nil
}

// sanitizePath rejects entries that would escape the extraction root.
func sanitizePath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction root", name)
	}
	return filepath.Join(destDir, cleaned), nil
}

func writeEntry(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
