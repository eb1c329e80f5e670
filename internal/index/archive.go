package index

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteArchive packs every file under indexDir into a single zip at
// outputPath, one entry per managed index file, deflate-compressed.
// Entry names are slash-separated paths relative to indexDir; unpacking the
// archive yields a directory the search engine can open directly.
func WriteArchive(indexDir, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	// WalkDir visits entries in lexical order, which keeps the archive
	// layout deterministic for identical index contents.
	err = filepath.WalkDir(indexDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(indexDir, path)
		if err != nil {
			return err
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   filepath.ToSlash(rel),
			Method: zip.Deflate,
		})
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archiving index files: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return out.Sync()
}

// ExtractArchive unpacks archive bytes into destDir, preserving relative
// paths.
func ExtractArchive(data []byte, destDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	for _, entry := range zr.File {
		if err := extractEntry(entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

// ExtractArchiveFile unpacks an archive on disk into destDir.
func ExtractArchiveFile(path, destDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	return ExtractArchive(data, destDir)
}

func extractEntry(entry *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
	// Reject entries that would escape the destination directory.
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry escapes destination: %q", entry.Name)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extracting %q: %w", entry.Name, err)
	}
	return nil
}
