package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"

	"modvault/internal/catalog"
)

const (
	metadataFile  = "metadata.toml"
	readmeAdoc    = "README.adoc"
	readmeMd      = "README.md"
	versionPrefix = "v"
)

// Build walks inputDir, indexes every well-formed package and writes the
// result as a single portable archive at outputPath.
//
// A malformed package or version is logged and skipped; it never aborts the
// build. Failing to create the index, commit it or write the archive is
// fatal.
func Build(inputDir, outputPath string) error {
	scratch := filepath.Join(os.TempDir(), "modvault-build-"+uuid.NewString())
	defer os.RemoveAll(scratch)

	idx, err := bleve.New(scratch, BuildMapping())
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}

	if err := indexPackages(idx, inputDir); err != nil {
		idx.Close()
		return err
	}

	if err := idx.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}

	if err := WriteArchive(scratch, outputPath); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

func indexPackages(idx bleve.Index, inputDir string) error {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return fmt.Errorf("reading input directory: %w", err)
	}

	batch := idx.NewBatch()
	indexed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		pkg, err := loadPackage(filepath.Join(inputDir, id), id)
		if err != nil {
			slog.Warn("Package skipped", "package", id, "error", err)
			continue
		}
		if err := batch.Index(pkg.ID, Document(pkg)); err != nil {
			return fmt.Errorf("indexing package %q: %w", pkg.ID, err)
		}
		indexed++
	}

	// Single commit at the end; the index is write-once.
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	slog.Info("Index built", "packages", indexed)
	return nil
}

// loadPackage assembles a package from its on-disk folder. The folder name
// is the package id.
func loadPackage(dir, id string) (*catalog.Package, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("no package metadata: %w", err)
	}
	meta, err := catalog.ParsePackageMeta(data)
	if err != nil {
		return nil, err
	}

	versions, err := loadVersions(dir, id)
	if err != nil {
		return nil, err
	}
	catalog.SortVersionsDesc(versions)

	pkg := meta.Package(id, loadReadme(dir), versions)
	return &pkg, nil
}

func loadVersions(dir, id string) ([]catalog.Version, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading package directory: %w", err)
	}

	var versions []catalog.Version
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), versionPrefix) {
			continue
		}
		raw := strings.TrimPrefix(entry.Name(), versionPrefix)
		num, err := semver.StrictNewVersion(raw)
		if err != nil {
			slog.Warn("Version folder skipped", "package", id, "folder", entry.Name(), "error", err)
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name(), metadataFile))
		if err != nil {
			slog.Warn("Version skipped, no metadata", "package", id, "version", num.String())
			continue
		}
		meta, err := catalog.ParseVersionMeta(data)
		if err != nil {
			slog.Warn("Version skipped, invalid metadata", "package", id, "version", num.String(), "error", err)
			continue
		}
		versions = append(versions, meta.Version(num))
	}
	return versions, nil
}

// loadReadme tries README.adoc then README.md; a package without either gets
// an empty markdown readme rather than failing.
func loadReadme(dir string) catalog.Readme {
	if data, err := os.ReadFile(filepath.Join(dir, readmeAdoc)); err == nil {
		return catalog.Readme{Kind: catalog.ReadmeAsciiDoc, Content: string(data)}
	}
	if data, err := os.ReadFile(filepath.Join(dir, readmeMd)); err == nil {
		return catalog.Readme{Kind: catalog.ReadmeMarkdown, Content: string(data)}
	}
	return catalog.Readme{Kind: catalog.ReadmeMarkdown}
}
