// Package repository resolves full package metadata by combining
// index-derived facts with out-of-band metadata documents fetched from the
// raw package source. Every resolution path is memoized with a bounded,
// time-expiring cache and per-key request coalescing.
package repository

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"modvault/internal/cache"
	"modvault/internal/catalog"
	"modvault/internal/fetch"
	"modvault/internal/search"
)

const (
	metadataFile = "metadata.toml"
	readmeAdoc   = "README.adoc"
	readmeMd     = "README.md"
)

// Config sizes the repository's caches. Full packages and raw metadata
// documents are bounded separately.
type Config struct {
	// RawBase is the locator prefix of the package source tree, either a
	// directory path or a URL.
	RawBase string
	// PackageCacheSize bounds the assembled full-package cache.
	PackageCacheSize int
	// MetadataCacheSize bounds each raw metadata document cache.
	MetadataCacheSize int
	// TTL is how long any resolved outcome, including failures, is retained.
	TTL time.Duration
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.PackageCacheSize <= 0 {
		c.PackageCacheSize = 64
	}
	if c.MetadataCacheSize <= 0 {
		c.MetadataCacheSize = 256
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
}

// Repository is the read-side metadata resolver over one open index.
type Repository struct {
	engine  *search.Engine
	fetcher fetch.Fetcher
	rawBase string

	packages    *cache.Cache[*catalog.Package]
	packageMeta *cache.Cache[*catalog.PackageMeta]
	versionMeta *cache.Cache[*catalog.VersionMeta]
}

// New creates a Repository over an open index and a fetch capability.
func New(engine *search.Engine, fetcher fetch.Fetcher, cfg Config) *Repository {
	cfg.ApplyDefaults()
	r := &Repository{
		engine:  engine,
		fetcher: fetcher,
		rawBase: cfg.RawBase,
	}
	r.packages = cache.New("package", cfg.PackageCacheSize, cfg.TTL, r.loadPackage)
	r.packageMeta = cache.New("package_meta", cfg.MetadataCacheSize, cfg.TTL, r.loadPackageMeta)
	r.versionMeta = cache.New("version_meta", cfg.MetadataCacheSize, cfg.TTL, r.loadVersionMeta)
	return r
}

// Versions returns a package's version numbers, newest first, from the
// index. found is false when the id is not indexed.
func (r *Repository) Versions(ctx context.Context, id string) (versions []string, found bool, err error) {
	return r.engine.Versions(ctx, id)
}

// PackageMeta resolves the package-level metadata document.
func (r *Repository) PackageMeta(ctx context.Context, id string) (*catalog.PackageMeta, error) {
	return r.packageMeta.Get(ctx, id)
}

// VersionMeta resolves one version's metadata document.
func (r *Repository) VersionMeta(ctx context.Context, id, version string) (*catalog.VersionMeta, error) {
	return r.versionMeta.Get(ctx, versionKey(id, version))
}

// Package resolves the complete package: metadata, readme, and every
// version's metadata, with the version list taken from the index.
func (r *Repository) Package(ctx context.Context, id string) (*catalog.Package, error) {
	return r.packages.Get(ctx, id)
}

func (r *Repository) loadPackageMeta(ctx context.Context, id string) (*catalog.PackageMeta, error) {
	data, err := r.fetcher.Fetch(ctx, r.locator(id, metadataFile))
	if err != nil {
		return nil, err
	}
	meta, err := catalog.ParsePackageMeta(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrUpstream, err)
	}
	return meta, nil
}

func (r *Repository) loadVersionMeta(ctx context.Context, key string) (*catalog.VersionMeta, error) {
	id, version := splitVersionKey(key)
	data, err := r.fetcher.Fetch(ctx, r.locator(id, "v"+version, metadataFile))
	if err != nil {
		return nil, err
	}
	meta, err := catalog.ParseVersionMeta(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrUpstream, err)
	}
	return meta, nil
}

func (r *Repository) loadPackage(ctx context.Context, id string) (*catalog.Package, error) {
	numbers, found, err := r.engine.Versions(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: package %q", fetch.ErrNotFound, id)
	}

	meta, err := r.PackageMeta(ctx, id)
	if err != nil {
		return nil, err
	}

	readme := r.fetchReadme(ctx, id)

	// All version fetches run concurrently; the first failure cancels the
	// rest and fails the whole assembly. Nothing partial is cached here;
	// completed sibling metas live only in their own cache.
	versions := make([]catalog.Version, len(numbers))
	g, gctx := errgroup.WithContext(ctx)
	for i, number := range numbers {
		g.Go(func() error {
			num, err := semver.NewVersion(number)
			if err != nil {
				return fmt.Errorf("%w: indexed version %q: %v", fetch.ErrUpstream, number, err)
			}
			vm, err := r.VersionMeta(gctx, id, number)
			if err != nil {
				return err
			}
			versions[i] = vm.Version(num)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkg := meta.Package(id, readme, versions)
	return &pkg, nil
}

// fetchReadme mirrors the builder's resolution order against the raw
// source: README.adoc, then README.md, then an empty markdown readme.
func (r *Repository) fetchReadme(ctx context.Context, id string) catalog.Readme {
	if data, err := r.fetcher.Fetch(ctx, r.locator(id, readmeAdoc)); err == nil {
		return catalog.Readme{Kind: catalog.ReadmeAsciiDoc, Content: string(data)}
	}
	if data, err := r.fetcher.Fetch(ctx, r.locator(id, readmeMd)); err == nil {
		return catalog.Readme{Kind: catalog.ReadmeMarkdown, Content: string(data)}
	}
	return catalog.Readme{Kind: catalog.ReadmeMarkdown}
}

func (r *Repository) locator(parts ...string) string {
	if fetch.IsURL(r.rawBase) {
		return strings.TrimSuffix(r.rawBase, "/") + "/" + path.Join(parts...)
	}
	return filepath.Join(append([]string{r.rawBase}, parts...)...)
}

func versionKey(id, version string) string {
	return id + "@" + version
}

func splitVersionKey(key string) (id, version string) {
	if i := strings.LastIndex(key, "@"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}
