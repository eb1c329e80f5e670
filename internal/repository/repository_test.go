package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modvault/internal/catalog"
	"modvault/internal/fetch"
	"modvault/internal/index"
	"modvault/internal/search"
)

// mapFetcher serves fetches from a fixed locator->bytes map and counts
// every call per locator.
type mapFetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	calls map[string]int
	delay time.Duration
}

func newMapFetcher(files map[string]string) *mapFetcher {
	f := &mapFetcher{files: make(map[string][]byte), calls: make(map[string]int)}
	for k, v := range files {
		f.files[k] = []byte(v)
	}
	return f
}

func (f *mapFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	f.mu.Lock()
	f.calls[locator]++
	data, ok := f.files[locator]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", fetch.ErrNotFound, locator)
	}
	return data, nil
}

func (f *mapFetcher) callCount(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

func (f *mapFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// buildEngine indexes a source tree of id -> {version -> version metadata}
// and opens the resulting archive.
func buildEngine(t *testing.T, packages map[string]map[string]string) *search.Engine {
	t.Helper()
	root := t.TempDir()
	for id, versions := range packages {
		dir := filepath.Join(root, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		meta := fmt.Sprintf("name = %q\n", id)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.toml"), []byte(meta), 0o644))
		for num, vmeta := range versions {
			vdir := filepath.Join(dir, "v"+num)
			require.NoError(t, os.MkdirAll(vdir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(vdir, "metadata.toml"), []byte(vmeta), 0o644))
		}
	}

	archive := filepath.Join(t.TempDir(), "index.zip")
	require.NoError(t, index.Build(root, archive))

	eng, err := search.Open(archive)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

const rawBase = "/raw"

func loc(parts ...string) string {
	return filepath.Join(append([]string{rawBase}, parts...)...)
}

func newRepo(eng *search.Engine, f fetch.Fetcher) *Repository {
	return New(eng, f, Config{RawBase: rawBase})
}

func TestRepository_Versions(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{
		"example": {"1.0.0": "", "1.5.0": "", "2.0.0": ""},
	})
	repo := newRepo(eng, newMapFetcher(nil))
	ctx := context.Background()

	versions, found, err := repo.Versions(ctx, "example")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"2.0.0", "1.5.0", "1.0.0"}, versions)

	_, found, err = repo.Versions(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRepository_PackageMeta(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.0.0": ""}})
	fetcher := newMapFetcher(map[string]string{
		loc("example", "metadata.toml"): `
name = "Example Mod"
short_description = "does things"
tags = ["utility"]
authors = ["alice"]
`,
	})
	repo := newRepo(eng, fetcher)
	ctx := context.Background()

	meta, err := repo.PackageMeta(ctx, "example")
	require.NoError(t, err)
	assert.Equal(t, "Example Mod", meta.Name)
	assert.Equal(t, []string{"utility"}, meta.Tags)

	// Memoized: a second resolution does not refetch.
	_, err = repo.PackageMeta(ctx, "example")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.callCount(loc("example", "metadata.toml")))
}

func TestRepository_PackageMeta_NotFound(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.0.0": ""}})
	repo := newRepo(eng, newMapFetcher(nil))

	_, err := repo.PackageMeta(context.Background(), "ghost")
	assert.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestRepository_PackageMeta_Unparsable(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.0.0": ""}})
	fetcher := newMapFetcher(map[string]string{
		loc("example", "metadata.toml"): `name = [broken`,
	})
	repo := newRepo(eng, fetcher)

	_, err := repo.PackageMeta(context.Background(), "example")
	assert.ErrorIs(t, err, fetch.ErrUpstream)
}

func TestRepository_VersionMeta(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.2.0": ""}})
	fetcher := newMapFetcher(map[string]string{
		loc("example", "v1.2.0", "metadata.toml"): `
loader_version = ">=0.3.0"
game_version = ">=100000"
`,
	})
	repo := newRepo(eng, fetcher)

	meta, err := repo.VersionMeta(context.Background(), "example", "1.2.0")
	require.NoError(t, err)
	require.NotNil(t, meta.LoaderVersion)
	assert.Equal(t, ">=0.3.0", meta.LoaderVersion.String())
}

func TestRepository_Package(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{
		"example": {"1.0.0": "", "2.0.0": ""},
	})
	fetcher := newMapFetcher(map[string]string{
		loc("example", "metadata.toml"):           `name = "Example Mod"`,
		loc("example", "README.adoc"):             "= Example",
		loc("example", "v1.0.0", "metadata.toml"): `loader_version = ">=0.1.0"`,
		loc("example", "v2.0.0", "metadata.toml"): `loader_version = ">=0.3.0"`,
	})
	repo := newRepo(eng, fetcher)

	pkg, err := repo.Package(context.Background(), "example")
	require.NoError(t, err)
	assert.Equal(t, "example", pkg.ID)
	assert.Equal(t, "Example Mod", pkg.Name)
	assert.Equal(t, catalog.ReadmeAsciiDoc, pkg.Readme.Kind)
	assert.Equal(t, "= Example", pkg.Readme.Content)

	// Versions follow the index order, newest first, each carrying its own
	// fetched metadata.
	require.Len(t, pkg.Versions, 2)
	assert.Equal(t, "2.0.0", pkg.Versions[0].Version.String())
	assert.Equal(t, "1.0.0", pkg.Versions[1].Version.String())
	require.NotNil(t, pkg.Versions[0].LoaderVersion)
	assert.Equal(t, ">=0.3.0", pkg.Versions[0].LoaderVersion.String())
}

func TestRepository_Package_ReadmeFallback(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.0.0": ""}})
	ctx := context.Background()

	t.Run("markdown when no asciidoc", func(t *testing.T) {
		fetcher := newMapFetcher(map[string]string{
			loc("example", "metadata.toml"):           `name = "Example"`,
			loc("example", "README.md"):               "# Example",
			loc("example", "v1.0.0", "metadata.toml"): "",
		})
		pkg, err := newRepo(eng, fetcher).Package(ctx, "example")
		require.NoError(t, err)
		assert.Equal(t, catalog.ReadmeMarkdown, pkg.Readme.Kind)
		assert.Equal(t, "# Example", pkg.Readme.Content)
	})

	t.Run("empty markdown when neither exists", func(t *testing.T) {
		fetcher := newMapFetcher(map[string]string{
			loc("example", "metadata.toml"):           `name = "Example"`,
			loc("example", "v1.0.0", "metadata.toml"): "",
		})
		pkg, err := newRepo(eng, fetcher).Package(ctx, "example")
		require.NoError(t, err)
		assert.Equal(t, catalog.ReadmeMarkdown, pkg.Readme.Kind)
		assert.Empty(t, pkg.Readme.Content)
	})
}

func TestRepository_Package_UnknownID(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.0.0": ""}})
	repo := newRepo(eng, newMapFetcher(nil))

	_, err := repo.Package(context.Background(), "ghost")
	assert.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestRepository_Package_FailsWhenVersionMetaMissing(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{
		"example": {"1.0.0": "", "2.0.0": ""},
	})
	fetcher := newMapFetcher(map[string]string{
		loc("example", "metadata.toml"):           `name = "Example"`,
		loc("example", "v1.0.0", "metadata.toml"): "",
		// v2.0.0 metadata is absent: the whole assembly fails.
	})
	repo := newRepo(eng, fetcher)

	_, err := repo.Package(context.Background(), "example")
	assert.ErrorIs(t, err, fetch.ErrNotFound)

	// The failed assembly is cached too: replaying it must not refetch the
	// package metadata.
	before := fetcher.totalCalls()
	_, err = repo.Package(context.Background(), "example")
	assert.ErrorIs(t, err, fetch.ErrNotFound)
	assert.Equal(t, before, fetcher.totalCalls())
}

func TestRepository_Package_CoalescesConcurrentResolutions(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.0.0": ""}})
	fetcher := newMapFetcher(map[string]string{
		loc("example", "metadata.toml"):           `name = "Example"`,
		loc("example", "README.md"):               "# Example",
		loc("example", "v1.0.0", "metadata.toml"): "",
	})
	fetcher.delay = 30 * time.Millisecond
	repo := newRepo(eng, fetcher)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Package(context.Background(), "example")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetcher.callCount(loc("example", "metadata.toml")))
	assert.Equal(t, 1, fetcher.callCount(loc("example", "v1.0.0", "metadata.toml")))
}

func TestRepository_Package_VersionFanOut(t *testing.T) {
	versions := map[string]string{}
	files := map[string]string{
		loc("fanout", "metadata.toml"): `name = "Fanout"`,
	}
	for i := 1; i <= 8; i++ {
		num := fmt.Sprintf("1.%d.0", i)
		versions[num] = ""
		files[loc("fanout", "v"+num, "metadata.toml")] = ""
	}
	eng := buildEngine(t, map[string]map[string]string{"fanout": versions})

	fetcher := newMapFetcher(files)
	fetcher.delay = 40 * time.Millisecond
	repo := newRepo(eng, fetcher)

	// Sequential fetches would need at least 8 * delay; concurrent fan-out
	// stays well under that.
	start := time.Now()
	pkg, err := repo.Package(context.Background(), "fanout")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, pkg.Versions, 8)
	assert.Less(t, elapsed, 8*fetcher.delay)
}

func TestRepository_LocatorJoin(t *testing.T) {
	eng := buildEngine(t, map[string]map[string]string{"example": {"1.0.0": ""}})

	r := New(eng, newMapFetcher(nil), Config{RawBase: "https://pkgs.example.com/raw/"})
	assert.Equal(t, "https://pkgs.example.com/raw/example/metadata.toml",
		r.locator("example", "metadata.toml"))

	r = New(eng, newMapFetcher(nil), Config{RawBase: "/srv/raw"})
	assert.Equal(t, filepath.Join("/srv/raw", "example", "v1.0.0", "metadata.toml"),
		r.locator("example", "v1.0.0", "metadata.toml"))
}

func TestVersionKeyRoundTrip(t *testing.T) {
	id, version := splitVersionKey(versionKey("some/pkg@scoped", "1.2.3"))
	assert.Equal(t, "some/pkg@scoped", id)
	assert.Equal(t, "1.2.3", version)
}

var _ fetch.Fetcher = (*mapFetcher)(nil)
