package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.toml")
	require.NoError(t, os.WriteFile(path, []byte(`name = "x"`), 0o644))

	c := NewClient()
	data, err := c.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `name = "x"`, string(data))
}

func TestFetch_FileNotFound(t *testing.T) {
	c := NewClient()
	_, err := c.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_URL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "modvault/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	data, err := c.Fetch(context.Background(), srv.URL+"/file")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_URLNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()), WithMaxRetries(3))
	_, err := c.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_URLServerErrorRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()), WithMaxRetries(2))
	data, err := c.Fetch(context.Background(), srv.URL+"/flaky")
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_URLForbiddenIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	_, err := c.Fetch(context.Background(), srv.URL+"/secret")
	assert.ErrorIs(t, err, ErrNotFound)
}

type stubFetcher struct {
	calls atomic.Int32
	err   error
	data  []byte
}

func (s *stubFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func TestBreakerClient_PassThrough(t *testing.T) {
	inner := &stubFetcher{data: []byte("ok")}
	b := NewBreakerClient(inner)

	data, err := b.Fetch(context.Background(), "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestBreakerClient_FileBypassesBreaker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o644))

	b := NewBreakerClient(NewClient())
	data, err := b.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))
	assert.Empty(t, b.BreakerStates())
}

func TestBreakerClient_NotFoundDoesNotTrip(t *testing.T) {
	inner := &stubFetcher{err: ErrNotFound}
	b := NewBreakerClient(inner)
	ctx := context.Background()

	// Repeated definitive misses, as readme probing produces on every
	// package, must leave the host breaker closed.
	for i := 0; i < 5; i++ {
		_, err := b.Fetch(ctx, "https://raw.example.com/pkg/README.adoc")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", b.BreakerStates()["raw.example.com"])

	inner.err = nil
	inner.data = []byte("# readme")
	data, err := b.Fetch(ctx, "https://raw.example.com/pkg/README.md")
	require.NoError(t, err)
	assert.Equal(t, "# readme", string(data))
}

func TestBreakerClient_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &stubFetcher{err: ErrUpstream}
	b := NewBreakerClient(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := b.Fetch(ctx, "https://down.example.com/x")
		assert.Error(t, err)
	}

	states := b.BreakerStates()
	assert.Equal(t, "open", states["down.example.com"])

	// Open circuit rejects without hitting the upstream again.
	before := inner.calls.Load()
	_, err := b.Fetch(ctx, "https://down.example.com/x")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, before, inner.calls.Load())
}
