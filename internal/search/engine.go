// Package search opens portable index archives and runs ranked, optionally
// constraint-filtered retrieval over them.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"modvault/internal/index"
)

// scanChunkSize is how many ranked candidates a filtered search pulls from
// the underlying index per round while paginating over matches.
const scanChunkSize = 64

// Match is one search result. Versions holds the stored version-number list,
// newest first. BestVersion is set only when constraint filtering was
// requested; it is the maximum eligible version by semver precedence.
type Match struct {
	ID          string
	Score       float64
	Versions    []string
	BestVersion *semver.Version
}

// Engine is an open, read-only index. Each Open call unpacks the archive
// into a private scratch directory; the directory is exclusively owned by
// this engine and removed by Close. Engines are safe for concurrent readers.
type Engine struct {
	idx     bleve.Index
	fields  index.FieldSet
	scratch string
}

// Open unpacks the archive at path into a fresh scratch directory and opens
// it as a read-only index.
func Open(path string) (*Engine, error) {
	return open(func(dest string) error {
		return index.ExtractArchiveFile(path, dest)
	})
}

// OpenBytes is Open for an archive already held in memory.
func OpenBytes(data []byte) (*Engine, error) {
	return open(func(dest string) error {
		return index.ExtractArchive(data, dest)
	})
}

func open(extract func(dest string) error) (*Engine, error) {
	scratch := filepath.Join(os.TempDir(), "modvault-index-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	if err := extract(scratch); err != nil {
		os.RemoveAll(scratch)
		return nil, fmt.Errorf("unpacking index archive: %w", err)
	}

	idx, err := bleve.Open(scratch)
	if err != nil {
		os.RemoveAll(scratch)
		return nil, fmt.Errorf("opening index: %w", err)
	}

	fields, err := index.LoadFields(idx)
	if err != nil {
		idx.Close()
		os.RemoveAll(scratch)
		return nil, err
	}

	return &Engine{idx: idx, fields: fields, scratch: scratch}, nil
}

// Close releases the index and deletes its scratch directory.
func (e *Engine) Close() error {
	err := e.idx.Close()
	if rmErr := os.RemoveAll(e.scratch); err == nil {
		err = rmErr
	}
	return err
}

// buildQuery parses free text with the engine's query-string syntax. Empty
// input and unparsable input both become match-all; a user-typed search
// string never hard-fails retrieval.
func (e *Engine) buildQuery(text string) query.Query {
	text = strings.TrimSpace(text)
	if text == "" || text == "*" {
		return bleve.NewMatchAllQuery()
	}
	parsed, err := bleve.NewQueryStringQuery(text).Parse()
	if err != nil {
		slog.Debug("Query fell back to match-all", "query", text, "error", err)
		return bleve.NewMatchAllQuery()
	}
	return parsed
}

// Search runs ranked retrieval with limit/offset pagination and no
// constraint filtering. page and pageSize must be non-negative.
func (e *Engine) Search(ctx context.Context, text string, page, pageSize int) ([]Match, error) {
	start := time.Now()
	defer func() { queryLatency.WithLabelValues("plain").Observe(time.Since(start).Seconds()) }()

	req := bleve.NewSearchRequestOptions(e.buildQuery(text), pageSize, page*pageSize, false)
	req.Fields = []string{e.fields.Versions}

	res, err := e.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		matches = append(matches, Match{
			ID:       hit.ID,
			Score:    hit.Score,
			Versions: fieldStrings(hit.Fields[e.fields.Versions]),
		})
	}
	return matches, nil
}

// SearchFiltered runs ranked retrieval and keeps only documents with at
// least one eligible version under qc. Pagination applies to matching
// documents: non-matching candidates are discarded before offsets are
// counted. With an inactive context this is plain Search.
func (e *Engine) SearchFiltered(ctx context.Context, text string, page, pageSize int, qc *QueryContext) ([]Match, error) {
	if qc == nil || !qc.Active() {
		return e.Search(ctx, text, page, pageSize)
	}

	start := time.Now()
	defer func() { queryLatency.WithLabelValues("filtered").Observe(time.Since(start).Seconds()) }()

	q := e.buildQuery(text)
	skip := page * pageSize
	matches := make([]Match, 0, pageSize)

	for from := 0; ; {
		req := bleve.NewSearchRequestOptions(q, scanChunkSize, from, false)
		req.Fields = []string{e.fields.Versions, e.fields.Constraints}

		res, err := e.idx.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("executing query: %w", err)
		}
		if len(res.Hits) == 0 {
			return matches, nil
		}

		for _, hit := range res.Hits {
			versions := fieldStrings(hit.Fields[e.fields.Versions])
			payloads := fieldStrings(hit.Fields[e.fields.Constraints])
			best, ok := qc.BestMatch(versions, payloads)
			if !ok {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			matches = append(matches, Match{
				ID:          hit.ID,
				Score:       hit.Score,
				Versions:    versions,
				BestVersion: best,
			})
			if len(matches) >= pageSize {
				return matches, nil
			}
		}

		from += len(res.Hits)
		if uint64(from) >= res.Total {
			return matches, nil
		}
	}
}

// Versions returns the stored version-number list for an exact package id,
// newest first. found is false when the id is absent from the index.
func (e *Engine) Versions(ctx context.Context, id string) (versions []string, found bool, err error) {
	q := bleve.NewTermQuery(id)
	q.SetField(e.fields.ID)

	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	req.Fields = []string{e.fields.Versions}

	res, err := e.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("looking up package %q: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}
	return fieldStrings(res.Hits[0].Fields[e.fields.Versions]), true, nil
}

// fieldStrings normalizes a stored field value: bleve returns a bare string
// for single-valued fields and []interface{} for repeated ones.
func fieldStrings(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
