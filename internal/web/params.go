package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/schema"

	"modvault/internal/search"
)

// modParamPrefix marks the dynamic query parameters that declare which
// dependency packages the caller has, as mod_<id>=<version>.
const modParamPrefix = "mod_"

// maxPageSize bounds the page_size query parameter.
const maxPageSize = 100

// SearchParams are the decoded query parameters of a search request.
// PageSize zero means the server default applies.
type SearchParams struct {
	Query             string `schema:"query"`
	Page              int    `schema:"page"`
	PageSize          int    `schema:"page_size"`
	LoaderVersion     string `schema:"loader_version"`
	GameVersion       string `schema:"game_version"`
	CheckDependencies bool   `schema:"check_dependencies"`

	// Dependencies holds the declared mod_<id> versions; a nil value means
	// the mod is declared without a known version.
	Dependencies map[string]*semver.Version `schema:"-"`
}

// ParseSearchParams decodes the search parameters from the request. When the
// HX-Current-URL header carries a query string, its parameters serve as
// defaults; parameters given explicitly on the request win.
func ParseSearchParams(r *http.Request) (*SearchParams, error) {
	values := mergeCurrentURL(r)

	var params SearchParams
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&params, values); err != nil {
		return nil, fmt.Errorf("invalid query parameters: %w", err)
	}
	if params.Page < 0 {
		return nil, fmt.Errorf("page must be non-negative, got %d", params.Page)
	}
	if params.PageSize < 0 || params.PageSize > maxPageSize {
		return nil, fmt.Errorf("page_size must be between 1 and %d, got %d", maxPageSize, params.PageSize)
	}

	for key, vals := range values {
		if !strings.HasPrefix(key, modParamPrefix) || len(vals) == 0 {
			continue
		}
		id := strings.TrimPrefix(key, modParamPrefix)
		if id == "" {
			continue
		}
		if params.Dependencies == nil {
			params.Dependencies = make(map[string]*semver.Version)
		}
		// An empty or malformed version still declares the mod as present.
		version, err := semver.NewVersion(vals[0])
		if err != nil {
			version = nil
		}
		params.Dependencies[id] = version
	}

	return &params, nil
}

// QueryContext converts the params into the engine's filter context.
// Malformed loader/game versions are rejected rather than ignored.
func (p *SearchParams) QueryContext() (*search.QueryContext, error) {
	qc := &search.QueryContext{
		CheckDependencies: p.CheckDependencies,
		Dependencies:      p.Dependencies,
	}

	if p.LoaderVersion != "" {
		v, err := semver.NewVersion(p.LoaderVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid loader_version %q: %w", p.LoaderVersion, err)
		}
		qc.LoaderVersion = v
	}
	if p.GameVersion != "" {
		v, err := semver.NewVersion(p.GameVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid game_version %q: %w", p.GameVersion, err)
		}
		qc.GameVersion = v
	}

	return qc, nil
}

// mergeCurrentURL folds the HX-Current-URL header's query parameters under
// the request's own, so a partial page refresh keeps its search state.
func mergeCurrentURL(r *http.Request) url.Values {
	values := r.URL.Query()

	header := r.Header.Get("HX-Current-URL")
	if header == "" {
		return values
	}
	current, err := url.Parse(header)
	if err != nil {
		return values
	}

	for key, vals := range current.Query() {
		if _, explicit := values[key]; !explicit {
			values[key] = vals
		}
	}
	return values
}
