package web

import (
	"modvault/internal/catalog"
	"modvault/internal/search"
)

// SearchResponse is the body of GET /api/packages.
type SearchResponse struct {
	Query    string         `json:"query"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Results  []SearchResult `json:"results"`
}

// SearchResult is one hit in a search response. BestVersion is present only
// when the request carried constraint parameters.
type SearchResult struct {
	ID          string   `json:"id"`
	Score       float64  `json:"score"`
	Versions    []string `json:"versions"`
	BestVersion string   `json:"best_version,omitempty"`
}

// PackageResponse is the body of GET /api/packages/{id}.
type PackageResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	ShortDescription string            `json:"short_description,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Authors          []string          `json:"authors,omitempty"`
	Readme           ReadmeResponse    `json:"readme"`
	Versions         []VersionResponse `json:"versions"`
}

// ReadmeResponse carries a readme and its markup dialect.
type ReadmeResponse struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// VersionResponse is one package version, also the body of
// GET /api/packages/{id}/versions/{version}.
type VersionResponse struct {
	Version       string               `json:"version"`
	LoaderVersion string               `json:"loader_version,omitempty"`
	GameVersion   string               `json:"game_version,omitempty"`
	Dependencies  []DependencyResponse `json:"dependencies,omitempty"`
	Notes         []NoteResponse       `json:"notes,omitempty"`
}

// DependencyResponse is one declared dependency of a version.
type DependencyResponse struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// NoteResponse is one documentation note of a version.
type NoteResponse struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func searchResults(matches []search.Match) []SearchResult {
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		r := SearchResult{
			ID:       m.ID,
			Score:    m.Score,
			Versions: m.Versions,
		}
		if m.BestVersion != nil {
			r.BestVersion = m.BestVersion.String()
		}
		results = append(results, r)
	}
	return results
}

func packageResponse(pkg *catalog.Package) PackageResponse {
	resp := PackageResponse{
		ID:               pkg.ID,
		Name:             pkg.Name,
		ShortDescription: pkg.ShortDescription,
		Tags:             pkg.Tags,
		Authors:          pkg.Authors,
		Readme: ReadmeResponse{
			Kind:    string(pkg.Readme.Kind),
			Content: pkg.Readme.Content,
		},
		Versions: make([]VersionResponse, 0, len(pkg.Versions)),
	}
	for _, v := range pkg.Versions {
		resp.Versions = append(resp.Versions, versionResponse(v))
	}
	return resp
}

func versionResponse(v catalog.Version) VersionResponse {
	resp := VersionResponse{
		Version: v.Version.String(),
	}
	if v.LoaderVersion != nil {
		resp.LoaderVersion = v.LoaderVersion.String()
	}
	if v.GameVersion != nil {
		resp.GameVersion = v.GameVersion.String()
	}
	for _, d := range v.Dependencies {
		dep := DependencyResponse{ID: d.ID}
		if d.Version != nil {
			dep.Version = d.Version.String()
		}
		resp.Dependencies = append(resp.Dependencies, dep)
	}
	for _, n := range v.Notes {
		resp.Notes = append(resp.Notes, NoteResponse{
			Name:        n.Name,
			Title:       n.Title,
			Description: n.Description,
		})
	}
	return resp
}
