// Package catalog defines the domain model of the mod repository: packages,
// versions, dependencies and the compact per-version constraint record that
// is embedded in the search index.
package catalog

import (
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ReadmeKind tags which markup dialect a readme is written in.
type ReadmeKind string

const (
	ReadmeAsciiDoc ReadmeKind = "asciidoc"
	ReadmeMarkdown ReadmeKind = "markdown"
)

// Readme is a package readme together with its markup dialect.
type Readme struct {
	Kind    ReadmeKind
	Content string
}

// Package is a catalog entry. ID is derived from the package folder name and
// is the sole join key between the index and out-of-band metadata.
type Package struct {
	ID               string
	Name             string
	ShortDescription string
	Readme           Readme
	Tags             []string
	Authors          []string
	Versions         []Version
}

// Version is one released version of a package. LoaderVersion and GameVersion
// are optional range requirements against the mod-loader and game version
// axes; nil means unconstrained.
type Version struct {
	Version       *semver.Version
	LoaderVersion *Requirement
	GameVersion   *Requirement
	Dependencies  []Dependency
	Notes         []Note
}

// Dependency references another package, optionally restricted to a version
// range. A nil Version means any version satisfies the dependency.
type Dependency struct {
	ID      string
	Version *Requirement
}

// Note is a searchable documentation entry attached to a version. Notes carry
// no constraint data.
type Note struct {
	Name        string
	Title       string
	Description string
}

// SortVersionsDesc orders versions descending by semver precedence, so that
// index 0 is the newest version. The index builder relies on this ordering
// and every reader assumes it.
func SortVersionsDesc(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version.GreaterThan(versions[j].Version)
	})
}

// Constraints projects the version's constraint-bearing fields into the
// compact record stored alongside it in the index.
func (v Version) Constraints() ConstraintRecord {
	rec := ConstraintRecord{
		LoaderVersion: requirementString(v.LoaderVersion),
		GameVersion:   requirementString(v.GameVersion),
	}
	for _, d := range v.Dependencies {
		rec.Dependencies = append(rec.Dependencies, DependencyConstraint{
			ID:      d.ID,
			Version: requirementString(d.Version),
		})
	}
	return rec
}

func requirementString(r *Requirement) string {
	if r == nil {
		return ""
	}
	return r.String()
}
