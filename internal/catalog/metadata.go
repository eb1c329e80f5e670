package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// PackageMeta is the package-level metadata.toml document.
type PackageMeta struct {
	Name             string   `toml:"name"`
	ShortDescription string   `toml:"short_description"`
	Tags             []string `toml:"tags"`
	Authors          []string `toml:"authors"`
}

// VersionMeta is the version-level metadata.toml document. All fields are
// optional; an absent requirement means the version places no constraint on
// that axis.
type VersionMeta struct {
	LoaderVersion   *Requirement     `toml:"loader_version"`
	GameVersion     *Requirement     `toml:"game_version"`
	ModDependencies []DependencyMeta `toml:"mod_dependencies"`
	Notes           []NoteMeta       `toml:"notes"`
}

// DependencyMeta is one entry of a version's mod_dependencies list.
type DependencyMeta struct {
	ID      string       `toml:"id"`
	Version *Requirement `toml:"version"`
}

// NoteMeta is one entry of a version's notes list.
type NoteMeta struct {
	Name        string `toml:"name"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// ParsePackageMeta decodes a package-level metadata document.
func ParsePackageMeta(data []byte) (*PackageMeta, error) {
	var meta PackageMeta
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing package metadata: %w", err)
	}
	return &meta, nil
}

// ParseVersionMeta decodes a version-level metadata document.
func ParseVersionMeta(data []byte) (*VersionMeta, error) {
	var meta VersionMeta
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing version metadata: %w", err)
	}
	return &meta, nil
}

// Version combines parsed version metadata with its version number into a
// domain Version.
func (m *VersionMeta) Version(num *semver.Version) Version {
	v := Version{
		Version:       num,
		LoaderVersion: m.LoaderVersion,
		GameVersion:   m.GameVersion,
	}
	for _, d := range m.ModDependencies {
		v.Dependencies = append(v.Dependencies, Dependency{ID: d.ID, Version: d.Version})
	}
	for _, n := range m.Notes {
		v.Notes = append(v.Notes, Note{Name: n.Name, Title: n.Title, Description: n.Description})
	}
	return v
}

// Package combines parsed package metadata with the pieces the metadata
// document does not carry: the folder-derived id, the resolved readme and
// the version list.
func (m *PackageMeta) Package(id string, readme Readme, versions []Version) Package {
	return Package{
		ID:               id,
		Name:             m.Name,
		ShortDescription: m.ShortDescription,
		Readme:           readme,
		Tags:             m.Tags,
		Authors:          m.Authors,
		Versions:         versions,
	}
}
