// Package index defines the catalog document schema and the offline build
// pipeline that turns a directory of package folders into a portable,
// queryable index archive.
package index

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names of the catalog document. All components reference fields
// through a FieldSet rather than repeating these strings at call sites.
const (
	fieldID               = "id"
	fieldName             = "name"
	fieldShortDescription = "short_description"
	fieldReadme           = "readme"
	fieldTags             = "tags"
	fieldAuthors          = "authors"
	fieldVersions         = "versions"
	fieldConstraints      = "constraints"
)

// ErrMissingField reports an index whose schema lacks a required field,
// which signals an incompatible or corrupt index.
var ErrMissingField = errors.New("index schema missing required field")

// FieldSet exposes the catalog fields by role. It is constructed once, either
// for a new index (Fields) or validated against an existing one (LoadFields).
type FieldSet struct {
	// ID is the exact-match package identifier field (stored).
	ID string
	// Name, ShortDescription and Readme are the free-text fields.
	Name             string
	ShortDescription string
	Readme           string
	// Tags and Authors are repeatable exact-match keyword fields.
	Tags    string
	Authors string
	// Versions is the repeatable stored field of version-number strings.
	Versions string
	// Constraints is the repeatable stored field of encoded constraint
	// records, positionally aligned with Versions.
	Constraints string
}

// Fields returns the canonical field set for a freshly built index.
func Fields() FieldSet {
	return FieldSet{
		ID:               fieldID,
		Name:             fieldName,
		ShortDescription: fieldShortDescription,
		Readme:           fieldReadme,
		Tags:             fieldTags,
		Authors:          fieldAuthors,
		Versions:         fieldVersions,
		Constraints:      fieldConstraints,
	}
}

// BuildMapping constructs the bleve index mapping for catalog documents.
func BuildMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.Store = false

	storedKw := bleve.NewTextFieldMapping()
	storedKw.Analyzer = keyword.Name
	storedKw.Store = true

	// Stored-only payload field. Constraint records are opaque to the term
	// dictionary; they are only ever decoded at filter time.
	payload := bleve.NewTextFieldMapping()
	payload.Index = false
	payload.Store = true
	payload.IncludeInAll = false
	payload.IncludeTermVectors = false

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false
	doc.AddFieldMappingsAt(fieldID, storedKw)
	doc.AddFieldMappingsAt(fieldName, text)
	doc.AddFieldMappingsAt(fieldShortDescription, text)
	doc.AddFieldMappingsAt(fieldReadme, text)
	doc.AddFieldMappingsAt(fieldTags, kw)
	doc.AddFieldMappingsAt(fieldAuthors, kw)
	doc.AddFieldMappingsAt(fieldVersions, storedKw)
	doc.AddFieldMappingsAt(fieldConstraints, payload)

	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name
	im.DefaultMapping = doc
	return im
}

// LoadFields re-resolves the field roles from a previously built index. The
// mapping persisted with the index must declare every required field;
// anything else is an incompatible index and fails with ErrMissingField.
func LoadFields(idx bleve.Index) (FieldSet, error) {
	im, ok := idx.Mapping().(*mapping.IndexMappingImpl)
	if !ok || im.DefaultMapping == nil {
		return FieldSet{}, fmt.Errorf("%w: no document mapping", ErrMissingField)
	}

	required := []string{
		fieldID, fieldName, fieldShortDescription, fieldReadme,
		fieldTags, fieldAuthors, fieldVersions, fieldConstraints,
	}
	for _, name := range required {
		prop, ok := im.DefaultMapping.Properties[name]
		if !ok || len(prop.Fields) == 0 {
			return FieldSet{}, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return Fields(), nil
}
