package index

import (
	"encoding/base64"

	"modvault/internal/catalog"
)

// Document projects a package into the shape bleve indexes and stores.
// Versions and constraint records are written in the same order so that
// entry i of one corresponds to entry i of the other; that positional
// alignment is what the constraint filter decodes against.
func Document(p *catalog.Package) map[string]interface{} {
	versions := make([]string, 0, len(p.Versions))
	constraints := make([]string, 0, len(p.Versions))
	for _, v := range p.Versions {
		versions = append(versions, v.Version.String())
		constraints = append(constraints, EncodePayload(catalog.EncodeConstraints(v.Constraints())))
	}

	return map[string]interface{}{
		fieldID:               p.ID,
		fieldName:             p.Name,
		fieldShortDescription: p.ShortDescription,
		fieldReadme:           p.Readme.Content,
		fieldTags:             p.Tags,
		fieldAuthors:          p.Authors,
		fieldVersions:         versions,
		fieldConstraints:      constraints,
	}
}

// EncodePayload wraps raw constraint-record bytes for storage in a text
// field. bleve stores text, not bytes, so records travel base64-encoded.
func EncodePayload(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodePayload reverses EncodePayload.
func DecodePayload(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
