package catalog

import (
	"github.com/Masterminds/semver/v3"
)

// Requirement is a semver range expression, e.g. ">=1.0.0, <2.0.0" or
// "^1.2.0". It keeps the original expression text so that encoding a parsed
// requirement reproduces the author's spelling.
type Requirement struct {
	raw        string
	constraint *semver.Constraints
}

// ParseRequirement parses a semver range expression.
func ParseRequirement(s string) (*Requirement, error) {
	c, err := semver.NewConstraint(s)
	if err != nil {
		return nil, err
	}
	return &Requirement{raw: s, constraint: c}, nil
}

// Matches reports whether the concrete version v satisfies the range.
func (r *Requirement) Matches(v *semver.Version) bool {
	return r.constraint.Check(v)
}

func (r *Requirement) String() string {
	return r.raw
}

// UnmarshalText implements encoding.TextUnmarshaler so requirements can be
// read directly from TOML metadata documents.
func (r *Requirement) UnmarshalText(text []byte) error {
	parsed, err := ParseRequirement(string(text))
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Requirement) MarshalText() ([]byte, error) {
	return []byte(r.raw), nil
}
