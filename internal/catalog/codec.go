package catalog

import (
	"encoding/binary"
	"errors"
)

// ConstraintRecord is the compact, queryable projection of a version's
// constraint-relevant fields. One record is stored per version in the index
// document, positionally aligned with the version-number field. Empty
// strings mean "no requirement".
type ConstraintRecord struct {
	LoaderVersion string
	GameVersion   string
	Dependencies  []DependencyConstraint
}

// DependencyConstraint is one dependency entry of a constraint record.
type DependencyConstraint struct {
	ID      string
	Version string
}

// recordVersion tags the binary layout so future layouts can coexist.
const recordVersion = 1

var (
	// ErrTruncated reports a record shorter than its own length prefixes claim.
	ErrTruncated = errors.New("constraint record truncated")
	// ErrCorrupt reports a record with an unknown layout tag or malformed prefix.
	ErrCorrupt = errors.New("constraint record corrupt")
)

// EncodeConstraints serializes a constraint record. The layout is a version
// tag followed by length-prefixed strings and a length-prefixed dependency
// list, self-describing enough to round-trip without external schema.
func EncodeConstraints(rec ConstraintRecord) []byte {
	buf := make([]byte, 1, 16+len(rec.LoaderVersion)+len(rec.GameVersion))
	buf[0] = recordVersion
	buf = appendString(buf, rec.LoaderVersion)
	buf = appendString(buf, rec.GameVersion)
	buf = binary.AppendUvarint(buf, uint64(len(rec.Dependencies)))
	for _, dep := range rec.Dependencies {
		buf = appendString(buf, dep.ID)
		buf = appendString(buf, dep.Version)
	}
	return buf
}

// DecodeConstraints parses a constraint record. Truncated or corrupted input
// yields ErrTruncated or ErrCorrupt; it never panics or reads out of bounds.
func DecodeConstraints(data []byte) (ConstraintRecord, error) {
	var rec ConstraintRecord

	if len(data) == 0 {
		return rec, ErrTruncated
	}
	if data[0] != recordVersion {
		return rec, ErrCorrupt
	}
	r := byteReader{data: data, pos: 1}

	var err error
	if rec.LoaderVersion, err = r.readString(); err != nil {
		return ConstraintRecord{}, err
	}
	if rec.GameVersion, err = r.readString(); err != nil {
		return ConstraintRecord{}, err
	}

	count, err := r.readUvarint()
	if err != nil {
		return ConstraintRecord{}, err
	}
	// Each dependency needs at least two length prefixes; anything claiming
	// more entries than remaining bytes is corrupt, not just truncated.
	if count > uint64(r.remaining()) {
		return ConstraintRecord{}, ErrCorrupt
	}
	for i := uint64(0); i < count; i++ {
		var dep DependencyConstraint
		if dep.ID, err = r.readString(); err != nil {
			return ConstraintRecord{}, err
		}
		if dep.Version, err = r.readString(); err != nil {
			return ConstraintRecord{}, err
		}
		rec.Dependencies = append(rec.Dependencies, dep)
	}
	if r.remaining() != 0 {
		return ConstraintRecord{}, ErrCorrupt
	}
	return rec, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *byteReader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n == 0 {
		return 0, ErrTruncated
	}
	if n < 0 {
		return 0, ErrCorrupt
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) readString() (string, error) {
	n, err := r.readUvarint()
	if err != nil {
		return "", err
	}
	if n > uint64(r.remaining()) {
		return "", ErrTruncated
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}
