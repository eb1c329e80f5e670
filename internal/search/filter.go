package search

import (
	"github.com/Masterminds/semver/v3"

	"modvault/internal/catalog"
	"modvault/internal/index"
)

// QueryContext carries the caller-declared environment a constraint filter
// evaluates candidate versions against: concrete loader and game versions,
// and optionally the set of mod versions the caller has installed.
//
// A nil concrete version on an axis means that axis is not being filtered.
// Dependencies maps dependency id to the declared concrete version; a nil
// map value means the dependency was declared without a version.
type QueryContext struct {
	LoaderVersion     *semver.Version
	GameVersion       *semver.Version
	CheckDependencies bool
	Dependencies      map[string]*semver.Version
}

// Active reports whether any constraint axis is requested. An inactive
// context bypasses constraint evaluation entirely.
func (qc *QueryContext) Active() bool {
	return qc.LoaderVersion != nil || qc.GameVersion != nil || qc.CheckDependencies
}

// Eligible reports whether a single version's constraint record satisfies
// every requested axis.
func (qc *QueryContext) Eligible(rec catalog.ConstraintRecord) bool {
	if !matchAxis(rec.LoaderVersion, qc.LoaderVersion) {
		return false
	}
	if !matchAxis(rec.GameVersion, qc.GameVersion) {
		return false
	}
	if qc.CheckDependencies {
		for _, dep := range rec.Dependencies {
			declared, ok := qc.Dependencies[dep.ID]
			if !ok {
				// Strict mode: every referenced dependency must be declared.
				return false
			}
			if dep.Version == "" {
				continue
			}
			if declared == nil {
				return false
			}
			req, err := catalog.ParseRequirement(dep.Version)
			if err != nil || !req.Matches(declared) {
				return false
			}
		}
	}
	return true
}

// matchAxis tests the document's requirement range against the caller's
// concrete version. The direction matters: the range comes from the
// document, the concrete value from the caller. An absent document range
// always passes; an unparsable one never does.
func matchAxis(rangeExpr string, declared *semver.Version) bool {
	if declared == nil || rangeExpr == "" {
		return true
	}
	req, err := catalog.ParseRequirement(rangeExpr)
	if err != nil {
		return false
	}
	return req.Matches(declared)
}

// BestMatch decodes the positionally aligned (version, payload) pairs of one
// document and returns the maximum eligible version by semver precedence.
// Individual decode or parse failures make that version ineligible without
// failing the document; ok is false when no version is eligible.
func (qc *QueryContext) BestMatch(versions, payloads []string) (best *semver.Version, ok bool) {
	n := len(versions)
	if len(payloads) < n {
		n = len(payloads)
	}
	for i := 0; i < n; i++ {
		raw, err := index.DecodePayload(payloads[i])
		if err != nil {
			decodeFailures.Inc()
			continue
		}
		rec, err := catalog.DecodeConstraints(raw)
		if err != nil {
			decodeFailures.Inc()
			continue
		}
		if !qc.Eligible(rec) {
			continue
		}
		ver, err := semver.NewVersion(versions[i])
		if err != nil {
			continue
		}
		if best == nil || ver.GreaterThan(best) {
			best = ver
		}
	}
	return best, best != nil
}
