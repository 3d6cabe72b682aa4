// Package version models the identifiers a working copy can sit on. A
// descriptor is either semantic (a release tag like v1.0.8) or opaque
// (a branch head or bare commit hash). Ordering is defined only between
// two semantic descriptors; an opaque ref is never "newer" or "older"
// than anything.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Descriptor identifies a version a working copy can be on.
type Descriptor struct {
	raw string
	sv  *semver.Version
}

// Parse builds a Descriptor from a raw ref. A ref that parses as semver
// (leading "v" tolerated) becomes semantic; anything else is opaque.
func Parse(raw string) Descriptor {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Descriptor{}
	}
	sv, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return Descriptor{raw: raw}
	}
	return Descriptor{raw: raw, sv: sv}
}

// String returns the descriptor as originally written (tag, branch, or
// hash), or "" for the zero descriptor.
func (d Descriptor) String() string { return d.raw }

// IsZero reports whether the descriptor is empty (no working copy yet).
func (d Descriptor) IsZero() bool { return d.raw == "" }

// IsSemantic reports whether the descriptor carries a semantic version.
func (d Descriptor) IsSemantic() bool { return d.sv != nil }

// Compare returns -1, 0, or 1 ordering d against other. The second
// return is false when either side is non-semantic, in which case the
// ordering is undefined and the caller must decide by policy instead.
func (d Descriptor) Compare(other Descriptor) (int, bool) {
	if d.sv == nil || other.sv == nil {
		return 0, false
	}
	return d.sv.Compare(other.sv), true
}

// Equal reports whether two descriptors name the same version. Semantic
// descriptors compare numerically (so "1.0.8" equals "v1.0.8"); opaque
// descriptors compare as literal refs.
func (d Descriptor) Equal(other Descriptor) bool {
	if d.sv != nil && other.sv != nil {
		return d.sv.Equal(other.sv)
	}
	return d.raw == other.raw
}
