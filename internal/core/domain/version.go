package domain

import (
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// BranchPrefix marks a version string as a source-control branch reference
// rather than a semantic version (e.g. "~main").
const BranchPrefix = "~"

// Version is a resolved package version: either a semantic version or a
// branch reference. The zero value is invalid; construct through
// ParseVersion or MustVersion.
type Version struct {
	sem    *semver.Version
	branch string
}

// ParseVersion parses "1.2.3", "1.2.3-rc.1+meta" or a branch reference
// like "~main".
func ParseVersion(s string) (Version, error) {
	if strings.HasPrefix(s, BranchPrefix) {
		branch := strings.TrimPrefix(s, BranchPrefix)
		if branch == "" {
			return Version{}, zerr.With(ErrInvalidVersion, "version", s)
		}
		return Version{branch: branch}, nil
	}
	sem, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, zerr.With(zerr.Wrap(err, ErrInvalidVersion.Error()), "version", s)
	}
	return Version{sem: sem}, nil
}

// MustVersion parses a version and panics on error. Intended for constants
// and tests.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool {
	return v.sem == nil && v.branch == ""
}

// IsBranch reports whether v is a branch reference.
func (v Version) IsBranch() bool {
	return v.branch != ""
}

// Branch returns the branch name without the "~" prefix, or "".
func (v Version) Branch() string {
	return v.branch
}

// IsPrerelease reports whether v is a semantic version with a prerelease
// component (e.g. "1.0.0-beta.2").
func (v Version) IsPrerelease() bool {
	return v.sem != nil && v.sem.Prerelease() != ""
}

// Semver returns the underlying semantic version, or nil for branches.
func (v Version) Semver() *semver.Version {
	return v.sem
}

// String renders the canonical form: the original semver text, or
// "~branch" for branch references.
func (v Version) String() string {
	if v.branch != "" {
		return BranchPrefix + v.branch
	}
	if v.sem == nil {
		return ""
	}
	return v.sem.Original()
}

// Compare orders versions for selection. Branch references sort below every
// semantic version and lexicographically among themselves, so "highest
// satisfying version" never prefers a branch unless the branch is the only
// candidate. Semantic versions order per semver precedence.
func (v Version) Compare(o Version) int {
	switch {
	case v.IsBranch() && o.IsBranch():
		return strings.Compare(v.branch, o.branch)
	case v.IsBranch():
		return -1
	case o.IsBranch():
		return 1
	default:
		return v.sem.Compare(o.sem)
	}
}

// Equal reports whether two versions denote the same release or branch.
func (v Version) Equal(o Version) bool {
	if v.IsZero() || o.IsZero() {
		return v.IsZero() && o.IsZero()
	}
	return v.Compare(o) == 0
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SortVersionsDesc sorts versions highest-first in place and returns the
// slice. The resolver walks candidates in this order.
func SortVersionsDesc(versions []Version) []Version {
	slices.SortFunc(versions, func(a, b Version) int {
		return b.Compare(a)
	})
	return versions
}
