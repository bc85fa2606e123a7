package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// SpecKind discriminates the forms a version specification can take.
type SpecKind uint8

const (
	// SpecRange is a semantic version constraint expression
	// (">=1.0.0 <2.0.0", "~1.2.3", "^1.2", "1.2.3", "*").
	SpecRange SpecKind = iota
	// SpecBranch matches exactly one branch reference ("~main").
	SpecBranch
	// SpecExact matches exactly one version. Subpackage nodes are pinned to
	// their parent with an exact spec.
	SpecExact
	// SpecPath is a local filesystem override. It always wins over registry
	// resolution for its package name.
	SpecPath
)

// VersionSpec is a constraint on the versions a dependency may resolve to.
type VersionSpec struct {
	raw  string
	kind SpecKind
	rng  *semver.Constraints
	want Version
	path string
}

// ParseVersionSpec parses a version specification string.
//
// Accepted forms: "*" or "" (any release), a branch reference "~main",
// an approximate range "~>1.2.3" (normalized to ">=1.2.3, <1.3.0"; the
// two-component form "~>1.2" widens to "<2.0.0"), an exact pin "==1.2.3",
// and any constraint expression the semver library understands.
func ParseVersionSpec(s string) (VersionSpec, error) {
	raw := strings.TrimSpace(s)

	switch {
	case raw == "" || raw == "*":
		rng, err := semver.NewConstraint(">=0.0.0")
		if err != nil {
			return VersionSpec{}, zerr.Wrap(err, ErrInvalidVersionSpec.Error())
		}
		return VersionSpec{raw: "*", kind: SpecRange, rng: rng}, nil

	case strings.HasPrefix(raw, BranchPrefix) && !strings.HasPrefix(raw, "~>"):
		want, err := ParseVersion(raw)
		if err != nil {
			return VersionSpec{}, err
		}
		return VersionSpec{raw: raw, kind: SpecBranch, want: want}, nil

	case strings.HasPrefix(raw, "~>"):
		expr, err := expandApproximate(strings.TrimSpace(raw[2:]))
		if err != nil {
			return VersionSpec{}, zerr.With(err, "spec", raw)
		}
		rng, err := semver.NewConstraint(expr)
		if err != nil {
			return VersionSpec{}, zerr.With(zerr.Wrap(err, ErrInvalidVersionSpec.Error()), "spec", raw)
		}
		return VersionSpec{raw: raw, kind: SpecRange, rng: rng}, nil

	case strings.HasPrefix(raw, "=="):
		want, err := ParseVersion(strings.TrimSpace(raw[2:]))
		if err != nil {
			return VersionSpec{}, zerr.With(err, "spec", raw)
		}
		return VersionSpec{raw: raw, kind: SpecExact, want: want}, nil

	default:
		rng, err := semver.NewConstraint(raw)
		if err != nil {
			return VersionSpec{}, zerr.With(zerr.Wrap(err, ErrInvalidVersionSpec.Error()), "spec", raw)
		}
		return VersionSpec{raw: raw, kind: SpecRange, rng: rng}, nil
	}
}

// expandApproximate rewrites "~>" shorthand into an explicit range: the
// last given component may grow, everything above it is fixed.
func expandApproximate(v string) (string, error) {
	parts := strings.Split(v, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return "", zerr.With(ErrInvalidVersionSpec, "reason", "approximate specs need two or three components")
	}
	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return "", zerr.Wrap(err, ErrInvalidVersionSpec.Error())
		}
		nums[i] = n
	}
	if len(nums) == 2 {
		return fmt.Sprintf(">=%d.%d.0, <%d.0.0", nums[0], nums[1], nums[0]+1), nil
	}
	return fmt.Sprintf(">=%d.%d.%d, <%d.%d.0", nums[0], nums[1], nums[2], nums[0], nums[1]+1), nil
}

// MustVersionSpec parses a spec and panics on error. Intended for tests.
func MustVersionSpec(s string) VersionSpec {
	spec, err := ParseVersionSpec(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// PathSpec builds a specification pinning a name to a local directory.
func PathSpec(path string) VersionSpec {
	return VersionSpec{raw: "path:" + path, kind: SpecPath, path: path}
}

// ExactSpec builds a specification matching exactly one version.
func ExactSpec(v Version) VersionSpec {
	return VersionSpec{raw: "==" + v.String(), kind: SpecExact, want: v}
}

// Kind returns the spec's form.
func (s VersionSpec) Kind() SpecKind {
	return s.kind
}

// Path returns the local directory of a SpecPath spec, or "".
func (s VersionSpec) Path() string {
	return s.path
}

// IsZero reports whether s is the zero value.
func (s VersionSpec) IsZero() bool {
	return s.raw == ""
}

// Matches reports whether a version satisfies the specification.
//
// Branch versions only match an identical branch spec, and prerelease
// versions only match range constraints that themselves carry a prerelease
// component (the semver library enforces the latter). Exact pins compare by
// version equality, so "==1.2.0-rc.1" does admit its prerelease.
func (s VersionSpec) Matches(v Version) bool {
	switch s.kind {
	case SpecBranch, SpecExact:
		return s.want.Equal(v)
	case SpecPath:
		return false
	default:
		if v.IsBranch() || v.sem == nil {
			return false
		}
		return s.rng.Check(v.sem)
	}
}

// String renders the spec the way it was written.
func (s VersionSpec) String() string {
	return s.raw
}

// DependencySpec is one declared dependency edge: a version specification
// plus the optional flag and an optional local path override.
type DependencySpec struct {
	Spec VersionSpec

	// Optional marks a dependency that only resolves when activated by a
	// configuration or reached through a non-optional edge elsewhere.
	Optional bool

	// Default activates an optional dependency unless something disables
	// it; it has no meaning on non-optional dependencies.
	Default bool

	// Path overrides registry resolution with a local directory.
	Path string
}

// EffectiveSpec returns the spec a graph edge carries: the path override
// when present, the declared spec otherwise.
func (d DependencySpec) EffectiveSpec() VersionSpec {
	if d.Path != "" {
		return PathSpec(d.Path)
	}
	return d.Spec
}
