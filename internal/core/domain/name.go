// Package domain contains the core domain model for dependency resolution:
// package names, versions, version specs, recipes, the dependency graph,
// selections and cache entries.
package domain

import (
	"slices"
	"strings"
	"unique"
)

// SubpackageSeparator splits a parent package name from a subpackage name.
const SubpackageSeparator = ":"

// PackageName is an interned package identifier. Subpackage names use the
// "parent:sub" form and are distinct identifiers from their parent, sharing
// only the parent's resolved version.
// It wraps a unique.Handle so names are cheap to copy, compare and use as
// map keys even when the same name appears on many graph edges.
type PackageName struct {
	h unique.Handle[string]
}

// Name interns a package name string.
func Name(s string) PackageName {
	return PackageName{h: unique.Make(s)}
}

// String returns the underlying name.
func (n PackageName) String() string {
	var zero unique.Handle[string]
	if n.h == zero {
		return ""
	}
	return n.h.Value()
}

// IsZero reports whether the name is the zero value.
func (n PackageName) IsZero() bool {
	var zero unique.Handle[string]
	return n.h == zero
}

// IsSub reports whether the name identifies a subpackage ("parent:sub").
func (n PackageName) IsSub() bool {
	return strings.Contains(n.String(), SubpackageSeparator)
}

// Base returns the root package name. For "vibe:core" it returns "vibe";
// for a plain name it returns the name itself.
func (n PackageName) Base() PackageName {
	s := n.String()
	if i := strings.Index(s, SubpackageSeparator); i >= 0 {
		return Name(s[:i])
	}
	return n
}

// Sub returns the subpackage component, or "" for a plain package name.
// For "vibe:core:ext" it returns everything after the first separator, so
// nested subpackage paths stay intact.
func (n PackageName) Sub() string {
	s := n.String()
	if i := strings.Index(s, SubpackageSeparator); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (n PackageName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *PackageName) UnmarshalText(text []byte) error {
	n.h = unique.Make(string(text))
	return nil
}

// SortNames sorts package names lexicographically in place and returns the
// slice. Resolution output and error reports use this ordering so results
// are stable across runs.
func SortNames(names []PackageName) []PackageName {
	slices.SortFunc(names, func(a, b PackageName) int {
		return strings.Compare(a.String(), b.String())
	})
	return names
}
