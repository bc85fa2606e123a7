package domain

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// SelectionsFileVersion is the selections format version this tool writes.
// Version 1 is forward-compatible: unknown top-level keys survive a
// load/save round trip.
const SelectionsFileVersion = 1

// SelectedVersion is the resolver's decision for one package name: either
// a concrete version or a literal path marker for path dependencies.
type SelectedVersion struct {
	Version Version
	Path    string
}

// PathSelection builds a selection pinning a name to a local directory.
func PathSelection(path string) SelectedVersion {
	return SelectedVersion{Path: path}
}

// VersionSelection builds a selection for a concrete version.
func VersionSelection(v Version) SelectedVersion {
	return SelectedVersion{Version: v}
}

// IsPath reports whether the selection is a path marker.
func (s SelectedVersion) IsPath() bool {
	return s.Path != ""
}

// Equal reports whether two selections pin the same thing.
func (s SelectedVersion) Equal(o SelectedVersion) bool {
	if s.IsPath() || o.IsPath() {
		return s.Path == o.Path
	}
	return s.Version.Equal(o.Version)
}

// String renders the selection for logs and error reports.
func (s SelectedVersion) String() string {
	if s.IsPath() {
		return "path:" + s.Path
	}
	return s.Version.String()
}

// MarshalJSON encodes a version as its string form and a path marker as
// {"path": "..."}.
func (s SelectedVersion) MarshalJSON() ([]byte, error) {
	if s.IsPath() {
		return json.Marshal(struct {
			Path string `json:"path"`
		}{Path: s.Path})
	}
	return json.Marshal(s.Version.String())
}

// UnmarshalJSON decodes either encoding form.
func (s *SelectedVersion) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var marker struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(data, &marker); err != nil {
			return err
		}
		if marker.Path == "" {
			return zerr.With(ErrMalformedLockfile, "reason", "path marker without a path")
		}
		*s = SelectedVersion{Path: marker.Path}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseVersion(raw)
	if err != nil {
		return err
	}
	*s = SelectedVersion{Version: v}
	return nil
}

// Selections is the resolver's persisted output: one concrete selection
// per package name. Entries are never partial; every non-optional,
// non-path dependency reachable from the root has one.
type Selections struct {
	// FileVersion is the on-disk format version.
	FileVersion int

	versions map[PackageName]SelectedVersion

	// extras preserves unknown top-level JSON fields across a round trip.
	extras map[string]json.RawMessage
}

// NewSelections creates an empty Selections at the current file version.
func NewSelections() *Selections {
	return &Selections{
		FileVersion: SelectionsFileVersion,
		versions:    make(map[PackageName]SelectedVersion),
	}
}

// Set records the selection for a name.
func (s *Selections) Set(name PackageName, sel SelectedVersion) {
	s.versions[name] = sel
}

// Get returns the selection for a name.
func (s *Selections) Get(name PackageName) (SelectedVersion, bool) {
	sel, ok := s.versions[name]
	return sel, ok
}

// Delete removes the selection for a name. Used to scope upgrades.
func (s *Selections) Delete(name PackageName) {
	delete(s.versions, name)
}

// Len returns the number of selections.
func (s *Selections) Len() int {
	return len(s.versions)
}

// Names returns the selected package names in lexicographic order.
func (s *Selections) Names() []PackageName {
	names := make([]PackageName, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	return SortNames(names)
}

// Clone returns a deep copy, preserved unknown fields included.
func (s *Selections) Clone() *Selections {
	c := &Selections{
		FileVersion: s.FileVersion,
		versions:    make(map[PackageName]SelectedVersion, len(s.versions)),
	}
	for name, sel := range s.versions {
		c.versions[name] = sel
	}
	if s.extras != nil {
		c.extras = make(map[string]json.RawMessage, len(s.extras))
		for k, v := range s.extras {
			c.extras[k] = slices.Clone(v)
		}
	}
	return c
}

// SetExtra stores an unknown top-level field for round-tripping.
func (s *Selections) SetExtra(key string, raw json.RawMessage) {
	if s.extras == nil {
		s.extras = make(map[string]json.RawMessage)
	}
	s.extras[key] = raw
}

// Extra returns a preserved unknown top-level field.
func (s *Selections) Extra(key string) (json.RawMessage, bool) {
	raw, ok := s.extras[key]
	return raw, ok
}

// Equal reports whether two selections encode identically.
func (s *Selections) Equal(o *Selections) bool {
	a, errA := s.Encode()
	b, errB := o.Encode()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Encode renders the canonical byte form: names lexicographic, two-space
// indent, trailing newline. Two equal Selections encode byte-identically,
// which is what makes re-resolution idempotence observable.
func (s *Selections) Encode() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("{\n")
	b.WriteString("\t\"fileVersion\": ")
	ver, err := json.Marshal(s.FileVersion)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode selections")
	}
	b.Write(ver)
	b.WriteString(",\n\t\"versions\": {")

	names := s.Names()
	for i, name := range names {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n\t\t")
		key, err := json.Marshal(name.String())
		if err != nil {
			return nil, zerr.Wrap(err, "failed to encode selections")
		}
		b.Write(key)
		b.WriteString(": ")
		val, err := json.Marshal(s.versions[name])
		if err != nil {
			return nil, zerr.Wrap(err, "failed to encode selections")
		}
		b.Write(val)
	}
	if len(names) > 0 {
		b.WriteString("\n\t")
	}
	b.WriteString("}")

	extraKeys := make([]string, 0, len(s.extras))
	for k := range s.extras {
		extraKeys = append(extraKeys, k)
	}
	slices.Sort(extraKeys)
	for _, k := range extraKeys {
		b.WriteString(",\n\t")
		key, err := json.Marshal(k)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to encode selections")
		}
		b.Write(key)
		b.WriteString(": ")
		b.Write(bytes.TrimSpace(s.extras[k]))
	}

	b.WriteString("\n}\n")
	out := bytes.ReplaceAll(b.Bytes(), []byte("\t"), []byte("  "))
	return out, nil
}

// DecodeSelections parses the canonical selections encoding. Unknown
// top-level keys are captured for re-emission; an unknown fileVersion is
// ErrMalformedLockfile.
func DecodeSelections(data []byte) (*Selections, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, zerr.Wrap(err, ErrMalformedLockfile.Error())
	}

	verRaw, ok := raw["fileVersion"]
	if !ok {
		return nil, zerr.With(ErrMalformedLockfile, "reason", "missing fileVersion")
	}
	var fileVersion int
	if err := json.Unmarshal(verRaw, &fileVersion); err != nil {
		return nil, zerr.Wrap(err, ErrMalformedLockfile.Error())
	}
	if fileVersion != SelectionsFileVersion {
		return nil, zerr.With(ErrMalformedLockfile, "file_version", fileVersion)
	}

	s := NewSelections()
	s.FileVersion = fileVersion

	if versRaw, ok := raw["versions"]; ok {
		var versions map[string]SelectedVersion
		if err := json.Unmarshal(versRaw, &versions); err != nil {
			return nil, zerr.Wrap(err, ErrMalformedLockfile.Error())
		}
		for name, sel := range versions {
			if strings.TrimSpace(name) == "" {
				return nil, zerr.With(ErrMalformedLockfile, "reason", "empty package name")
			}
			s.versions[Name(name)] = sel
		}
	} else {
		return nil, zerr.With(ErrMalformedLockfile, "reason", "missing versions")
	}

	for k, v := range raw {
		if k == "fileVersion" || k == "versions" {
			continue
		}
		s.SetExtra(k, v)
	}
	return s, nil
}
