package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/grip/internal/core/domain"
)

func TestPackageName_Subpackages(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		isSub   bool
		base    string
		subpart string
	}{
		{name: "plain name", input: "vibe", isSub: false, base: "vibe", subpart: ""},
		{name: "subpackage", input: "vibe:core", isSub: true, base: "vibe", subpart: "core"},
		{name: "nested subpackage", input: "vibe:core:ext", isSub: true, base: "vibe", subpart: "core:ext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := domain.Name(tt.input)
			assert.Equal(t, tt.isSub, n.IsSub())
			assert.Equal(t, tt.base, n.Base().String())
			assert.Equal(t, tt.subpart, n.Sub())
		})
	}
}

func TestPackageName_Interning(t *testing.T) {
	a := domain.Name("pkg")
	b := domain.Name("pkg")
	assert.True(t, a == b, "equal names must compare equal as values")

	m := map[domain.PackageName]int{a: 1}
	assert.Equal(t, 1, m[b])
}

func TestPackageName_Zero(t *testing.T) {
	var n domain.PackageName
	assert.True(t, n.IsZero())
	assert.Equal(t, "", n.String())
	assert.False(t, domain.Name("x").IsZero())
}

func TestSortNames(t *testing.T) {
	names := []domain.PackageName{
		domain.Name("zlib"),
		domain.Name("alpha"),
		domain.Name("alpha:sub"),
		domain.Name("mid"),
	}
	domain.SortNames(names)

	got := make([]string, len(names))
	for i, n := range names {
		got[i] = n.String()
	}
	assert.Equal(t, []string{"alpha", "alpha:sub", "mid", "zlib"}, got)
}
