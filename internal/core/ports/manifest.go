package ports

import "go.trai.ch/grip/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks

// ManifestLoader reads a package manifest from a directory. Paths are
// always absolute; the core never resolves against the working directory.
type ManifestLoader interface {
	// Load reads and validates the recipe at dir/grip.json.
	Load(dir string) (*domain.Recipe, error)
}
