// Package settings loads the tool settings file (grip.settings.yaml),
// which supplies registry URLs and the cache-root mode to the CLI layer.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// CacheMode selects where the package cache lives.
type CacheMode string

const (
	// CacheLocal stores packages under the project's .grip directory.
	CacheLocal CacheMode = "local"

	// CacheUser stores packages under the user-wide ~/.grip directory.
	CacheUser CacheMode = "user"
)

// Telemetry selects the tracer backing resolve and fetch spans.
const (
	// TelemetryProgress renders one progress vertex per package fetch.
	TelemetryProgress = "progress"

	// TelemetryOtel exports spans through the global OpenTelemetry
	// provider.
	TelemetryOtel = "otel"

	// TelemetryNone disables tracing.
	TelemetryNone = "none"
)

// Settings holds tool configuration from grip.settings.yaml.
type Settings struct {
	// Registries lists registry base URLs in priority order.
	Registries []string `yaml:"registries"`

	// Cache is "local", "user" or an explicit absolute path.
	Cache string `yaml:"cache"`

	// LockTimeout bounds waiting for another process's cache lock.
	LockTimeout Duration `yaml:"lockTimeout"`

	// Telemetry is "progress", "otel" or "none".
	Telemetry string `yaml:"telemetry"`
}

// Duration decodes Go duration strings ("30s", "2m") from YAML, which
// yaml.v3 does not do for time.Duration itself.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return zerr.Wrap(err, "invalid duration")
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		Registries: []string{"https://registry.trai.ch"},
		Cache:      string(CacheUser),
		Telemetry:  TelemetryProgress,
	}
}

// Load reads settings from the project directory, falling back to
// defaults when no settings file exists. A present but unparsable file is
// an error, never silently ignored.
func Load(projectDir string) (Settings, error) {
	path := filepath.Join(projectDir, domain.SettingsFileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by trusted caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Settings{}, zerr.Wrap(err, "failed to read settings file")
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, zerr.With(zerr.Wrap(err, domain.ErrSettingsParse.Error()), "path", path)
	}
	return s, nil
}

// CacheRoot maps the configured cache mode to a concrete directory. The
// home directory is passed explicitly so the core never reads ambient
// process state.
func (s Settings) CacheRoot(projectDir, home string) string {
	switch s.Cache {
	case string(CacheLocal):
		return domain.LocalCacheRoot(projectDir)
	case string(CacheUser), "":
		return domain.UserCacheRoot(home)
	default:
		return s.Cache
	}
}
