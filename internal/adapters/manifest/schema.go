package manifest

import (
	"encoding/json"

	"go.trai.ch/grip/internal/core/domain"
)

// recipeDTO is the on-disk structure of a grip.json manifest.
type recipeDTO struct {
	Name           string                   `json:"name"`
	Version        string                   `json:"version,omitempty"`
	Dependencies   map[string]dependencyDTO `json:"dependencies,omitempty"`
	SubPackages    []recipeDTO              `json:"subPackages,omitempty"`
	Configurations []configurationDTO       `json:"configurations,omitempty"`
}

// dependencyDTO accepts the short string form ("name": ">=1.0.0") and the
// long object form with optional/default/path fields.
type dependencyDTO struct {
	Version  string `json:"version,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Default  bool   `json:"default,omitempty"`
	Path     string `json:"path,omitempty"`

	short bool
}

func (d *dependencyDTO) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var spec string
		if err := json.Unmarshal(data, &spec); err != nil {
			return err
		}
		*d = dependencyDTO{Version: spec, short: true}
		return nil
	}
	type plain dependencyDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = dependencyDTO(p)
	return nil
}

func (d dependencyDTO) MarshalJSON() ([]byte, error) {
	if d.short || (!d.Optional && !d.Default && d.Path == "") {
		return json.Marshal(d.Version)
	}
	type plain dependencyDTO
	return json.Marshal(plain(d))
}

type configurationDTO struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies,omitempty"`
}

func fromDomain(rec *domain.Recipe) recipeDTO {
	dto := recipeDTO{
		Name:    rec.Name.String(),
		Version: rec.Version.String(),
	}
	if len(rec.Dependencies) > 0 {
		dto.Dependencies = make(map[string]dependencyDTO, len(rec.Dependencies))
		for _, name := range rec.DependencyNames() {
			dep := rec.Dependencies[name]
			dto.Dependencies[name.String()] = dependencyDTO{
				Version:  dep.Spec.String(),
				Optional: dep.Optional,
				Default:  dep.Default,
				Path:     dep.Path,
			}
		}
	}
	for _, sub := range rec.Subpackages {
		subDTO := fromDomain(sub)
		subDTO.Name = sub.Name.Sub()
		subDTO.Version = ""
		dto.SubPackages = append(dto.SubPackages, subDTO)
	}
	for _, cfg := range rec.Configurations {
		cfgDTO := configurationDTO{Name: cfg.Name}
		for _, dep := range cfg.Dependencies {
			cfgDTO.Dependencies = append(cfgDTO.Dependencies, dep.String())
		}
		dto.Configurations = append(dto.Configurations, cfgDTO)
	}
	return dto
}
