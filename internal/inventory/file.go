package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of an explicit inventory.
type File struct {
	Modules []Module `json:"modules" yaml:"modules" toml:"modules"`
}

// LoadFile reads an explicit module inventory. The decoder is chosen by
// extension: .json, .yaml/.yml or .toml. Enum fields are not checked here;
// invalid values surface as per-module generation failures.
func LoadFile(path string) ([]Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing inventory %s: %w", filepath.Base(path), err)
	}

	for i := range f.Modules {
		f.Modules[i].Path = strings.Trim(filepath.ToSlash(f.Modules[i].Path), "/")
		f.Modules[i].Lane = Lane(strings.ToLower(string(f.Modules[i].Lane)))
	}
	return f.Modules, nil
}

// Overlay carries operator-maintained fields from previously generated
// manifests onto freshly scanned modules. Matching is by module-lane key.
// Scanned values always take precedence; only empty fields are filled.
func Overlay(scanned, existing []Module) []Module {
	prev := make(map[string]*Module, len(existing))
	for i := range existing {
		prev[existing[i].Key()] = &existing[i]
	}

	out := make([]Module, len(scanned))
	for i, m := range scanned {
		if p, ok := prev[m.Key()]; ok {
			if m.Owner == "" {
				m.Owner = p.Owner
			}
			if m.Tier == "" {
				m.Tier = p.Tier
			}
			if len(m.Contracts) == 0 {
				m.Contracts = p.Contracts
			}
			if len(m.DependsOn) == 0 {
				m.DependsOn = p.DependsOn
			}
			if m.Description == "" {
				m.Description = p.Description
			}
			if m.Name == "" {
				m.Name = p.Name
			}
		}
		out[i] = m
	}
	return out
}
