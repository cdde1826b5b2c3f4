package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrNilDashboard is returned when rendering a nil dashboard.
var ErrNilDashboard = errors.New("dashboard is nil")

// Format renders a dashboard into bytes.
type Format interface {
	// Render produces the full document.
	Render(d *Dashboard) ([]byte, error)
	// Ext is the conventional file extension, without the dot.
	Ext() string
}

// FormatByName returns the Format implementation for the given name.
// Supported names: json, toml, yaml.
func FormatByName(name string) (Format, error) {
	switch name {
	case "json", "":
		return JSONFormat{}, nil
	case "toml":
		return TOMLFormat{}, nil
	case "yaml", "yml":
		return YAMLFormat{}, nil
	default:
		return nil, fmt.Errorf("unknown report format: %q", name)
	}
}

// FormatNames returns the list of all supported report format names.
func FormatNames() []string {
	return []string{"json", "toml", "yaml"}
}

// JSONFormat renders indented JSON.
type JSONFormat struct{}

// Render implements Format.
func (JSONFormat) Render(d *Dashboard) ([]byte, error) {
	if d == nil {
		return nil, ErrNilDashboard
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Ext implements Format.
func (JSONFormat) Ext() string { return "json" }

// TOMLFormat renders TOML.
type TOMLFormat struct{}

// Render implements Format.
func (TOMLFormat) Render(d *Dashboard) ([]byte, error) {
	if d == nil {
		return nil, ErrNilDashboard
	}
	return toml.Marshal(d)
}

// Ext implements Format.
func (TOMLFormat) Ext() string { return "toml" }

// YAMLFormat renders YAML.
type YAMLFormat struct{}

// Render implements Format.
func (YAMLFormat) Render(d *Dashboard) ([]byte, error) {
	if d == nil {
		return nil, ErrNilDashboard
	}
	return yaml.Marshal(d)
}

// Ext implements Format.
func (YAMLFormat) Ext() string { return "yaml" }

// Save renders d with f and writes it to path via a temp file and rename.
func Save(d *Dashboard, f Format, path string) error {
	data, err := f.Render(d)
	if err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing dashboard: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming dashboard: %w", err)
	}
	return nil
}

// Load reads a JSON dashboard written by Save.
func Load(path string) (*Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dashboard: %w", err)
	}
	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing dashboard %s: %w", path, err)
	}
	return &d, nil
}
