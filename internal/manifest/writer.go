package manifest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a manifest encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// baseName is the manifest file name without extension.
const baseName = "module.manifest"

// ParseFormat converts s to a Format; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Encode serializes m in format f.
func Encode(m Manifest, f Format) ([]byte, error) {
	m.normalize()
	switch f {
	case FormatJSON, "":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(m)
	case FormatTOML:
		return toml.Marshal(m)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode parses a manifest in format f.
func Decode(data []byte, f Format) (Manifest, error) {
	var m Manifest
	var err error
	switch f {
	case FormatJSON, "":
		err = json.Unmarshal(data, &m)
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	default:
		return Manifest{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return Manifest{}, err
	}
	m.normalize()
	return m, nil
}

// Writer persists manifests under Dir as <lane>/<path>/module.manifest.<ext>.
type Writer struct {
	Dir    string
	Format Format
}

// ModuleDir returns the output directory for the module m describes.
func (w *Writer) ModuleDir(m Manifest) string {
	return filepath.Join(w.Dir, string(m.Lane), filepath.FromSlash(m.Path))
}

// Path returns the file m is written to.
func (w *Writer) Path(m Manifest) string {
	f := w.Format
	if f == "" {
		f = FormatJSON
	}
	return filepath.Join(w.ModuleDir(m), baseName+"."+string(f))
}

// Write encodes m and writes it atomically, returning the file path.
func (w *Writer) Write(m Manifest) (string, error) {
	data, err := Encode(m, w.Format)
	if err != nil {
		return "", fmt.Errorf("encoding manifest %s: %w", m.Key(), err)
	}
	p := w.Path(m)
	if err := writeAtomic(p, data); err != nil {
		return "", err
	}
	return p, nil
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}

// LoadDir reads every manifest below dir in any supported format. A missing
// directory yields no manifests and no error. Results are sorted by lane and
// path.
func LoadDir(dir string) ([]Manifest, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var out []Manifest
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, ok := formatOf(d.Name())
		if !ok {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		m, err := Decode(data, f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	Sort(out)
	return out, nil
}

// formatOf maps a manifest file name to its format.
func formatOf(name string) (Format, bool) {
	switch name {
	case baseName + ".json":
		return FormatJSON, true
	case baseName + ".yaml", baseName + ".yml":
		return FormatYAML, true
	case baseName + ".toml":
		return FormatTOML, true
	}
	return "", false
}
