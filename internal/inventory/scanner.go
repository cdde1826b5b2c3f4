package inventory

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxSignalBytes bounds how much of a single file is scanned for
// content signals.
const DefaultMaxSignalBytes = 1 << 20

// DefaultIntegrationMarker is the keyword that marks a file as MATRIZ-integrated.
const DefaultIntegrationMarker = "matriz"

var (
	defaultExtensions     = []string{".py", ".go"}
	defaultIgnore         = []string{"__pycache__", "node_modules", "testdata", "vendor"}
	defaultArchiveMarkers = []string{"archive", "archived", "legacy", "deprecated"}
)

// Scanner discovers modules under each lane root. A module is any directory
// that directly contains at least one source file.
type Scanner struct {
	// Root is the repository root.
	Root string

	// LaneDirs maps each lane to its directory relative to Root. Lanes
	// missing from the map are not scanned.
	LaneDirs map[Lane]string

	Extensions        []string // source file extensions, e.g. ".py"
	Ignore            []string // directory names never descended into
	ArchiveMarkers    []string // path segments that mark a module archived
	SignalKeywords    []string // content keywords recorded as signals
	IntegrationMarker string   // keyword that marks a file as MATRIZ-integrated
	MaxSignalBytes    int64    // files larger than this are not read

	// Skipped lists files whose content could not be read in full during
	// the last Scan. They are left out of integration status.
	Skipped []SkippedFile
}

// SkippedFile is a source file the scanner could not read in full.
type SkippedFile struct {
	Path string
	Err  error
}

// applyDefaults fills zero-valued fields with defaults.
func (s *Scanner) applyDefaults() {
	if s.Root == "" {
		s.Root = "."
	}
	if len(s.Extensions) == 0 {
		s.Extensions = defaultExtensions
	}
	if s.Ignore == nil {
		s.Ignore = defaultIgnore
	}
	if s.ArchiveMarkers == nil {
		s.ArchiveMarkers = defaultArchiveMarkers
	}
	if s.IntegrationMarker == "" {
		s.IntegrationMarker = DefaultIntegrationMarker
	}
	if s.MaxSignalBytes <= 0 {
		s.MaxSignalBytes = DefaultMaxSignalBytes
	}
}

// Scan walks every configured lane and returns the discovered modules sorted
// by lane (promotion order) and path. A lane whose directory does not exist
// contributes no modules.
func (s *Scanner) Scan(ctx context.Context) ([]Module, error) {
	s.applyDefaults()
	s.Skipped = nil

	var modules []Module
	for _, lane := range Lanes() {
		dir, ok := s.LaneDirs[lane]
		if !ok {
			continue
		}
		found, err := s.scanLane(ctx, lane, filepath.Join(s.Root, dir))
		if err != nil {
			return nil, fmt.Errorf("scanning lane %s: %w", lane, err)
		}
		modules = append(modules, found...)
	}
	return modules, nil
}

// scanLane groups source files by their parent directory and turns each
// group into a module.
func (s *Scanner) scanLane(ctx context.Context, lane Lane, laneRoot string) ([]Module, error) {
	if _, err := os.Stat(laneRoot); os.IsNotExist(err) {
		return nil, nil
	}

	files := make(map[string][]string) // module dir (slash, lane-relative) → file names
	err := filepath.WalkDir(laneRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != laneRoot && s.ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.isSource(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(laneRoot, filepath.Dir(p))
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files[rel] = append(files[rel], d.Name())
		return nil
	})
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(files))
	for dir := range files {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	modules := make([]Module, 0, len(dirs))
	for _, dir := range dirs {
		names := files[dir]
		sort.Strings(names)
		m := Module{
			Path:     modulePath(dir, lane),
			Lane:     lane,
			Files:    names,
			Archived: s.archived(dir),
		}
		signals, integration := s.readSignals(filepath.Join(laneRoot, filepath.FromSlash(dir)), names)
		m.Signals = signals
		m.Integration = integration
		modules = append(modules, m)
	}
	return modules, nil
}

// modulePath names files sitting directly in the lane root after the lane.
func modulePath(dir string, lane Lane) string {
	if dir == "." {
		return string(lane)
	}
	return dir
}

func (s *Scanner) ignored(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ig := range s.Ignore {
		if name == ig {
			return true
		}
	}
	return false
}

func (s *Scanner) isSource(name string) bool {
	ext := path.Ext(name)
	for _, e := range s.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func (s *Scanner) archived(dir string) bool {
	for _, seg := range strings.Split(dir, "/") {
		seg = strings.ToLower(seg)
		for _, marker := range s.ArchiveMarkers {
			if seg == marker {
				return true
			}
		}
	}
	return false
}

// readSignals scans the module's files for signal keywords and derives the
// MATRIZ integration status from how many readable files mention the marker.
// A file that could not be read in full only counts when the part that was
// read already mentions the marker.
func (s *Scanner) readSignals(dir string, names []string) ([]string, Integration) {
	keywords := make([]string, 0, len(s.SignalKeywords))
	for _, k := range s.SignalKeywords {
		keywords = append(keywords, strings.ToLower(k))
	}
	marker := strings.ToLower(s.IntegrationMarker)

	found := make(map[string]bool)
	integrated, counted := 0, 0
	for _, name := range names {
		p := filepath.Join(dir, name)
		hits, mentionsMarker, err := s.scanFile(p, keywords, marker)
		for _, h := range hits {
			found[h] = true
		}
		if err != nil {
			s.Skipped = append(s.Skipped, SkippedFile{Path: p, Err: err})
			if !mentionsMarker {
				continue
			}
		}
		counted++
		if mentionsMarker {
			integrated++
		}
	}

	var signals []string
	for k := range found {
		signals = append(signals, k)
	}
	sort.Strings(signals)

	switch {
	case integrated == 0:
		return signals, IntegrationNone
	case integrated == counted:
		return signals, IntegrationFull
	default:
		return signals, IntegrationPartial
	}
}

// scanFile returns the keywords present in the file and whether it mentions
// the integration marker. The error is non-nil when the file was not read to
// the end; hits found before a read failure are still returned.
func (s *Scanner) scanFile(p string, keywords []string, marker string) ([]string, bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, false, err
	}
	if info.Size() > s.MaxSignalBytes {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	var hits []string
	seen := make(map[string]bool, len(keywords))
	mentionsMarker := false

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, min(64*1024, int(s.MaxSignalBytes))), int(s.MaxSignalBytes))
	for sc.Scan() {
		line := strings.ToLower(sc.Text())
		if !mentionsMarker && marker != "" && strings.Contains(line, marker) {
			mentionsMarker = true
		}
		for _, k := range keywords {
			if !seen[k] && strings.Contains(line, k) {
				seen[k] = true
				hits = append(hits, k)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return hits, mentionsMarker, fmt.Errorf("reading %s: %w", p, err)
	}
	return hits, mentionsMarker, nil
}
