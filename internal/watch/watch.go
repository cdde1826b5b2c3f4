// Package watch reports debounced file changes under the lane roots and
// configuration files so a run can be repeated when inputs change.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when a Watcher is created with a zero debounce.
const DefaultDebounce = 500 * time.Millisecond

// Change is a batch of paths that changed within one debounce window.
type Change struct {
	Paths []string
}

// Matcher decides which file events are relevant.
type Matcher struct {
	Files      []string // exact paths always matched
	Extensions []string // matched by suffix, e.g. ".py"
	Exclude    []string // path prefixes never matched
}

// Match reports whether name is relevant.
func (m Matcher) Match(name string) bool {
	name = filepath.Clean(name)
	if m.Excluded(name) {
		return false
	}
	for _, f := range m.Files {
		if name == filepath.Clean(f) {
			return true
		}
	}
	ext := filepath.Ext(name)
	for _, e := range m.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Excluded reports whether name is at or below an Exclude prefix.
func (m Matcher) Excluded(name string) bool {
	name = filepath.Clean(name)
	for _, ex := range m.Exclude {
		ex = filepath.Clean(ex)
		if name == ex || strings.HasPrefix(name, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Watcher monitors directories with fsnotify. Directories added with
// AddTree are watched recursively, including ones created or moved in later.
// Moving a populated directory in reports the matching files it brings, and
// moving or deleting a watched directory reports the directory itself.
type Watcher struct {
	Changes <-chan Change

	changes  chan Change
	done     chan struct{}
	watcher  *fsnotify.Watcher
	match    Matcher
	debounce time.Duration

	mu   sync.Mutex
	errs []error
	dirs map[string]bool // directories registered by AddTree
}

// New creates a Watcher. Start must be called to begin delivering changes.
func New(debounce time.Duration, match Matcher) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ch := make(chan Change, 1)
	return &Watcher{
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
		match:    match,
		debounce: debounce,
		dirs:     make(map[string]bool),
	}, nil
}

// Add watches a single directory (non-recursively). Watching a file's
// parent directory survives atomic replacement of the file.
func (w *Watcher) Add(dir string) error {
	return w.watcher.Add(dir)
}

// AddTree watches dir and every directory below it, skipping hidden ones.
// A missing dir is ignored.
func (w *Watcher) AddTree(dir string) error {
	_, err := w.addTree(dir)
	return err
}

// addTree registers the directories below dir and returns the matching files
// already present in them.
func (w *Watcher) addTree(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.match.Match(p) {
				files = append(files, p)
			}
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return err
		}
		w.mu.Lock()
		w.dirs[filepath.Clean(p)] = true
		w.mu.Unlock()
		return nil
	})
	return files, err
}

// forgetTree drops dir and everything below it from the registered
// directories, reporting whether dir was registered.
func (w *Watcher) forgetTree(dir string) bool {
	dir = filepath.Clean(dir)
	prefix := dir + string(filepath.Separator)
	w.mu.Lock()
	defer w.mu.Unlock()
	known := w.dirs[dir]
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
	return known
}

// Start begins watching.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

// Errors returns the watch errors seen so far.
func (w *Watcher) Errors() []error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]error(nil), w.errs...)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]bool)
	var last time.Time
	ticker := time.NewTicker(max(w.debounce/4, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					files, err := w.addTree(event.Name)
					if err != nil {
						w.recordErr(err)
					}
					for _, f := range files {
						pending[f] = true
					}
					if len(files) > 0 {
						last = time.Now()
					}
					continue
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if w.forgetTree(event.Name) && !w.match.Excluded(event.Name) {
					pending[event.Name] = true
					last = time.Now()
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.match.Match(event.Name) {
				continue
			}
			pending[event.Name] = true
			last = time.Now()

		case <-ticker.C:
			if len(pending) == 0 || time.Since(last) < w.debounce {
				continue
			}
			w.emit(pending)
			pending = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.recordErr(err)
		}
	}
}

// emit delivers a change. When a change is already queued the new paths
// are dropped; the queued change triggers the same rerun.
func (w *Watcher) emit(pending map[string]bool) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	select {
	case w.changes <- Change{Paths: paths}:
	default:
	}
}

func (w *Watcher) recordErr(err error) {
	w.mu.Lock()
	w.errs = append(w.errs, err)
	w.mu.Unlock()
}
