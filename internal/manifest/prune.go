package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Prune removes manifest and context files below w.Dir that are not listed in
// keep. Files directly inside the directories in hold are left alone, so a
// module that failed this run keeps its last good output. Directories emptied
// by the removal are deleted up to w.Dir. Prune returns the removed files in
// walk order.
func (w *Writer) Prune(keep, hold []string) ([]string, error) {
	root := filepath.Clean(w.Dir)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	kept := make(map[string]bool, len(keep))
	for _, p := range keep {
		kept[filepath.Clean(p)] = true
	}
	held := make(map[string]bool, len(hold))
	for _, d := range hold {
		held[filepath.Clean(d)] = true
	}

	var removed []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isOutputFile(d.Name()) || kept[p] || held[filepath.Dir(p)] {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("removing stale %s: %w", p, err)
		}
		removed = append(removed, p)
		return nil
	})
	if err != nil {
		return removed, err
	}

	for _, p := range removed {
		removeEmptyParents(filepath.Dir(p), root)
	}
	return removed, nil
}

// isOutputFile reports whether name is a file the writer produces.
func isOutputFile(name string) bool {
	if name == ContextFileName {
		return true
	}
	_, ok := formatOf(name)
	return ok
}

// removeEmptyParents deletes dir and its ancestors below root while they are
// empty.
func removeEmptyParents(dir, root string) {
	for dir != root && len(dir) > len(root) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
