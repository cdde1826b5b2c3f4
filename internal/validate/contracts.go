package validate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// contractIDPrefix marks a reference by contract ID rather than by file.
const contractIDPrefix = "id:"

// ContractIndex is the set of contracts known under a contracts root.
// Contracts are referenced either by slash-separated path relative to the
// root or as "id:<name>", where name is a file name without extension.
type ContractIndex struct {
	Root  string
	files map[string]bool
	ids   map[string]bool
}

// LoadContracts indexes every regular file below root. A missing root
// yields an empty index.
func LoadContracts(root string) (*ContractIndex, error) {
	idx := &ContractIndex{
		Root:  root,
		files: make(map[string]bool),
		ids:   make(map[string]bool),
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return idx, nil
	}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		idx.Add(filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing contracts in %s: %w", root, err)
	}
	return idx, nil
}

// NewContractIndex builds an index from slash-separated relative paths.
func NewContractIndex(paths ...string) *ContractIndex {
	idx := &ContractIndex{files: make(map[string]bool), ids: make(map[string]bool)}
	for _, p := range paths {
		idx.Add(p)
	}
	return idx
}

// Add registers a contract file.
func (idx *ContractIndex) Add(rel string) {
	rel = path.Clean(strings.TrimPrefix(rel, "./"))
	idx.files[rel] = true
	base := path.Base(rel)
	idx.ids[strings.TrimSuffix(base, path.Ext(base))] = true
}

// Resolves reports whether ref names a known contract.
func (idx *ContractIndex) Resolves(ref string) bool {
	ref = strings.TrimSpace(ref)
	if id, ok := strings.CutPrefix(ref, contractIDPrefix); ok {
		return idx.ids[strings.TrimSpace(id)]
	}
	if ref == "" || strings.HasPrefix(ref, "/") {
		return false
	}
	return idx.files[path.Clean(strings.TrimPrefix(ref, "./"))]
}

// Len returns the number of indexed contract files.
func (idx *ContractIndex) Len() int {
	return len(idx.files)
}

// Files returns the indexed contract paths in sorted order.
func (idx *ContractIndex) Files() []string {
	out := make([]string, 0, len(idx.files))
	for f := range idx.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
