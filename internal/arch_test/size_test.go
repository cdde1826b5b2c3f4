package arch_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	maxFilesPerPackage = 20
	maxLinesPerFile    = 400
)

func TestPackageSize(t *testing.T) {
	t.Parallel()

	for _, pkg := range packages(t) {
		if n := len(parsePackage(t, pkg, false)); n > maxFilesPerPackage {
			t.Errorf("package %s has %d source files (limit %d); split it", pkg, n, maxFilesPerPackage)
		}
	}
}

func TestFileLineCount(t *testing.T) {
	t.Parallel()

	root := repoRoot(t)
	for _, pkg := range packages(t) {
		for _, f := range parsePackage(t, pkg, true) {
			if isGenerated(f) {
				continue
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
			if err != nil {
				t.Fatal(err)
			}
			lines := bytes.Count(data, []byte("\n"))
			if len(data) > 0 && data[len(data)-1] != '\n' {
				lines++
			}
			if lines > maxLinesPerFile {
				t.Errorf("%s has %d lines (limit %d); decompose it", f.Path, lines, maxLinesPerFile)
			}
		}
	}
}

// isGenerated reports whether f carries the standard generated-code header.
func isGenerated(f pkgFile) bool {
	for _, cg := range f.AST.Comments {
		if cg.Pos() > f.AST.Package {
			break
		}
		if strings.Contains(cg.Text(), "Code generated") {
			return true
		}
	}
	return false
}
