// Package arch_test enforces the package layout of the module: the import
// layering between internal packages, file size limits, package-level state,
// GoDoc on exported API and interface placement.
package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

const internalPrefix = "github.com/papapumpkin/constellation/internal/"

// pkgFile is a parsed source file of an internal package.
type pkgFile struct {
	Path string // relative to the repo root
	AST  *ast.File
	Fset *token.FileSet
	Test bool
}

// repoRoot is the directory holding go.mod, two levels above this file.
func repoRoot(t *testing.T) string {
	t.Helper()
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	root := filepath.Dir(filepath.Dir(filepath.Dir(self)))
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		t.Fatalf("go.mod not found above %s: %v", self, err)
	}
	return root
}

// packages lists the internal packages that contain Go code, without this
// one.
func packages(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(repoRoot(t), "internal"))
	if err != nil {
		t.Fatal(err)
	}
	var pkgs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "arch_test" && len(parsePackage(t, e.Name(), false)) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	return pkgs
}

// parsePackage parses the .go files of internal/<pkg>, including tests when
// withTests is set. Files are returned sorted by name.
func parsePackage(t *testing.T, pkg string, withTests bool) []pkgFile {
	t.Helper()
	root := repoRoot(t)
	dir := filepath.Join(root, "internal", pkg)
	names, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)

	var files []pkgFile
	for _, name := range names {
		test := strings.HasSuffix(name, "_test.go")
		if test && !withTests {
			continue
		}
		fset := token.NewFileSet()
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parsing %s: %v", name, err)
		}
		rel, _ := filepath.Rel(root, name)
		files = append(files, pkgFile{Path: filepath.ToSlash(rel), AST: f, Fset: fset, Test: test})
	}
	return files
}

// internalImports returns the internal packages imported by the non-test
// files of pkg.
func internalImports(t *testing.T, pkg string) []string {
	t.Helper()
	seen := make(map[string]bool)
	for _, f := range parsePackage(t, pkg, false) {
		for _, imp := range f.AST.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if rest, ok := strings.CutPrefix(path, internalPrefix); ok {
				name, _, _ := strings.Cut(rest, "/")
				seen[name] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// line reports the line of pos in f.
func (f pkgFile) line(pos token.Pos) int {
	return f.Fset.Position(pos).Line
}

// parseSnippet parses src as the body of a file in package p.
func parseSnippet(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "snippet.go", "package p\n"+src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parsing %q: %v", src, err)
	}
	return f
}
