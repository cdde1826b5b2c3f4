package arch_test

import (
	"go/ast"
	"strings"
	"testing"
)

// TestExportedSymbolsHaveGoDoc requires a comment starting with the symbol
// name on every exported type, function and method of an exported type.
// Members of a documented const or var group may rely on the group comment or
// an inline comment instead.
func TestExportedSymbolsHaveGoDoc(t *testing.T) {
	t.Parallel()

	for _, pkg := range packages(t) {
		for _, f := range parsePackage(t, pkg, false) {
			if isGenerated(f) {
				continue
			}
			for _, miss := range undocumented(f.AST) {
				t.Errorf("%s:%d: exported %s has no GoDoc comment", f.Path, f.line(miss.Pos()), miss.Name)
			}
		}
	}
}

func TestUndocumented(t *testing.T) {
	t.Parallel()

	src := `
// Documented does things.
func Documented() {}

func Bare() {}

type hidden struct{}

func (hidden) Exported() {}

// Star names a region.
type Star string

// Stars.
const (
	Flow  Star = "Flow"
	Trail Star = "Trail"
)

const (
	Inline = 1 // explained
	Loose  = 2
)

// Wrong starts with another word.
var Right = 1
`
	var got []string
	for _, id := range undocumented(parseSnippet(t, src)) {
		got = append(got, id.Name)
	}
	want := "Bare Loose Right"
	if strings.Join(got, " ") != want {
		t.Errorf("undocumented = %v, want %s", got, want)
	}
}

// undocumented returns the identifiers of exported declarations in f that
// lack a proper GoDoc comment.
func undocumented(f *ast.File) []*ast.Ident {
	var out []*ast.Ident
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if !d.Name.IsExported() || (d.Recv != nil && !exportedReceiver(d.Recv.List[0].Type)) {
				continue
			}
			if !startsWith(d.Doc, d.Name.Name) {
				out = append(out, d.Name)
			}
		case *ast.GenDecl:
			grouped := d.Lparen.IsValid()
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Name.IsExported() && !startsWith(s.Doc, s.Name.Name) && !(!grouped && startsWith(d.Doc, s.Name.Name)) {
						out = append(out, s.Name)
					}
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if !name.IsExported() || startsWith(s.Doc, name.Name) {
							continue
						}
						if grouped && (hasText(d.Doc) || hasText(s.Doc) || hasText(s.Comment)) {
							continue
						}
						if !grouped && startsWith(d.Doc, name.Name) {
							continue
						}
						out = append(out, name)
					}
				}
			}
		}
	}
	return out
}

func startsWith(cg *ast.CommentGroup, name string) bool {
	return cg != nil && strings.HasPrefix(strings.TrimSpace(cg.Text()), name)
}

func hasText(cg *ast.CommentGroup) bool {
	return cg != nil && strings.TrimSpace(cg.Text()) != ""
}

func exportedReceiver(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.IsExported()
	case *ast.StarExpr:
		return exportedReceiver(e.X)
	case *ast.IndexExpr:
		return exportedReceiver(e.X)
	case *ast.IndexListExpr:
		return exportedReceiver(e.X)
	}
	return false
}
