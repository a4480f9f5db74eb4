package gomodel

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"
)

// DirectivePrefix starts every directive comment, as in "//stagegen:enum".
const DirectivePrefix = "//stagegen:"

// Directive is one "//stagegen:<name> <args...>" comment line.
type Directive struct {
	Name string
	Args []string
}

// Arg returns the i-th argument, or "" when absent.
func (d Directive) Arg(i int) string {
	if i < 0 || i >= len(d.Args) {
		return ""
	}
	return d.Args[i]
}

// Decl is a top-level type or function declaration. It is the candidate
// type of the directive filters.
type Decl struct {
	Ident      *ast.Ident
	Obj        types.Object
	Node       ast.Node // *ast.TypeSpec or *ast.FuncDecl
	File       *ast.File
	Directives []Directive
}

// Name implements pass.Candidate.
func (d *Decl) Name() string { return d.Ident.Name }

// Directive returns the first directive called name.
func (d *Decl) Directive(name string) (Directive, bool) {
	for _, dir := range d.Directives {
		if dir.Name == name {
			return dir, true
		}
	}
	return Directive{}, false
}

// Has reports whether d carries the directive name.
func (d *Decl) Has(name string) bool {
	_, ok := d.Directive(name)
	return ok
}

// Decls returns the top-level type and function declarations of p in file
// order. Methods are not included.
func (p *Package) Decls() []*Decl {
	var out []*Decl
	for _, f := range p.files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					docs := []*ast.CommentGroup{ts.Doc}
					if !d.Lparen.IsValid() {
						docs = append(docs, d.Doc)
					}
					out = append(out, p.newDecl(ts.Name, ts, f, docs...))
				}
			case *ast.FuncDecl:
				if d.Recv != nil {
					continue
				}
				out = append(out, p.newDecl(d.Name, d, f, d.Doc))
			}
		}
	}
	return out
}

func (p *Package) newDecl(ident *ast.Ident, node ast.Node, f *ast.File, docs ...*ast.CommentGroup) *Decl {
	d := &Decl{
		Ident:      ident,
		Node:       node,
		File:       f,
		Directives: parseDirectives(docs...),
	}
	if p.info != nil {
		d.Obj = p.info.Defs[ident]
	}
	return d
}

func parseDirectives(groups ...*ast.CommentGroup) []Directive {
	var out []Directive
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			rest, ok := strings.CutPrefix(c.Text, DirectivePrefix)
			if !ok {
				continue
			}
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				continue
			}
			out = append(out, Directive{Name: fields[0], Args: fields[1:]})
		}
	}
	return out
}
